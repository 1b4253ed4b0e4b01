package store

import (
	"context"
	"sync"
)

// MemoryBackend holds the serialized aggregate in process memory.
// Used by tests and by callers that want an ephemeral store.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load returns the stored value, or (nil, nil) when nothing has been
// saved yet.
func (b *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return nil, nil
	}
	copied := make([]byte, len(b.data))
	copy(copied, b.data)
	return copied, nil
}

// Save replaces the stored value.
func (b *MemoryBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	return nil
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }
