package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/progscout/progscout/internal/normalize"
	"github.com/progscout/progscout/internal/utils"
)

// Backend is the external key-value resource the aggregate persists
// to. The value is opaque to the backend and always read and written
// wholesale under a single named key. Load returns (nil, nil) when the
// key does not exist yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// DefaultTimeout bounds each backend round trip so an unresponsive
// resource surfaces StoreUnavailable instead of hanging.
const DefaultTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	Timeout time.Duration
	Logger  utils.Logger
}

// Store exposes the four record operations over a backend. The backend
// has no native transactions, so every mutation is a full
// read-modify-write cycle; a single-slot gate serializes mutations so
// two concurrent triggers can never both act on the same pre-mutation
// snapshot and overshoot the quota or duplicate a record.
type Store struct {
	backend Backend
	timeout time.Duration
	logger  utils.Logger

	// gate holds at most one in-flight mutation; a second mutating
	// call blocks here until the first finishes its write.
	gate chan struct{}
}

// NewStore creates a store over the given backend.
func NewStore(backend Backend, opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger()
	}
	return &Store{
		backend: backend,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		gate:    make(chan struct{}, 1),
	}
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

// Add commits a record. The duplicate check runs before the quota
// check, so saving an already-saved program reports DuplicateRecord
// even at the quota ceiling. On success the stored record, with its
// assigned ID and timestamp, is returned.
func (s *Store) Add(ctx context.Context, record ProgramRecord) (ProgramRecord, error) {
	if err := s.acquireGate(ctx); err != nil {
		return ProgramRecord{}, err
	}
	defer s.releaseGate()

	state, err := s.loadState(ctx)
	if err != nil {
		return ProgramRecord{}, err
	}

	for _, existing := range state.Records {
		if sameProgram(existing, record) {
			return ProgramRecord{}, ErrDuplicateRecord
		}
	}

	if !state.Tier.IsPremium && len(state.Records) >= state.Tier.MaxFreeRecords {
		return ProgramRecord{}, ErrQuotaExceeded
	}

	record.ID = uuid.NewString()
	if record.ExtractedAt.IsZero() {
		record.ExtractedAt = time.Now().UTC()
	}

	state.Records = append(state.Records, record)
	if err := s.saveState(ctx, state); err != nil {
		return ProgramRecord{}, err
	}

	s.logger.WithFields(map[string]interface{}{
		"id":          record.ID,
		"institution": record.Institution,
		"count":       len(state.Records),
	}).Info("program saved")

	return record, nil
}

// Remove deletes the record with the given ID. Removing an absent ID
// is a no-op success, so retried removals stay idempotent.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.acquireGate(ctx); err != nil {
		return err
	}
	defer s.releaseGate()

	state, err := s.loadState(ctx)
	if err != nil {
		return err
	}

	kept := state.Records[:0]
	for _, record := range state.Records {
		if record.ID != id {
			kept = append(kept, record)
		}
	}
	if len(kept) == len(state.Records) {
		return nil
	}
	state.Records = kept

	if err := s.saveState(ctx, state); err != nil {
		return err
	}
	s.logger.WithField("id", id).Info("program removed")
	return nil
}

// List returns all records in insertion order. Reads do not take the
// mutation gate: backends persist the aggregate atomically, so a
// concurrent reader sees either the pre- or post-mutation state, never
// a torn one.
func (s *Store) List(ctx context.Context) ([]ProgramRecord, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	return state.Records, nil
}

// Tier returns the current tier state.
func (s *Store) Tier(ctx context.Context) (TierState, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return TierState{}, err
	}
	return state.Tier, nil
}

// SetTier replaces the tier state. Lowering the ceiling below the
// current record count does not evict anything; the stored records
// stay and only future adds are blocked.
func (s *Store) SetTier(ctx context.Context, tier TierState) error {
	if tier.MaxFreeRecords < 1 {
		tier.MaxFreeRecords = DefaultMaxFreeRecords
	}

	if err := s.acquireGate(ctx); err != nil {
		return err
	}
	defer s.releaseGate()

	state, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	state.Tier = tier

	if err := s.saveState(ctx, state); err != nil {
		return err
	}
	s.logger.WithField("premium", tier.IsPremium).Info("tier updated")
	return nil
}

// acquireGate admits one mutation at a time, respecting cancellation
// while waiting.
func (s *Store) acquireGate(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return unavailable("waiting for pending store operation", ctx.Err())
	}
}

func (s *Store) releaseGate() { <-s.gate }

func (s *Store) loadState(ctx context.Context) (State, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return State{}, unavailable("failed to read store", err)
	}
	if len(data) == 0 {
		return State{Tier: DefaultTier()}, nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, unavailable("store contents are corrupted", err)
	}
	if state.Tier.MaxFreeRecords < 1 {
		state.Tier.MaxFreeRecords = DefaultMaxFreeRecords
	}
	return state, nil
}

func (s *Store) saveState(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return unavailable("failed to encode store", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.Save(ctx, data); err != nil {
		return unavailable("failed to write store", err)
	}
	return nil
}

func unavailable(message string, cause error) *StoreError {
	return &StoreError{Code: CodeStoreUnavailable, Message: message, Cause: cause}
}

// sameProgram decides whether two records denote the same program:
// matching source URLs when both are present, otherwise a case-folded
// (title, institution) comparison.
func sameProgram(a, b ProgramRecord) bool {
	if a.SourceURL != "" && b.SourceURL != "" &&
		canonicalURL(a.SourceURL) == canonicalURL(b.SourceURL) {
		return true
	}
	return normalize.Fold(a.Title) == normalize.Fold(b.Title) &&
		normalize.Fold(a.Institution) == normalize.Fold(b.Institution)
}

func canonicalURL(raw string) string {
	if normalized, err := utils.NormalizeURL(raw); err == nil {
		return normalized
	}
	return raw
}
