package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewMemoryBackend(), Options{})
}

func sampleRecord(title, institution, url string) ProgramRecord {
	return ProgramRecord{
		Title:       title,
		Institution: institution,
		SourceURL:   url,
		Tuition:     "$45,000 per year",
		Deadline:    "January 15, 2026",
		Duration:    "2 years",
	}
}

func TestAddAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Add(ctx, sampleRecord("MS in CS", "Example University", "https://example.edu/ms-cs"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("expected an assigned ID")
	}
	if stored.ExtractedAt.IsZero() {
		t.Error("expected an assigned timestamp")
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	titles := []string{"Program A", "Program B", "Program C"}
	for i, title := range titles {
		if _, err := s.Add(ctx, sampleRecord(title, "University", "https://example.edu/p/"+title)); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != len(titles) {
		t.Fatalf("expected %d records, got %d", len(titles), len(records))
	}
	for i, record := range records {
		if record.Title != titles[i] {
			t.Errorf("position %d: expected %q, got %q", i, titles[i], record.Title)
		}
	}
}

func TestDedupBySourceURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, sampleRecord("MS in CS", "Example University", "https://example.edu/ms-cs")); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	// Different title, same page.
	_, err := s.Add(ctx, sampleRecord("Computer Science MS", "Example U", "https://EXAMPLE.edu/ms-cs/"))
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected DuplicateRecord, got %v", err)
	}
}

func TestDedupByTitleInstitutionCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, sampleRecord("MS in CS", "Example University", "https://example.edu/a")); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	_, err := s.Add(ctx, sampleRecord("ms in cs", "EXAMPLE UNIVERSITY", "https://mirror.example.org/b"))
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected DuplicateRecord, got %v", err)
	}
}

func TestQuotaEnforcement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, title := range []string{"A", "B", "C"} {
		if _, err := s.Add(ctx, sampleRecord(title, "University", "https://example.edu/"+title)); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}

	_, err := s.Add(ctx, sampleRecord("D", "University", "https://example.edu/D"))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected QuotaExceeded, got %v", err)
	}

	if err := s.SetTier(ctx, TierState{IsPremium: true, MaxFreeRecords: DefaultMaxFreeRecords}); err != nil {
		t.Fatalf("set tier failed: %v", err)
	}
	if _, err := s.Add(ctx, sampleRecord("D", "University", "https://example.edu/D")); err != nil {
		t.Fatalf("premium add failed: %v", err)
	}
}

func TestDuplicateCheckRunsBeforeQuotaCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		if _, err := s.Add(ctx, sampleRecord(title, "University", "https://example.edu/"+title)); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	// At the ceiling, re-saving a stored program is a duplicate, not a
	// quota failure.
	_, err := s.Add(ctx, sampleRecord("A", "University", "https://example.edu/A"))
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected DuplicateRecord, got %v", err)
	}
}

func TestSetTierDoesNotEvict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		if _, err := s.Add(ctx, sampleRecord(title, "University", "https://example.edu/"+title)); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	if err := s.SetTier(ctx, TierState{IsPremium: false, MaxFreeRecords: 1}); err != nil {
		t.Fatalf("set tier failed: %v", err)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected existing records to survive ceiling decrease, got %d", len(records))
	}

	_, err = s.Add(ctx, sampleRecord("D", "University", "https://example.edu/D"))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected future adds blocked, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Add(ctx, sampleRecord("A", "University", "https://example.edu/A"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := s.Remove(ctx, stored.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := s.Remove(ctx, stored.ID); err != nil {
		t.Fatalf("second remove should be a no-op success, got %v", err)
	}
	if err := s.Remove(ctx, "never-existed"); err != nil {
		t.Fatalf("removing an absent id should succeed, got %v", err)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty store, got %d records", len(records))
	}
}

func TestSentinelRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := sampleRecord("A", "University", "https://example.edu/A")
	record.Tuition = NotSpecified
	record.Location = NotSpecified

	if _, err := s.Add(ctx, record); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if records[0].Tuition != NotSpecified {
		t.Errorf("expected sentinel %q, got %q", NotSpecified, records[0].Tuition)
	}
	if records[0].Location != NotSpecified {
		t.Errorf("expected sentinel %q, got %q", NotSpecified, records[0].Location)
	}
}

func TestConcurrentAddsAtQuotaBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Fill to one below the ceiling.
	for _, title := range []string{"A", "B"} {
		if _, err := s.Add(ctx, sampleRecord(title, "University", "https://example.edu/"+title)); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, title := range []string{"C", "D"} {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			_, err := s.Add(ctx, sampleRecord(title, "University", "https://example.edu/"+title))
			results <- err
		}(title)
	}
	wg.Wait()
	close(results)

	var successes, quotaFailures int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrQuotaExceeded):
			quotaFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || quotaFailures != 1 {
		t.Fatalf("expected exactly one success and one QuotaExceeded, got %d successes, %d quota failures",
			successes, quotaFailures)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != DefaultMaxFreeRecords {
		t.Errorf("expected exactly %d records, got %d", DefaultMaxFreeRecords, len(records))
	}
}

func TestConcurrentDistinctAddsUnderPremium(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetTier(ctx, TierState{IsPremium: true, MaxFreeRecords: DefaultMaxFreeRecords}); err != nil {
		t.Fatalf("set tier failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := string(rune('A' + i))
			if _, err := s.Add(ctx, sampleRecord(title, "University", "https://example.edu/"+title)); err != nil {
				t.Errorf("add %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 10 {
		t.Errorf("expected 10 records, got %d", len(records))
	}
}

// failingBackend simulates an unresponsive backing resource.
type failingBackend struct{ err error }

func (b *failingBackend) Load(ctx context.Context) ([]byte, error) { return nil, b.err }
func (b *failingBackend) Save(ctx context.Context, data []byte) error {
	return b.err
}
func (b *failingBackend) Close() error { return nil }

func TestBackendFailureSurfacesStoreUnavailable(t *testing.T) {
	s := NewStore(&failingBackend{err: errors.New("connection refused")}, Options{Timeout: 100 * time.Millisecond})
	ctx := context.Background()

	_, err := s.Add(ctx, sampleRecord("A", "University", "https://example.edu/A"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected StoreUnavailable, got %v", err)
	}

	if _, err := s.List(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected StoreUnavailable from list, got %v", err)
	}
}

func TestCorruptedStateSurfacesStoreUnavailable(t *testing.T) {
	backend := NewMemoryBackend()
	if err := backend.Save(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	s := NewStore(backend, Options{})
	if _, err := s.List(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected StoreUnavailable for corrupted contents, got %v", err)
	}
}
