// Package store owns the persisted collection of program records and
// the account tier state. All mutations go through the four store
// operations; the aggregate is read and written wholesale so no caller
// ever observes a partially applied change.
package store

import (
	"fmt"
	"time"
)

// NotSpecified is the sentinel value for a field no extractor could
// resolve. It is a first-class value, distinct from the empty string,
// and round-trips through storage and export unchanged.
const NotSpecified = "Not specified"

// ProgramRecord is the unit of persistence: one saved academic
// program. ID and ExtractedAt are assigned at commit time and
// immutable afterwards.
type ProgramRecord struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Institution     string            `json:"institution"`
	Tuition         string            `json:"tuition,omitempty"`
	Deadline        string            `json:"deadline,omitempty"`
	Duration        string            `json:"duration,omitempty"`
	Location        string            `json:"location,omitempty"`
	TestRequirement string            `json:"test_requirement,omitempty"`
	Description     string            `json:"description,omitempty"`
	SourceURL       string            `json:"source_url,omitempty"`
	ExtractedAt     time.Time         `json:"extracted_at"`
	ExtraFields     map[string]string `json:"extra_fields,omitempty"`
}

// TierState describes the account capability level governing the
// quota ceiling.
type TierState struct {
	IsPremium      bool `json:"is_premium"`
	MaxFreeRecords int  `json:"max_free_records"`
}

// DefaultMaxFreeRecords is the free-tier ceiling applied when a store
// is created on first use.
const DefaultMaxFreeRecords = 3

// DefaultTier returns the tier state of a freshly created store.
func DefaultTier() TierState {
	return TierState{IsPremium: false, MaxFreeRecords: DefaultMaxFreeRecords}
}

// State is the persisted aggregate: records in insertion order plus
// the tier state. It is serialized as one JSON document under a single
// named key.
type State struct {
	Records []ProgramRecord `json:"records"`
	Tier    TierState       `json:"tier"`
}

// ErrorCode categorizes store failures for callers and for the HTTP
// API.
type ErrorCode string

const (
	CodeDuplicateRecord  ErrorCode = "DUPLICATE_RECORD"
	CodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// StoreError is the error type returned by store operations.
type StoreError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error { return e.Cause }

// Is matches store errors by code so callers can use errors.Is with
// the exported sentinels.
func (e *StoreError) Is(target error) bool {
	if se, ok := target.(*StoreError); ok {
		return e.Code == se.Code
	}
	return false
}

// Sentinel errors for the store failure taxonomy. DuplicateRecord and
// QuotaExceeded are terminal for the attempted add; StoreUnavailable
// is safe to retry after backoff.
var (
	ErrDuplicateRecord  = &StoreError{Code: CodeDuplicateRecord, Message: "program already saved"}
	ErrQuotaExceeded    = &StoreError{Code: CodeQuotaExceeded, Message: "free limit reached, upgrade to premium for unlimited saves"}
	ErrStoreUnavailable = &StoreError{Code: CodeStoreUnavailable, Message: "backing store unavailable"}
)
