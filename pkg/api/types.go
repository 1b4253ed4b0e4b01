// Package api is the public face of progscout: the wire types the
// HTTP server speaks and a high-level client that ties fetching,
// extraction and the record store together.
package api

import (
	"github.com/progscout/progscout/internal/store"
)

// Re-export the storage types so API consumers do not import internal
// packages.
type ProgramRecord = store.ProgramRecord
type TierState = store.TierState

// NotSpecified marks a program attribute the source page did not
// provide.
const NotSpecified = store.NotSpecified

// ExtractRequest asks the server to extract a program from a page.
// Either URL alone (the server fetches the page) or URL plus HTML (the
// caller already has the page body) is accepted.
type ExtractRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
	// Save commits the extracted record in the same call.
	Save bool `json:"save,omitempty"`
}

// ExtractResponse carries the extracted record.
type ExtractResponse struct {
	Record *ProgramRecord `json:"record"`
	Saved  bool           `json:"saved"`
}

// SaveRequest commits a caller-assembled record.
type SaveRequest struct {
	Record ProgramRecord `json:"record"`
}

// SaveResponse returns the record as stored, with its assigned ID.
type SaveResponse struct {
	Record ProgramRecord `json:"record"`
}

// ListResponse carries all saved programs in insertion order.
type ListResponse struct {
	Programs []ProgramRecord `json:"programs"`
	Total    int             `json:"total"`
}

// TierRequest updates the account tier.
type TierRequest struct {
	Premium        bool `json:"premium"`
	MaxFreeRecords int  `json:"max_free_records,omitempty"`
}

// TierResponse carries the current tier and usage.
type TierResponse struct {
	Tier       TierState `json:"tier"`
	SavedCount int       `json:"saved_count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the failure in a machine-readable way.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
