package sentinel

import "errors"

// Sentinel errors for graph engine facts. Engines return these (optionally
// wrapped) so the graph access layer can translate them into domain errors.
//
// These describe the state of the store, not input validation:
// - ErrNotFound: no vertex matched a read, or an edge endpoint is missing
// - ErrConflict: a vertex with the requested id already exists
// - ErrUnavailable: the engine could not be reached
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
