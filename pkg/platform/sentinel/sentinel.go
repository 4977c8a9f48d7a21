package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Storage backends and the key/value
// layer return these (optionally wrapped) so services can translate them into
// domain errors or downgrade them to safe defaults.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: key or record does not exist in the backend
// - ErrConflict: entity already exists or is in conflict with stored state
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: storage or collaborator is not usable right now
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
