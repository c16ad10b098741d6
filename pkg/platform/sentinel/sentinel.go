package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the remote client return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrExpired: session or token has expired
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: collaborator or resource temporarily unavailable
//   - ErrTimeout: collaborator did not answer within its deadline
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timeout")
)
