// Package common defines shared constants, sentinel errors and small
// utilities used across fieldagent components. Callers should use errors.Is
// to match the sentinel values.
package common

import "errors"

var (
	// Credential-store errors.
	ErrCredentialsCorrupted = errors.New("stored credentials corrupted")
	ErrInvalidToken         = errors.New("invalid token")

	// Remote collaborator errors.
	ErrUnavailable  = errors.New("service unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)
