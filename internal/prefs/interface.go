// Package prefs implements the flat, string-keyed plaintext preferences
// store. It is the primary credential backend and the only state shared with
// the task-removal hook, which runs in a separate short-lived process; the
// file implementation therefore guards every access with an OS file lock so
// single-key reads and writes stay atomic across processes.
package prefs

import "context"

// Store is a flat key-value preferences store.
//
// Absent keys are reported via the ok return, not an error. Implementations
// must make each single-key access atomic; no multi-key transaction is
// offered or assumed.
type Store interface {
	GetString(ctx context.Context, key string) (value string, ok bool, err error)
	SetString(ctx context.Context, key, value string) error

	GetBool(ctx context.Context, key string) (value bool, ok bool, err error)
	SetBool(ctx context.Context, key string, value bool) error

	GetInt64(ctx context.Context, key string) (value int64, ok bool, err error)
	SetInt64(ctx context.Context, key string, value int64) error

	Delete(ctx context.Context, key string) error

	// Clear removes every key, not just a known subset.
	Clear(ctx context.Context) error

	// Keys lists all present keys; used by purge verification diagnostics.
	Keys(ctx context.Context) ([]string, error)
}
