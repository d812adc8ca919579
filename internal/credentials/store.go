// Package credentials implements the durable credential record: a bearer
// token plus deployment code persisted redundantly in the plaintext prefs
// store (primary) and the encrypted backend (backup), so loss or corruption
// of one can be recovered from the other.
package credentials

import (
	"context"
	"fmt"

	"fieldagent/internal/common"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
)

// Record is a loaded credential set.
type Record struct {
	Token          string
	DeploymentCode string
}

// SecureBackend is the encrypted backup store. securestore.Store satisfies it.
type SecureBackend interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Put(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

// Store coordinates the two credential backends.
//
// Precedence is fixed: the plaintext store is read first; the encrypted
// store is the authoritative backup on mismatch and the fallback when the
// plaintext copy is gone.
type Store struct {
	prefs  prefs.Store
	secure SecureBackend
	log    logging.Logger
}

func NewStore(p prefs.Store, secure SecureBackend, log logging.Logger) *Store {
	return &Store{prefs: p, secure: secure, log: log}
}

// Save validates the token and writes the record to both backends. A failed
// encrypted write leaves the store degraded but functional: it is logged and
// not surfaced, since the plaintext copy alone still supports every flow.
// A failed plaintext write is returned.
func (s *Store) Save(ctx context.Context, token, deploymentCode string) error {
	token, err := ValidateToken(token)
	if err != nil {
		return err
	}
	if deploymentCode == "" {
		return fmt.Errorf("deployment code must not be empty")
	}

	if err := s.prefs.SetString(ctx, common.PrefKeyToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.prefs.SetString(ctx, common.PrefKeyDeploymentCode, deploymentCode); err != nil {
		return fmt.Errorf("save deployment code: %w", err)
	}

	if err := s.secure.Put(ctx, common.PrefKeyToken, token); err != nil {
		s.log.Warn(ctx, "encrypted credential write failed, continuing on plaintext store only", "error", err)
		return nil
	}
	if err := s.secure.Put(ctx, common.PrefKeyDeploymentCode, deploymentCode); err != nil {
		s.log.Warn(ctx, "encrypted credential write failed, continuing on plaintext store only", "error", err)
	}
	return nil
}

// Load returns the stored record, or (nil, nil) when no credentials exist.
//
// The plaintext store is read first with the encrypted store as fallback.
// When both are readable and disagree, the encrypted value wins and the
// plaintext store is repaired in place. The loaded token is revalidated; on
// failure the whole credential set is treated as corrupted, both backends
// are cleared, and common.ErrCredentialsCorrupted is returned so the caller
// can force re-authentication.
func (s *Store) Load(ctx context.Context) (*Record, error) {
	token, tokenOK, err := s.prefs.GetString(ctx, common.PrefKeyToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	code, _, err := s.prefs.GetString(ctx, common.PrefKeyDeploymentCode)
	if err != nil {
		return nil, fmt.Errorf("load deployment code: %w", err)
	}

	backupToken, backupTokenOK, err := s.secure.Get(ctx, common.PrefKeyToken)
	if err != nil {
		// Backup unreadable: carry on with the plaintext copy alone.
		s.log.Warn(ctx, "encrypted credential read failed", "error", err)
		backupTokenOK = false
	}

	switch {
	case !tokenOK && !backupTokenOK:
		return nil, nil
	case !tokenOK:
		// Plaintext copy lost; recover from backup and repair.
		token = backupToken
		if code == "" {
			if backupCode, ok, err := s.secure.Get(ctx, common.PrefKeyDeploymentCode); err == nil && ok {
				code = backupCode
			}
		}
		s.repairPlaintext(ctx, token, code)
	case backupTokenOK && backupToken != token:
		// Both readable but disagreeing: the encrypted store is authoritative.
		s.log.Warn(ctx, "credential stores disagree, repairing plaintext from encrypted backup")
		token = backupToken
		s.repairPlaintext(ctx, token, code)
	}

	validated, err := ValidateToken(token)
	if err != nil {
		s.log.Error(ctx, "stored token failed revalidation, wiping credentials", "error", err)
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, fmt.Errorf("clear corrupted credentials: %w", clearErr)
		}
		return nil, common.ErrCredentialsCorrupted
	}

	return &Record{Token: validated, DeploymentCode: code}, nil
}

func (s *Store) repairPlaintext(ctx context.Context, token, code string) {
	if err := s.prefs.SetString(ctx, common.PrefKeyToken, token); err != nil {
		s.log.Warn(ctx, "plaintext credential repair failed", "error", err)
		return
	}
	if code != "" {
		if err := s.prefs.SetString(ctx, common.PrefKeyDeploymentCode, code); err != nil {
			s.log.Warn(ctx, "plaintext credential repair failed", "error", err)
		}
	}
}

// Clear removes the credential keys from both backends. Unlike Save it never
// swallows a backend failure: the caller must know whether clearing worked.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{common.PrefKeyToken, common.PrefKeyDeploymentCode, common.PrefKeyTokenLocked} {
		if err := s.prefs.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear plaintext %s: %w", key, err)
		}
	}
	for _, key := range []string{common.PrefKeyToken, common.PrefKeyDeploymentCode} {
		if err := s.secure.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear encrypted %s: %w", key, err)
		}
	}
	return nil
}

// IsLocked reports whether the token field is locked against edits. Read
// failures count as unlocked; the lock is a UI guard, not a security control.
func (s *Store) IsLocked(ctx context.Context) bool {
	locked, ok, err := s.prefs.GetBool(ctx, common.PrefKeyTokenLocked)
	if err != nil || !ok {
		return false
	}
	return locked
}

// Lock marks the token read-only until the next explicit logout.
func (s *Store) Lock(ctx context.Context) error {
	return s.prefs.SetBool(ctx, common.PrefKeyTokenLocked, true)
}
