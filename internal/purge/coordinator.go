// Package purge implements the ordered wipe of all locally cached credential
// and tracking state on logout. Phases run strictly sequentially and the
// whole operation aborts on the first phase failure, so success is never
// reported when part of the wipe silently failed. Within the directory sweep
// individual entries are best-effort: one locked file must not abort the rest.
package purge

import (
	"context"
	"fmt"
	"sync"

	"fieldagent/internal/common"
	"fieldagent/internal/filex"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
)

// databaseExtensions are residual files removed by extension match in the
// sweep phase, whatever produced them.
var databaseExtensions = []string{".db", ".sqlite", ".sqlite3", ".realm"}

// SessionInvalidator drops any cached auth session state; the API client
// satisfies it.
type SessionInvalidator interface {
	InvalidateSession(ctx context.Context) error
}

// SecureWiper is the encrypted backend as the purge sees it: targeted key
// removal (phase 1) and the provider-level wipe (phase 4).
type SecureWiper interface {
	Delete(ctx context.Context, name string) error
	Wipe(ctx context.Context) error
}

// Coordinator owns the purge sequence. Construct it at the application entry
// point and pass it to whoever needs it; it holds no global state.
type Coordinator struct {
	secure  SecureWiper
	session SessionInvalidator
	prefs   prefs.Store
	dirs    []string
	log     logging.Logger

	mu        sync.Mutex
	sensitive [][]byte
}

func NewCoordinator(secure SecureWiper, session SessionInvalidator, p prefs.Store, dirs []string, log logging.Logger) *Coordinator {
	return &Coordinator{secure: secure, session: session, prefs: p, dirs: dirs, log: log}
}

// RegisterSensitive adds a buffer to be overwritten during the advisory
// phase. No guarantee is implied: copies the runtime made stay around.
func (c *Coordinator) RegisterSensitive(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sensitive = append(c.sensitive, b)
}

// PurgeAll runs every phase in order. It is not interruptible once started:
// it runs to completion or to the first failing phase.
func (c *Coordinator) PurgeAll(ctx context.Context) error {
	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"clear encrypted credentials", c.clearEncryptedCredentials},
		{"invalidate auth session", c.session.InvalidateSession},
		{"clear preferences", c.prefs.Clear},
		{"wipe secure storage", c.secure.Wipe},
		{"sweep directories", c.sweepDirectories},
		{"overwrite sensitive buffers", c.overwriteSensitive},
	}
	return c.runPhases(ctx, phases)
}

// PurgeSensitiveOnly is the fast emergency path: encrypted credentials, the
// raw secure store and the in-memory hints, skipping the full cache wipe.
func (c *Coordinator) PurgeSensitiveOnly(ctx context.Context) error {
	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"clear encrypted credentials", c.clearEncryptedCredentials},
		{"wipe secure storage", c.secure.Wipe},
		{"overwrite sensitive buffers", c.overwriteSensitive},
	}
	return c.runPhases(ctx, phases)
}

func (c *Coordinator) runPhases(ctx context.Context, phases []struct {
	name string
	run  func(context.Context) error
}) error {
	for _, phase := range phases {
		if err := phase.run(ctx); err != nil {
			c.log.Error(ctx, "purge phase failed, aborting", "phase", phase.name, "error", err)
			return fmt.Errorf("purge phase %q: %w", phase.name, err)
		}
		c.log.Info(ctx, "purge phase completed", "phase", phase.name)
	}
	return nil
}

func (c *Coordinator) clearEncryptedCredentials(ctx context.Context) error {
	for _, key := range []string{common.PrefKeyToken, common.PrefKeyDeploymentCode} {
		if err := c.secure.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) sweepDirectories(ctx context.Context) error {
	for _, dir := range c.dirs {
		removed, failures := filex.SweepDir(dir)
		for _, f := range failures {
			c.log.Warn(ctx, "sweep entry skipped", "dir", dir, "error", f)
		}
		dbRemoved, dbFailures := filex.RemoveByExt(dir, databaseExtensions)
		for _, f := range dbFailures {
			c.log.Warn(ctx, "database residue skipped", "dir", dir, "error", f)
		}
		c.log.Info(ctx, "directory swept", "dir", dir, "removed", removed+dbRemoved)
	}
	return nil
}

func (c *Coordinator) overwriteSensitive(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.sensitive {
		common.WipeByteArray(b)
	}
	c.log.Info(ctx, "sensitive buffers overwritten", "count", len(c.sensitive))
	c.sensitive = nil
	return nil
}
