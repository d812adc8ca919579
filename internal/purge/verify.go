package purge

import (
	"context"

	"fieldagent/internal/filex"
)

// Report is the post-purge diagnostic. It is informational only: the secure
// storage backend cannot be enumerated, so its cleared status is assumed,
// never verified, and residue listed here does not mean the purge failed.
type Report struct {
	PrefsEmpty    bool
	PrefsResidue  []string
	DirsEmpty     map[string]bool
	SecureAssumed bool
}

// Verify inspects the stores the purge can actually see.
func (c *Coordinator) Verify(ctx context.Context) (*Report, error) {
	keys, err := c.prefs.Keys(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		PrefsEmpty:    len(keys) == 0,
		PrefsResidue:  keys,
		DirsEmpty:     make(map[string]bool, len(c.dirs)),
		SecureAssumed: true,
	}

	for _, dir := range c.dirs {
		empty, err := filex.IsDirEmpty(dir)
		if err != nil {
			return nil, err
		}
		report.DirsEmpty[dir] = empty
	}
	return report, nil
}
