package restart

import (
	"context"
	"fmt"
	"os/exec"
)

// ExecStarter starts the agent binary detached, standing in for the
// platform's foreground-service-start primitive. The hook process exits
// right after, so the child must not be tied to it.
type ExecStarter struct {
	// AgentPath is the agent executable; looked up on PATH when relative.
	AgentPath string
}

var _ ServiceStarter = (*ExecStarter)(nil)

func (s *ExecStarter) StartWorker(ctx context.Context) error {
	if s.AgentPath == "" {
		return fmt.Errorf("agent path not configured")
	}

	// Deliberately not CommandContext: the worker must outlive the hook.
	cmd := exec.Command(s.AgentPath, "run")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.AgentPath, err)
	}
	return cmd.Process.Release()
}
