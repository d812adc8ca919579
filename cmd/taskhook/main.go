// Command taskhook is the OS task-removal hook. It runs in its own
// short-lived process, consults the persisted plaintext state, restarts the
// background worker when the policy says so, and exits.
package main

import (
	"context"
	"log"
	"log/slog"
	"path/filepath"

	"fieldagent/internal/config"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
	"fieldagent/internal/restart"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewDefault(slog.LevelInfo)

	store := prefs.NewFileStore(filepath.Join(cfg.DataDir, "prefs.json"))
	starter := &restart.ExecStarter{AgentPath: cfg.AgentPath}

	hook := restart.NewHook(store, starter, cfg.DisableFlagWindow, logger)
	restarted, err := hook.Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger.Info(ctx, "task-removal hook finished", "restarted", restarted)
}
