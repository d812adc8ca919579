// Package agent wires the fieldagent components together and implements the
// command surface: login, logout, run and status. Components are constructed
// here and passed by reference; nothing in the tree owns process-wide state.
package agent

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"fieldagent/internal/api"
	"fieldagent/internal/common"
	"fieldagent/internal/config"
	"fieldagent/internal/credentials"
	"fieldagent/internal/filex"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
	"fieldagent/internal/purge"
	"fieldagent/internal/securestore"
	"fieldagent/internal/trackbuf"
	"fieldagent/internal/watchdog"

	_ "modernc.org/sqlite"
)

// App holds the assembled components for one agent process.
type App struct {
	cfg    *config.Config
	log    logging.Logger
	prefs  prefs.Store
	secure *securestore.Store
	creds  *credentials.Store
	client *api.Client
	wd     *watchdog.Watchdog
	purger *purge.Coordinator

	db   *sql.DB
	repo trackbuf.Repository

	lock *flock.Flock

	reader *bufio.Reader
	out    io.Writer
}

// NewApp builds the component graph and marks the process alive.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	for _, dir := range []string{cfg.DataDir, cfg.CacheDir, cfg.TempDir} {
		if _, err := filex.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	store := prefs.NewFileStore(filepath.Join(cfg.DataDir, "prefs.json"))
	secure := securestore.New(filepath.Join(cfg.DataDir, "secure"), log)
	creds := credentials.NewStore(store, secure, log)

	installID, err := ensureInstallID(ctx, store)
	if err != nil {
		return nil, err
	}

	client, err := api.New(cfg.APIBaseURL, log, api.WithInstallID(installID))
	if err != nil {
		return nil, err
	}

	db, err := trackbuf.InitDatabase(ctx, filepath.Join(cfg.DataDir, "trackbuf.db"))
	if err != nil {
		return nil, err
	}

	purger := purge.NewCoordinator(secure, client, store,
		[]string{cfg.DataDir, cfg.CacheDir, cfg.TempDir}, log)

	wd := watchdog.New(store, cfg.LivenessInterval, log)
	if err := wd.Initialize(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize watchdog: %w", err)
	}

	return &App{
		cfg:    cfg,
		log:    log,
		prefs:  store,
		secure: secure,
		creds:  creds,
		client: client,
		wd:     wd,
		purger: purger,
		db:     db,
		repo:   trackbuf.NewSQLiteStore(db),
		lock:   flock.New(filepath.Join(cfg.DataDir, "fieldagent.lock")),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// ensureInstallID returns the persisted per-install identifier, generating
// one on first start. Logout purges it along with everything else, so a
// fresh login after logout presents as a new install.
func ensureInstallID(ctx context.Context, store prefs.Store) (string, error) {
	id, ok, err := store.GetString(ctx, common.PrefKeyInstallID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}

	id, err = common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("generate install id: %w", err)
	}
	if err := store.SetString(ctx, common.PrefKeyInstallID, id); err != nil {
		return "", err
	}
	return id, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}
