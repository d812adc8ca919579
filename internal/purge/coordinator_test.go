package purge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fieldagent/internal/common"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
)

// fakeSecure records the order of purge operations against the encrypted
// backend.
type fakeSecure struct {
	values    map[string]string
	wiped     bool
	deleteErr error
	wipeErr   error
	ops       *[]string
}

func (f *fakeSecure) Delete(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if f.ops != nil {
		*f.ops = append(*f.ops, "secure.delete")
	}
	delete(f.values, name)
	return nil
}

func (f *fakeSecure) Wipe(ctx context.Context) error {
	if f.wipeErr != nil {
		return f.wipeErr
	}
	if f.ops != nil {
		*f.ops = append(*f.ops, "secure.wipe")
	}
	f.wiped = true
	f.values = map[string]string{}
	return nil
}

type fakeSession struct {
	invalidated int
	err         error
	ops         *[]string
}

func (f *fakeSession) InvalidateSession(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	if f.ops != nil {
		*f.ops = append(*f.ops, "session.invalidate")
	}
	f.invalidated++
	return nil
}

type fixture struct {
	coord   *Coordinator
	secure  *fakeSecure
	session *fakeSession
	prefs   prefs.Store
	dataDir string
	ops     []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.secure = &fakeSecure{values: map[string]string{
		common.PrefKeyToken:          "AAAAAAAAAA",
		common.PrefKeyDeploymentCode: "XYZ1",
	}, ops: &f.ops}
	f.session = &fakeSession{ops: &f.ops}

	f.dataDir = t.TempDir()
	cacheDir := t.TempDir()
	f.prefs = prefs.NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))

	f.coord = NewCoordinator(f.secure, f.session, f.prefs,
		[]string{f.dataDir, cacheDir}, logging.NewNopLogger())
	return f
}

func seedFiles(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o770))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trackbuf.db"), []byte("x"), 0o660))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "old.realm"), []byte("x"), 0o660))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o660))
}

func TestPurgeAll_RunsPhasesInOrderAndWipesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefs.SetString(ctx, common.PrefKeyToken, "AAAAAAAAAA"))
	require.NoError(t, f.prefs.SetBool(ctx, common.PrefKeyAutoUpdateInstall, true))
	seedFiles(t, f.dataDir)

	require.NoError(t, f.coord.PurgeAll(ctx))

	// ordering: encrypted keys, session, (prefs clear untracked), raw wipe
	require.Equal(t, []string{"secure.delete", "secure.delete", "session.invalidate", "secure.wipe"}, f.ops)
	require.True(t, f.secure.wiped)
	require.Equal(t, 1, f.session.invalidated)

	// the whole prefs store is cleared, not just credential keys
	keys, err := f.prefs.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)

	entries, err := os.ReadDir(f.dataDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPurgeAll_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.coord.PurgeAll(ctx))
	// second run observes already-empty stores and completes without error
	require.NoError(t, f.coord.PurgeAll(ctx))
}

func TestPurgeAll_AbortsOnFirstPhaseFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefs.SetString(ctx, common.PrefKeyToken, "AAAAAAAAAA"))
	f.session.err = errors.New("auth layer down")

	err := f.coord.PurgeAll(ctx)
	require.Error(t, err)

	// phase 3 never ran: prefs still hold the token
	_, ok, getErr := f.prefs.GetString(ctx, common.PrefKeyToken)
	require.NoError(t, getErr)
	require.True(t, ok)
	require.False(t, f.secure.wiped)
}

func TestPurgeSensitiveOnly_SkipsPrefsAndDirectories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefs.SetString(ctx, common.PrefKeyToken, "AAAAAAAAAA"))
	seedFiles(t, f.dataDir)

	require.NoError(t, f.coord.PurgeSensitiveOnly(ctx))

	require.True(t, f.secure.wiped)
	require.Zero(t, f.session.invalidated)

	// prefs and files survive the fast path
	_, ok, err := f.prefs.GetString(ctx, common.PrefKeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = os.Stat(filepath.Join(f.dataDir, "notes.txt"))
	require.NoError(t, err)
}

func TestPurgeAll_OverwritesRegisteredBuffers(t *testing.T) {
	f := newFixture(t)

	secret := []byte("AAAAAAAAAA")
	f.coord.RegisterSensitive(secret)

	require.NoError(t, f.coord.PurgeAll(context.Background()))
	for i, b := range secret {
		require.Zerof(t, b, "byte %d not overwritten", i)
	}
}

func TestVerify_ReportsResidue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefs.SetString(ctx, "leftover", "v"))
	seedFiles(t, f.dataDir)

	report, err := f.coord.Verify(ctx)
	require.NoError(t, err)
	require.False(t, report.PrefsEmpty)
	require.Contains(t, report.PrefsResidue, "leftover")
	require.False(t, report.DirsEmpty[f.dataDir])
	require.True(t, report.SecureAssumed)

	require.NoError(t, f.coord.PurgeAll(ctx))

	report, err = f.coord.Verify(ctx)
	require.NoError(t, err)
	require.True(t, report.PrefsEmpty)
	require.True(t, report.DirsEmpty[f.dataDir])
}
