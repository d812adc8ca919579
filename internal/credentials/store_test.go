package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fieldagent/internal/common"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
)

// fakeSecure implements SecureBackend in memory with switchable failures.
type fakeSecure struct {
	values map[string]string

	PutErr    error
	GetErr    error
	DeleteErr error
}

func newFakeSecure() *fakeSecure {
	return &fakeSecure{values: map[string]string{}}
}

func (f *fakeSecure) Get(ctx context.Context, name string) (string, bool, error) {
	if f.GetErr != nil {
		return "", false, f.GetErr
	}
	v, ok := f.values[name]
	return v, ok, nil
}

func (f *fakeSecure) Put(ctx context.Context, name, value string) error {
	if f.PutErr != nil {
		return f.PutErr
	}
	f.values[name] = value
	return nil
}

func (f *fakeSecure) Delete(ctx context.Context, name string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.values, name)
	return nil
}

func newTestStore(t *testing.T) (*Store, prefs.Store, *fakeSecure) {
	t.Helper()
	p := prefs.NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))
	sec := newFakeSecure()
	return NewStore(p, sec, logging.NewNopLogger()), p, sec
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s, _, sec := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "AAAAAAAAAA", "XYZ1"))

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "AAAAAAAAAA", rec.Token)
	require.Equal(t, "XYZ1", rec.DeploymentCode)

	// both backends carry the record
	require.Equal(t, "AAAAAAAAAA", sec.values[common.PrefKeyToken])
	require.Equal(t, "XYZ1", sec.values[common.PrefKeyDeploymentCode])
}

func TestStore_SaveRejectsBadInput(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	err := s.Save(ctx, "short", "XYZ1")
	require.ErrorIs(t, err, common.ErrInvalidToken)

	err = s.Save(ctx, "AAAAAAAAAA", "")
	require.Error(t, err)
}

func TestStore_SaveSucceedsWhenEncryptedBackendDown(t *testing.T) {
	s, _, sec := newTestStore(t)
	ctx := context.Background()

	sec.PutErr = errors.New("keystore unavailable")
	require.NoError(t, s.Save(ctx, "AAAAAAAAAA", "XYZ1"))

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "AAAAAAAAAA", rec.Token)
	require.Equal(t, "XYZ1", rec.DeploymentCode)
}

func TestStore_LoadAbsent(t *testing.T) {
	s, _, _ := newTestStore(t)

	rec, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestStore_LoadFallsBackToEncryptedAndRepairs(t *testing.T) {
	s, p, sec := newTestStore(t)
	ctx := context.Background()

	// plaintext copy lost, backup intact
	sec.values[common.PrefKeyToken] = "BBBBBBBBBB"
	sec.values[common.PrefKeyDeploymentCode] = "XYZ2"

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "BBBBBBBBBB", rec.Token)
	require.Equal(t, "XYZ2", rec.DeploymentCode)

	// plaintext store was repaired
	v, ok, err := p.GetString(ctx, common.PrefKeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "BBBBBBBBBB", v)
}

func TestStore_LoadMismatchEncryptedWins(t *testing.T) {
	s, p, sec := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, p.SetString(ctx, common.PrefKeyToken, "CCCCCCCCCC"))
	require.NoError(t, p.SetString(ctx, common.PrefKeyDeploymentCode, "XYZ1"))
	sec.values[common.PrefKeyToken] = "BBBBBBBBBB"

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "BBBBBBBBBB", rec.Token)

	v, _, err := p.GetString(ctx, common.PrefKeyToken)
	require.NoError(t, err)
	require.Equal(t, "BBBBBBBBBB", v)
}

func TestStore_LoadCorruptedTokenWipesBothStores(t *testing.T) {
	s, p, sec := newTestStore(t)
	ctx := context.Background()

	// A token this short can never have been saved through Save; treat as
	// corruption.
	require.NoError(t, p.SetString(ctx, common.PrefKeyToken, "bad"))
	sec.values[common.PrefKeyToken] = "bad"

	rec, err := s.Load(ctx)
	require.ErrorIs(t, err, common.ErrCredentialsCorrupted)
	require.Nil(t, rec)

	_, ok, err := p.GetString(ctx, common.PrefKeyToken)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, sec.values)

	// subsequent load sees a clean, absent store
	rec, err = s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestStore_ClearReportsBackendFailure(t *testing.T) {
	s, _, sec := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "AAAAAAAAAA", "XYZ1"))
	sec.DeleteErr = errors.New("keystore unavailable")

	require.Error(t, s.Clear(ctx))
}

func TestStore_LockIsLocked(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	require.False(t, s.IsLocked(ctx))
	require.NoError(t, s.Lock(ctx))
	require.True(t, s.IsLocked(ctx))

	// logout path: Clear drops the lock flag with the credentials
	require.NoError(t, s.Clear(ctx))
	require.False(t, s.IsLocked(ctx))
}
