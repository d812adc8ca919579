package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileStore persists preferences as a single JSON object in one file.
// Writes go through a temp file plus rename so readers never observe a
// partially written store. A sibling .lock file carries the flock; locking
// the data file itself would race with the rename.
type FileStore struct {
	path string
	lock *flock.Flock
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the JSON file at path.
// The file is created lazily on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read prefs %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode prefs %s: %w", s.path, err)
	}
	return m, nil
}

func (s *FileStore) save(m map[string]any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp prefs: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// read runs fn over a snapshot of the store under a shared lock.
func (s *FileStore) read(ctx context.Context, fn func(m map[string]any) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.lock.RLock(); err != nil {
		return fmt.Errorf("lock prefs: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	m, err := s.load()
	if err != nil {
		return err
	}
	return fn(m)
}

// mutate runs fn over the store under an exclusive lock and persists the result.
func (s *FileStore) mutate(ctx context.Context, fn func(m map[string]any)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock prefs: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	m, err := s.load()
	if err != nil {
		return err
	}
	fn(m)
	return s.save(m)
}

func (s *FileStore) GetString(ctx context.Context, key string) (string, bool, error) {
	var value string
	var ok bool
	err := s.read(ctx, func(m map[string]any) error {
		v, present := m[key]
		if !present {
			return nil
		}
		str, isStr := v.(string)
		if !isStr {
			return fmt.Errorf("prefs key %q is not a string", key)
		}
		value, ok = str, true
		return nil
	})
	return value, ok, err
}

func (s *FileStore) SetString(ctx context.Context, key, value string) error {
	return s.mutate(ctx, func(m map[string]any) { m[key] = value })
}

func (s *FileStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	var value, ok bool
	err := s.read(ctx, func(m map[string]any) error {
		v, present := m[key]
		if !present {
			return nil
		}
		b, isBool := v.(bool)
		if !isBool {
			return fmt.Errorf("prefs key %q is not a bool", key)
		}
		value, ok = b, true
		return nil
	})
	return value, ok, err
}

func (s *FileStore) SetBool(ctx context.Context, key string, value bool) error {
	return s.mutate(ctx, func(m map[string]any) { m[key] = value })
}

func (s *FileStore) GetInt64(ctx context.Context, key string) (int64, bool, error) {
	var value int64
	var ok bool
	err := s.read(ctx, func(m map[string]any) error {
		v, present := m[key]
		if !present {
			return nil
		}
		// JSON numbers decode as float64; epoch millis fit well inside the
		// float64 exact-integer range.
		f, isNum := v.(float64)
		if !isNum {
			return fmt.Errorf("prefs key %q is not a number", key)
		}
		value, ok = int64(f), true
		return nil
	})
	return value, ok, err
}

func (s *FileStore) SetInt64(ctx context.Context, key string, value int64) error {
	return s.mutate(ctx, func(m map[string]any) { m[key] = value })
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.mutate(ctx, func(m map[string]any) { delete(m, key) })
}

func (s *FileStore) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(m map[string]any) {
		for k := range m {
			delete(m, k)
		}
	})
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.read(ctx, func(m map[string]any) error {
		for k := range m {
			keys = append(keys, k)
		}
		return nil
	})
	return keys, err
}
