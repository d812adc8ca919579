// Package securestore implements the encrypted credential backend. Values
// are kept as a single JSON map sealed with AES-GCM; the key is derived with
// argon2id from a per-install secret generated on first use. It backs up the
// plaintext prefs store so corruption of one can be recovered from the other.
package securestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fieldagent/internal/common"
	"fieldagent/internal/cryptox"
	"fieldagent/internal/logging"
)

const (
	sealedFileName = "secure.bin"
	keyFileName    = "secure.key"
)

// Store is the encrypted key-value backend.
//
// Key material is loaded (or generated) lazily on first use, so the store
// stays usable for a fresh login after Wipe removed everything.
type Store struct {
	dir string
	log logging.Logger

	mu  sync.Mutex
	key []byte
}

// keyFile is the on-disk JSON carrying the install secret and derivation salt.
type keyFile struct {
	Secret []byte `json:"secret"`
	Salt   []byte `json:"salt"`
}

// sealedFile is the on-disk JSON carrying the encrypted payload.
type sealedFile struct {
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

func New(dir string, log logging.Logger) *Store {
	return &Store{dir: dir, log: log}
}

func (s *Store) sealedPath() string { return filepath.Join(s.dir, sealedFileName) }
func (s *Store) keyPath() string    { return filepath.Join(s.dir, keyFileName) }

// ensureKey loads the derivation material, generating it on first use.
// Callers must hold s.mu.
func (s *Store) ensureKey() ([]byte, error) {
	if s.key != nil {
		return s.key, nil
	}

	var kf keyFile
	data, err := os.ReadFile(s.keyPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &kf); err != nil {
			return nil, fmt.Errorf("decode key file: %w", err)
		}
	case os.IsNotExist(err):
		kf = keyFile{
			Secret: common.GenerateRandByteArray(32),
			Salt:   common.GenerateRandByteArray(16),
		}
		encoded, err := json.Marshal(kf)
		if err != nil {
			return nil, fmt.Errorf("encode key file: %w", err)
		}
		if err := os.MkdirAll(s.dir, 0o770); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", s.dir, err)
		}
		if err := os.WriteFile(s.keyPath(), encoded, 0o600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
	default:
		return nil, fmt.Errorf("read key file: %w", err)
	}

	s.key = cryptox.DeriveKey(kf.Secret, kf.Salt)
	return s.key, nil
}

// loadValues opens the sealed file into a plain map. Missing file means empty.
// Callers must hold s.mu.
func (s *Store) loadValues(key []byte) (map[string]string, error) {
	data, err := os.ReadFile(s.sealedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read sealed store: %w", err)
	}

	var sf sealedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode sealed store: %w", err)
	}

	values := map[string]string{}
	if err := cryptox.OpenRecord(sf.Data, sf.Nonce, key, &values); err != nil {
		return nil, fmt.Errorf("open sealed store: %w", err)
	}
	return values, nil
}

// saveValues seals the map back to disk. Callers must hold s.mu.
func (s *Store) saveValues(key []byte, values map[string]string) error {
	ciphertext, nonce, err := cryptox.SealRecord(values, key)
	if err != nil {
		return fmt.Errorf("seal store: %w", err)
	}
	encoded, err := json.Marshal(sealedFile{Nonce: nonce, Data: ciphertext})
	if err != nil {
		return fmt.Errorf("encode sealed store: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	if err := os.WriteFile(s.sealedPath(), encoded, 0o600); err != nil {
		return fmt.Errorf("write sealed store: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.ensureKey()
	if err != nil {
		return "", false, err
	}
	values, err := s.loadValues(key)
	if err != nil {
		return "", false, err
	}
	v, ok := values[name]
	return v, ok, nil
}

func (s *Store) Put(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.ensureKey()
	if err != nil {
		return err
	}
	values, err := s.loadValues(key)
	if err != nil {
		return err
	}
	values[name] = value
	return s.saveValues(key, values)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.ensureKey()
	if err != nil {
		return err
	}
	values, err := s.loadValues(key)
	if err != nil {
		return err
	}
	if _, ok := values[name]; !ok {
		return nil
	}
	delete(values, name)
	return s.saveValues(key, values)
}

// Wipe is the provider-level purge: it removes the sealed file and the key
// material itself. After Wipe any previously sealed bytes are unrecoverable;
// the next Put starts a fresh store under a new key.
func (s *Store) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		common.WipeByteArray(s.key)
		s.key = nil
	}
	for _, path := range []string{s.sealedPath(), s.keyPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	s.log.Info(ctx, "secure store wiped", "dir", s.dir)
	return nil
}
