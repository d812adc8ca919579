// Package cryptox implements the encryption used by the secure credential
// backend: argon2id key derivation plus AES-GCM sealing of JSON payloads.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"

	"golang.org/x/crypto/argon2"
)

// NonceSize is the AES-GCM nonce length used by Seal/Open.
const NonceSize = 12

// DeriveKey derives a 32-byte AES key from a secret and salt using argon2id.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// SealRecord serializes v to JSON and encrypts it with AES-GCM under key.
// A fresh random nonce is generated per call and returned alongside the
// ciphertext. The key must be 16, 24 or 32 bytes long.
func SealRecord(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// OpenRecord decrypts ciphertext produced by SealRecord and unmarshals the
// JSON payload into v. Decryption fails if the key, nonce or ciphertext do
// not match, including any tampering with the sealed bytes.
func OpenRecord(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}
