// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// encryptionContext is the HKDF info string for token encryption keys.
const encryptionContext = "fitbit-exporter-token-store-v1"

var (
	// ErrEncryptionKeyMissing indicates no secret was provided to derive a key from.
	ErrEncryptionKeyMissing = errors.New("encryption secret not configured")

	// ErrDecryptionFailed indicates the ciphertext was not produced with this key.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Encryptor seals token records with AES-256-GCM. The key is derived from a
// secret (the OAuth2 client secret) with HKDF-SHA256, so no separate key
// needs to be managed.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives an AES-256 key from secret and salt.
func NewEncryptor(secret string, salt []byte) (*Encryptor, error) {
	if secret == "" {
		return nil, ErrEncryptionKeyMissing
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), salt, []byte(encryptionContext)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM cipher: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Seal encrypts plaintext and prepends the random nonce.
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(ciphertext []byte) ([]byte, error) {
	n := e.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := e.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
