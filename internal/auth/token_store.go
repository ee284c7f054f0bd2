// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// tokenKey is the single key the badger store writes.
const tokenKey = "fitbit:token"

// TokenStore persists the latest token pair across restarts.
type TokenStore interface {
	// Load returns the stored token. ok is false when nothing is stored.
	Load(ctx context.Context) (tok Token, ok bool, err error)

	// Save replaces the stored token.
	Save(ctx context.Context, tok Token) error
}

// MemoryTokenStore keeps the token in memory only. It is what the manager
// uses when persistence is disabled, and in tests.
type MemoryTokenStore struct {
	mu    sync.Mutex
	tok   Token
	ok    bool
	saves int
}

// Load implements TokenStore.
func (s *MemoryTokenStore) Load(_ context.Context) (Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok, s.ok, nil
}

// Save implements TokenStore.
func (s *MemoryTokenStore) Save(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok, s.ok = tok, true
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryTokenStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// BadgerTokenStore persists the token in a BadgerDB directory, encrypted
// with an Encryptor.
type BadgerTokenStore struct {
	db  *badger.DB
	enc *Encryptor
}

// OpenBadgerTokenStore opens (or creates) a token store at path. An empty
// path opens an in-memory database, which is only useful in tests.
func OpenBadgerTokenStore(path string, enc *Encryptor) (*BadgerTokenStore, error) {
	if enc == nil {
		return nil, ErrEncryptionKeyMissing
	}

	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	return &BadgerTokenStore{db: db, enc: enc}, nil
}

// Load implements TokenStore.
func (s *BadgerTokenStore) Load(_ context.Context) (Token, bool, error) {
	var tok Token
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		return item.Value(func(val []byte) error {
			plaintext, err := s.enc.Open(val)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(plaintext, &tok); err != nil {
				return fmt.Errorf("unmarshal token: %w", err)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return Token{}, false, err
	}
	return tok, found, nil
}

// Save implements TokenStore.
func (s *BadgerTokenStore) Save(_ context.Context, tok Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	sealed, err := s.enc.Seal(data)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tokenKey), sealed)
	})
}

// Close releases the database.
func (s *BadgerTokenStore) Close() error {
	return s.db.Close()
}
