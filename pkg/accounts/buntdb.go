// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"
)

// BuntRepository keeps accounts in BuntDB (https://github.com/tidwall/buntdb).
//
// Each account is a JSON document under "account:<id>" and the unique
// email index is a second key "account-email:<email>" holding the id.
// Both are written in one Update transaction, and BuntDB only allows one
// writer at a time, so the existence check and the insert are atomic.
type BuntRepository struct {
	db *buntdb.DB
}

// OpenBunt opens (or creates) the database at path. Use ":memory:" for a
// database that is never written to disk.
func OpenBunt(path string) (*BuntRepository, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("problem opening buntdb %s: %v", path, err)
	}
	return &BuntRepository{db: db}, nil
}

var _ Repository = (*BuntRepository)(nil)

func buntAccountKey(id string) string {
	return fmt.Sprintf("account:%s", id)
}

func buntEmailKey(email string) string {
	return fmt.Sprintf("account-email:%s", email)
}

func (r *BuntRepository) Create(_ context.Context, a *Account) error {
	bs, err := json.Marshal(a)
	if err != nil {
		return err
	}
	err = r.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Get(buntEmailKey(a.Email))
		if err == nil {
			return ErrAccountExists
		}
		if !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		if _, _, err := tx.Set(buntAccountKey(a.ID), string(bs), nil); err != nil {
			return err
		}
		_, _, err = tx.Set(buntEmailKey(a.Email), a.ID, nil)
		return err
	})
	if errors.Is(err, ErrAccountExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("problem creating account %s: %v", a.ID, err)
	}
	return nil
}

func (r *BuntRepository) LookupByEmail(_ context.Context, email string) (*Account, error) {
	var a Account
	err := r.db.View(func(tx *buntdb.Tx) error {
		id, err := tx.Get(buntEmailKey(email))
		if err != nil {
			return err
		}
		v, err := tx.Get(buntAccountKey(id))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(v), &a)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("problem reading account: %v", err)
	}
	return &a, nil
}

// Ping fails once the database has been closed.
func (r *BuntRepository) Ping(_ context.Context) error {
	return r.db.View(func(tx *buntdb.Tx) error {
		return nil
	})
}

func (r *BuntRepository) Close() error {
	return r.db.Close()
}
