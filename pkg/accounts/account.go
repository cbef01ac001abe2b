// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package accounts stores one Account per email address.
//
// Three backends implement Repository: BuntDB (embedded, the default),
// Redis and MongoDB. Each one inserts atomically on the normalized email
// so two registrations for the same address can never both succeed.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// Account is the only persisted entity. PasswordHash is a bcrypt hash,
// the plaintext password is never stored.
type Account struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"passwordHash" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Repository is implemented by each account backend.
type Repository interface {
	// Create inserts a new account. ErrAccountExists is returned if another
	// account already uses a.Email.
	Create(ctx context.Context, a *Account) error

	// LookupByEmail finds the account for email, which callers should
	// pass through NormalizeEmail first. ErrAccountNotFound is returned
	// when nothing matches.
	LookupByEmail(ctx context.Context, email string) (*Account, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// NormalizeEmail returns the form of email that accounts are keyed on:
// surrounding whitespace removed and lower-cased.
//
// Unlike provider specific cleanup (dropping dots or +tags) this never
// merges two distinct mailboxes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewID creates a new ID for an account. Do not assume anything about
// these IDs other than they are strings.
func NewID() string {
	return uuid.NewString()
}
