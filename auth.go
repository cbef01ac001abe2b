// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/auth/pkg/accounts"

	"github.com/go-kit/kit/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	errMissingCredentials = errors.New("email and password are required")
	errEmailTaken         = errors.New("email already registered")

	// errAuthenticationFailed is the parent of every login failure.
	// Check it with errors.Is when the exact reason must not leak.
	errAuthenticationFailed = errors.New("authentication failed")
	errUserNotFound         = fmt.Errorf("%w: user not found", errAuthenticationFailed)
	errInvalidPassword      = fmt.Errorf("%w: invalid password", errAuthenticationFailed)
)

// passwordHasher turns a plaintext password into a salted one-way hash
// and checks candidates against it.
type passwordHasher interface {
	hash(pass string) (string, error)

	// compare returns a non-nil error if pass doesn't match hash.
	compare(hash, pass string) error
}

// maxBcryptPasswordBytes is the most bcrypt reads from a password.
const maxBcryptPasswordBytes = 72

// bcryptHasher cuts passwords at maxBcryptPasswordBytes before hashing
// and comparing, so long passwords are accepted rather than rejected.
type bcryptHasher struct {
	cost int
}

func bcryptInput(pass string) []byte {
	bs := []byte(pass)
	if len(bs) > maxBcryptPasswordBytes {
		bs = bs[:maxBcryptPasswordBytes]
	}
	return bs
}

func (h bcryptHasher) hash(pass string) (string, error) {
	bs, err := bcrypt.GenerateFromPassword(bcryptInput(pass), h.cost)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func (h bcryptHasher) compare(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(pass))
}

// authService implements register and authenticate over an account store.
type authService struct {
	accounts accounts.Repository
	hasher   passwordHasher
	tokens   *tokenSigner
	logger   log.Logger

	// dummyHash is compared against when an email isn't found so a login
	// for an unknown account costs the same as a wrong password.
	dummyHash string

	now func() time.Time
}

func newAuthService(logger log.Logger, repo accounts.Repository, hasher passwordHasher, tokens *tokenSigner) (*authService, error) {
	bs := make([]byte, 16)
	if _, err := rand.Read(bs); err != nil {
		return nil, err
	}
	dummy, err := hasher.hash(hex.EncodeToString(bs))
	if err != nil {
		return nil, fmt.Errorf("problem creating dummy hash: %v", err)
	}
	return &authService{
		accounts:  repo,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// register creates an account for email with a hash of pass.
//
// Password strength rules are left to the client, only emptiness is
// checked here.
func (s *authService) register(ctx context.Context, email, pass string) (*accounts.Account, error) {
	email = accounts.NormalizeEmail(email)
	if email == "" || pass == "" {
		return nil, errMissingCredentials
	}

	hash, err := s.hasher.hash(pass)
	if err != nil {
		return nil, fmt.Errorf("problem hashing password: %v", err)
	}

	acct := &accounts.Account{
		ID:           accounts.NewID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, accounts.ErrAccountExists) {
			return nil, errEmailTaken
		}
		return nil, err
	}
	return acct, nil
}

// authenticate checks pass against the account stored for email and
// returns a signed token for it.
//
// Failures are errUserNotFound or errInvalidPassword, both of which wrap
// errAuthenticationFailed.
func (s *authService) authenticate(ctx context.Context, email, pass string) (string, *accounts.Account, error) {
	email = accounts.NormalizeEmail(email)
	if email == "" || pass == "" {
		return "", nil, errMissingCredentials
	}

	acct, err := s.accounts.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			s.hasher.compare(s.dummyHash, pass)
			return "", nil, errUserNotFound
		}
		return "", nil, err
	}

	if err := s.hasher.compare(acct.PasswordHash, pass); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Log("authenticate", fmt.Sprintf("userId=%s hash compare: %v", acct.ID, err))
		}
		return "", nil, errInvalidPassword
	}

	token, err := s.tokens.sign(acct.ID)
	if err != nil {
		return "", nil, fmt.Errorf("problem signing token: %v", err)
	}
	return token, acct, nil
}

// maskEmail keeps enough of an email to correlate log lines.
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
