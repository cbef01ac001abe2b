// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/moov-io/auth/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSigningKey = []byte("test-signing-key-0123456789")

func newTestService(t *testing.T) (*authService, accounts.Repository) {
	t.Helper()

	repo, err := accounts.OpenBunt(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	svc, err := newAuthService(log.NewNopLogger(), repo, bcryptHasher{cost: bcrypt.MinCost}, newTokenSigner(testSigningKey, 0))
	require.NoError(t, err)
	return svc, repo
}

// brokenRepository fails every call.
type brokenRepository struct {
	err error
}

func (r brokenRepository) Create(context.Context, *accounts.Account) error { return r.err }
func (r brokenRepository) LookupByEmail(context.Context, string) (*accounts.Account, error) {
	return nil, r.err
}
func (r brokenRepository) Ping(context.Context) error { return r.err }
func (r brokenRepository) Close() error               { return nil }

func TestAuth__registerThenAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	acct, err := svc.register(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, acct.ID)

	token, found, err := svc.authenticate(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, acct.ID, found.ID)

	claims, err := svc.tokens.parse(token)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, claims.UserID)
}

func TestAuth__unknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.authenticate(context.Background(), "x@y.com", "secret1")
	require.ErrorIs(t, err, errUserNotFound)
	assert.ErrorIs(t, err, errAuthenticationFailed)
}

func TestAuth__wrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.register(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	_, _, err = svc.authenticate(ctx, "a@b.com", "wrong")
	require.ErrorIs(t, err, errInvalidPassword)
	assert.ErrorIs(t, err, errAuthenticationFailed)
	assert.False(t, errors.Is(err, errUserNotFound))
}

func TestAuth__hashIsNotPlaintext(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	passwords := []string{"secret1", "a", "correct horse battery staple"}
	for i, pass := range passwords {
		email := string(rune('a'+i)) + "@moov.io"
		_, err := svc.register(ctx, email, pass)
		require.NoError(t, err)

		acct, err := repo.LookupByEmail(ctx, email)
		require.NoError(t, err)
		assert.NotEqual(t, pass, acct.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(pass)))
	}
}

func TestAuth__saltedHashes(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.register(ctx, "one@moov.io", "secret1")
	require.NoError(t, err)
	_, err = svc.register(ctx, "two@moov.io", "secret1")
	require.NoError(t, err)

	one, _ := repo.LookupByEmail(ctx, "one@moov.io")
	two, _ := repo.LookupByEmail(ctx, "two@moov.io")
	assert.NotEqual(t, one.PasswordHash, two.PasswordHash)
}

func TestAuth__duplicateRegistration(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.register(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	_, err = svc.register(ctx, "A@B.com ", "another1")
	require.ErrorIs(t, err, errEmailTaken)

	// the first password still works, the second was never stored
	_, acct, err := svc.authenticate(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, acct.ID)

	_, _, err = svc.authenticate(ctx, "a@b.com", "another1")
	assert.ErrorIs(t, err, errInvalidPassword)
}

func TestAuth__longPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	long := strings.Repeat("a", maxBcryptPasswordBytes+1)
	_, err := svc.register(ctx, "long@moov.io", long)
	require.NoError(t, err)

	_, _, err = svc.authenticate(ctx, "long@moov.io", long)
	require.NoError(t, err)

	// only the first 72 bytes count
	_, _, err = svc.authenticate(ctx, "long@moov.io", strings.Repeat("a", 200))
	require.NoError(t, err)
	_, _, err = svc.authenticate(ctx, "long@moov.io", strings.Repeat("a", maxBcryptPasswordBytes-1))
	assert.ErrorIs(t, err, errInvalidPassword)
}

func TestAuth__missingCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		email, pass string
	}{
		{"", "secret1"},
		{"   ", "secret1"},
		{"a@b.com", ""},
	}
	for i := range cases {
		_, err := svc.register(ctx, cases[i].email, cases[i].pass)
		assert.ErrorIs(t, err, errMissingCredentials, "register %#v", cases[i])

		_, _, err = svc.authenticate(ctx, cases[i].email, cases[i].pass)
		assert.ErrorIs(t, err, errMissingCredentials, "authenticate %#v", cases[i])
	}
}

func TestAuth__shortPasswordAccepted(t *testing.T) {
	svc, _ := newTestService(t)

	// length rules are enforced by the client form only
	_, err := svc.register(context.Background(), "short@moov.io", "abc")
	assert.NoError(t, err)
}

func TestAuth__storeErrors(t *testing.T) {
	boom := errors.New("boom")
	svc, err := newAuthService(log.NewNopLogger(), brokenRepository{boom}, bcryptHasher{cost: bcrypt.MinCost}, newTokenSigner(testSigningKey, 0))
	require.NoError(t, err)

	_, err = svc.register(context.Background(), "a@b.com", "secret1")
	assert.ErrorIs(t, err, boom)

	_, _, err = svc.authenticate(context.Background(), "a@b.com", "secret1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, errAuthenticationFailed))
}

func TestAuth__maskEmail(t *testing.T) {
	cases := []struct {
		input, expected string
	}{
		{"john@moov.io", "j***@moov.io"},
		{"a@b.com", "***"},
		{"not-an-email", "***"},
		{"", "***"},
	}
	for i := range cases {
		if res := maskEmail(cases[i].input); res != cases[i].expected {
			t.Errorf("input=%q got %q", cases[i].input, res)
		}
	}
}
