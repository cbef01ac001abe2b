// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid token")

// tokenClaims are the claims of a login token. Only the account's ID is
// carried, there are no roles or scopes.
type tokenClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// tokenSigner issues HS256 tokens with a static key.
//
// Tokens only expire when ttl is positive. There is no revocation.
type tokenSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func newTokenSigner(key []byte, ttl time.Duration) *tokenSigner {
	return &tokenSigner{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

func (t *tokenSigner) sign(userID string) (string, error) {
	now := t.now()
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// parse verifies a token and returns its claims. No route checks tokens,
// this is the reference verification for services trusting the key and
// for tests.
func (t *tokenSigner) parse(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}
