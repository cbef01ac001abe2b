// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package authform is the client side of signup and login: input
// validation, an HTTP client for the auth API and a Form which tracks
// in-flight submissions and the message shown to the user.
package authform

import (
	"regexp"
	"unicode/utf8"
)

const (
	MsgAllFieldsRequired = "All fields are required."
	MsgInvalidEmail      = "Please enter a valid email."
	MsgPasswordTooShort  = "Password must be at least 6 characters."

	MinPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidationError is returned by Validate. Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks email and password before anything is sent. Rules are
// applied in order and the first failure wins.
func Validate(email, password string) error {
	if email == "" || password == "" {
		return &ValidationError{Message: MsgAllFieldsRequired}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Message: MsgInvalidEmail}
	}
	// length is in characters, not bytes
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Message: MsgPasswordTooShort}
	}
	return nil
}
