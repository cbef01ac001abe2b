// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package authform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/kit/log"
)

const (
	MsgSignupFailed = "Signup failed, please try again."
	MsgLoginFailed  = "Login failed, please try again."
)

// ErrInFlight is returned when a submission of the same kind hasn't
// finished yet.
var ErrInFlight = errors.New("submission already in progress")

// SubmitError is returned when the server call fails. Error() is the
// generic message shown to the user, Unwrap gives the cause.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return e.Message
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// API is what a Form submits to. *Client implements it.
type API interface {
	Signup(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// State is a snapshot of a Form for rendering.
type State struct {
	SignupInFlight bool
	LoginInFlight  bool
	ErrorMessage   string
}

// Form holds the email and password fields of a signup/login screen.
//
// Signup and Login each have their own in-flight flag. The error message
// is shared, so the last failure of either wins. A Form is safe for
// concurrent use.
type Form struct {
	api    API
	logger log.Logger

	mu             sync.Mutex
	email          string
	password       string
	signupInFlight bool
	loginInFlight  bool
	errorMessage   string
}

func New(api API, logger log.Logger) *Form {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Form{
		api:    api,
		logger: logger,
	}
}

func (f *Form) SetEmail(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email = email
}

func (f *Form) SetPassword(password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = password
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		SignupInFlight: f.signupInFlight,
		LoginInFlight:  f.loginInFlight,
		ErrorMessage:   f.errorMessage,
	}
}

// Signup validates the fields and registers them with the server.
func (f *Form) Signup(ctx context.Context) error {
	email, password, err := f.begin(&f.signupInFlight)
	if err != nil {
		return err
	}
	defer f.finish(&f.signupInFlight)

	if _, err := f.api.Signup(ctx, email, password); err != nil {
		return f.fail("signup-error", MsgSignupFailed, err)
	}
	return nil
}

// Login validates the fields and returns the token issued by the server.
func (f *Form) Login(ctx context.Context) (string, error) {
	email, password, err := f.begin(&f.loginInFlight)
	if err != nil {
		return "", err
	}
	defer f.finish(&f.loginInFlight)

	token, err := f.api.Login(ctx, email, password)
	if err != nil {
		return "", f.fail("login-error", MsgLoginFailed, err)
	}
	return token, nil
}

// begin validates the fields and marks the flow as in flight. On a
// validation failure the message is recorded and nothing is marked.
func (f *Form) begin(inFlight *bool) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if *inFlight {
		return "", "", ErrInFlight
	}
	if err := Validate(f.email, f.password); err != nil {
		f.errorMessage = err.Error()
		return "", "", err
	}
	*inFlight = true
	f.errorMessage = ""
	return f.email, f.password, nil
}

func (f *Form) finish(inFlight *bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*inFlight = false
}

func (f *Form) fail(key, message string, cause error) error {
	f.logger.Log(key, fmt.Sprintf("%v", cause))

	f.mu.Lock()
	f.errorMessage = message
	f.mu.Unlock()

	return &SubmitError{Message: message, Err: cause}
}
