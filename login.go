// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

var (
	// errLoginFailed is the only failure reply in uniform mode.
	errLoginFailed = errors.New("invalid email or password")

	errLegacyUserNotFound    = errors.New("User not found")
	errLegacyInvalidPassword = errors.New("Invalid password")
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func addLoginRoutes(router *mux.Router, logger log.Logger, svc *authService, loginErrors string) {
	router.Methods("POST").Path("/api/login").HandlerFunc(loginRoute(logger, svc, loginErrors))
}

func loginRoute(logger log.Logger, svc *authService, loginErrors string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// read request body
		var login loginRequest
		if err := readJSON(r, &login); err != nil {
			encodeError(w, http.StatusBadRequest, err)
			return
		}

		token, acct, err := svc.authenticate(r.Context(), login.Email, login.Password)
		if err != nil {
			switch {
			case errors.Is(err, errMissingCredentials):
				encodeError(w, http.StatusBadRequest, err)

			case errors.Is(err, errAuthenticationFailed):
				// Mark this as a failure only because the user is involved
				// at this point. Otherwise it's their developer's problem
				// (i.e. bad json).
				authFailures.With("method", "web").Add(1)
				logger.Log("login", fmt.Sprintf("email=%s failed: %v", maskEmail(login.Email), err))
				status, reply := loginFailure(loginErrors, err)
				encodeError(w, status, reply)

			default:
				internalError(logger, w, err, "login")
			}
			return
		}

		// success route, let's finish!
		authSuccesses.With("method", "web").Add(1)
		tokenGenerations.With("method", "web").Add(1)
		logger.Log("login", "issued token", "userId", acct.ID)

		if err := encodeJSON(w, http.StatusOK, loginResponse{Token: token}); err != nil {
			logger.Log("login", fmt.Sprintf("problem writing response: %v", err))
		}
	}
}

// loginFailure picks the status and message for a failed login.
//
// In uniform mode the reply doesn't reveal whether the email has an
// account. Distinct mode keeps the legacy 404 / 403 split.
func loginFailure(mode string, err error) (int, error) {
	if mode == loginErrorsDistinct {
		if errors.Is(err, errUserNotFound) {
			return http.StatusNotFound, errLegacyUserNotFound
		}
		return http.StatusForbidden, errLegacyInvalidPassword
	}
	return http.StatusForbidden, errLoginFailed
}
