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

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Message string `json:"message"`
}

func addSignupRoutes(router *mux.Router, logger log.Logger, svc *authService) {
	router.Methods("POST").Path("/api/signup").HandlerFunc(signupRoute(logger, svc))
}

func signupRoute(logger log.Logger, svc *authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var signup signupRequest
		if err := readJSON(r, &signup); err != nil {
			signups.With("result", "invalid").Add(1)
			encodeError(w, http.StatusBadRequest, err)
			return
		}

		acct, err := svc.register(r.Context(), signup.Email, signup.Password)
		switch {
		case err == nil:
		case errors.Is(err, errMissingCredentials):
			signups.With("result", "invalid").Add(1)
			encodeError(w, http.StatusBadRequest, err)
			return
		case errors.Is(err, errEmailTaken):
			signups.With("result", "conflict").Add(1)
			logger.Log("signup", fmt.Sprintf("duplicate email=%s", maskEmail(signup.Email)))
			encodeError(w, http.StatusConflict, err)
			return
		default:
			internalError(logger, w, err, "signup")
			return
		}

		signups.With("result", "created").Add(1)
		logger.Log("signup", "created account", "userId", acct.ID)
		encodeJSON(w, http.StatusOK, signupResponse{
			Message: "User created successfully!",
		})
	}
}
