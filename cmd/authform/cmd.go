// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/moov-io/auth/pkg/authform"

	"github.com/go-kit/kit/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultServer = "http://localhost:8080"

// errFailed is returned after the form's message has already been printed.
var errFailed = errors.New("authform: request failed")

var (
	// test seams
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

type options struct {
	server  string
	timeout time.Duration
}

func newRootCmd(logger log.Logger) *cobra.Command {
	opts := &options{
		server:  defaultServer,
		timeout: 30 * time.Second,
	}
	if v := os.Getenv("AUTHFORM_SERVER"); v != "" {
		opts.server = v
	}

	rootCmd := &cobra.Command{
		Use:   "authform",
		Short: "Sign up and log in against an auth server",
		Long: `authform submits an email and password to the auth server's
/api/signup or /api/login endpoint. Input is validated locally first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", opts.server, "Auth server URL (env: AUTHFORM_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "HTTP request timeout")

	rootCmd.AddCommand(newSubmitCmd(opts, logger, "signup", "Create an account"))
	rootCmd.AddCommand(newSubmitCmd(opts, logger, "login", "Log in and print a token"))

	return rootCmd
}

func newSubmitCmd(opts *options, logger log.Logger, name, short string) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" && !cmd.Flags().Changed("password") {
				pw, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = pw
			}

			client := authform.NewClient(opts.server, &http.Client{Timeout: opts.timeout})
			form := authform.New(client, logger)
			form.SetEmail(email)
			form.SetPassword(password)

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			if name == "signup" {
				if err := form.Signup(ctx); err != nil {
					return printFailure(cmd, form)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signup Success!")
				return nil
			}

			token, err := form.Login(ctx)
			if err != nil {
				return printFailure(cmd, form)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Login Success!")
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted for when omitted)")

	return cmd
}

// promptPassword reads a password without echo when stdin is a terminal.
// Otherwise it returns an empty password and validation reports it.
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := readPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func printFailure(cmd *cobra.Command, form *authform.Form) error {
	fmt.Fprintln(cmd.ErrOrStderr(), form.State().ErrorMessage)
	return errFailed
}
