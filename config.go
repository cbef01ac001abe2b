// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginErrorsUniform  = "uniform"
	loginErrorsDistinct = "distinct"

	minSigningKeyLength = 16
)

// config holds everything main needs to start the servers.
//
// Values come from (lowest to highest priority) a .env file, the
// environment and then command line flags.
type config struct {
	HTTPAddr  string
	AdminAddr string

	// DatabaseURL selects the account store:
	//   redis://...                    Redis
	//   mongodb://... mongodb+srv://... MongoDB
	//   :memory: or a file path        BuntDB
	DatabaseURL string

	SigningKey string
	TokenTTL   time.Duration
	BcryptCost int

	// LoginErrors is "uniform" (unknown email and wrong password look the
	// same) or "distinct" (404 vs 403, the legacy behavior).
	LoginErrors string

	CORSOrigins []string
}

var errMissingConfig = errors.New("missing required config")

// loadDotEnv reads a .env file into the environment if one exists.
// Variables already set are never overwritten.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// loadConfig reads env vars through getenv and then parses args with fs.
func loadConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (*config, error) {
	cfg := &config{
		DatabaseURL: strings.TrimSpace(getenv("DATABASE_URL")),
		SigningKey:  getenv("TOKEN_SIGNING_KEY"),
		BcryptCost:  bcrypt.DefaultCost,
		LoginErrors: loginErrorsUniform,
		CORSOrigins: []string{"*"},
	}

	if v := getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q: %v", v, err)
		}
		cfg.BcryptCost = n
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q: %v", v, err)
		}
		cfg.TokenTTL = d
	}
	if v := getenv("LOGIN_ERRORS"); v != "" {
		cfg.LoginErrors = strings.ToLower(v)
	}
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	fs.StringVar(&cfg.HTTPAddr, "http.addr", ":8080", "HTTP listen address")
	fs.StringVar(&cfg.AdminAddr, "admin.addr", ":9090", "Admin HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL", errMissingConfig)
	}
	if c.SigningKey == "" {
		return fmt.Errorf("%w: TOKEN_SIGNING_KEY", errMissingConfig)
	}
	if len(c.SigningKey) < minSigningKeyLength {
		return fmt.Errorf("TOKEN_SIGNING_KEY must be at least %d bytes", minSigningKeyLength)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.TokenTTL < 0 {
		return errors.New("TOKEN_TTL can't be negative")
	}
	switch c.LoginErrors {
	case loginErrorsUniform, loginErrorsDistinct:
	default:
		return fmt.Errorf("unknown LOGIN_ERRORS %q", c.LoginErrors)
	}
	if len(c.CORSOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS is empty")
	}
	return nil
}
