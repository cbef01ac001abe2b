// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testEnv(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func minimalEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":      ":memory:",
		"TOKEN_SIGNING_KEY": string(testSigningKey),
	}
}

func loadTestConfig(t *testing.T, vars map[string]string, args ...string) (*config, error) {
	t.Helper()
	fs := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	return loadConfig(fs, args, testEnv(vars))
}

func TestConfig__defaults(t *testing.T) {
	cfg, err := loadTestConfig(t, minimalEnv())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.AdminAddr)
	assert.Equal(t, ":memory:", cfg.DatabaseURL)
	assert.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
	assert.Equal(t, loginErrorsUniform, cfg.LoginErrors)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestConfig__overrides(t *testing.T) {
	env := minimalEnv()
	env["BCRYPT_COST"] = "4"
	env["TOKEN_TTL"] = "24h"
	env["LOGIN_ERRORS"] = "Distinct"
	env["CORS_ALLOWED_ORIGINS"] = "https://app.moov.io, http://localhost:3000 ,"

	cfg, err := loadTestConfig(t, env, "-http.addr", ":8181", "-admin.addr", "127.0.0.1:9191")
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.HTTPAddr)
	assert.Equal(t, "127.0.0.1:9191", cfg.AdminAddr)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, loginErrorsDistinct, cfg.LoginErrors)
	assert.Equal(t, []string{"https://app.moov.io", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestConfig__required(t *testing.T) {
	env := minimalEnv()
	delete(env, "DATABASE_URL")
	_, err := loadTestConfig(t, env)
	assert.ErrorIs(t, err, errMissingConfig)

	env = minimalEnv()
	delete(env, "TOKEN_SIGNING_KEY")
	_, err = loadTestConfig(t, env)
	assert.ErrorIs(t, err, errMissingConfig)

	env = minimalEnv()
	env["DATABASE_URL"] = "   "
	_, err = loadTestConfig(t, env)
	assert.ErrorIs(t, err, errMissingConfig)
}

func TestConfig__invalid(t *testing.T) {
	cases := map[string]string{
		"TOKEN_SIGNING_KEY":    "short",
		"BCRYPT_COST":          "99",
		"TOKEN_TTL":            "-1h",
		"LOGIN_ERRORS":         "verbose",
		"CORS_ALLOWED_ORIGINS": " , ",
	}
	for k, v := range cases {
		env := minimalEnv()
		env[k] = v
		_, err := loadTestConfig(t, env)
		assert.Error(t, err, "%s=%s", k, v)
	}

	for _, k := range []string{"BCRYPT_COST", "TOKEN_TTL"} {
		env := minimalEnv()
		env[k] = "abc"
		_, err := loadTestConfig(t, env)
		assert.Error(t, err, "%s=abc", k)
	}
}

func TestConfig__badFlag(t *testing.T) {
	_, err := loadTestConfig(t, minimalEnv(), "-unknown")
	assert.Error(t, err)
}

func TestConfig__dotEnv(t *testing.T) {
	// missing file is fine
	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, ioutil.WriteFile(path, []byte("AUTH_TEST_DOTENV=from-file\n"), 0600))

	t.Setenv("AUTH_TEST_DOTENV", "")
	os.Unsetenv("AUTH_TEST_DOTENV")
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("AUTH_TEST_DOTENV"))

	// variables already set win over the file
	t.Setenv("AUTH_TEST_DOTENV", "from-env")
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("AUTH_TEST_DOTENV"))
}
