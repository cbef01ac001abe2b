// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/auth/admin"
	"github.com/moov-io/auth/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/gorilla/mux"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	// Metrics
	authSuccesses = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_successes",
		Help: "Count of successful authorizations",
	}, []string{"method"})
	authFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_failures",
		Help: "Count of failed authorizations",
	}, []string{"method"})

	tokenGenerations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_token_generations",
		Help: "Count of auth tokens created",
	}, []string{"method"})

	signups = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_signups",
		Help: "Count of signup attempts by result",
	}, []string{"result"})

	internalServerErrors = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "internal_server_errors",
		Help: "Count of how many 500 errors we've served",
	}, nil)
)

const Version = "0.2.0-dev"

func main() {
	// Setup logging, default to stderr
	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	logger.Log("startup", fmt.Sprintf("Starting auth server version %s", Version))

	if err := loadDotEnv(".env"); err != nil {
		logger.Log("config", err)
		os.Exit(1)
	}
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		logger.Log("config", err)
		os.Exit(1)
	}

	if err := run(logger, cfg); err != nil {
		logger.Log("exit", err)
		os.Exit(1)
	}
}

// run opens the account store, serves until a signal or server error
// arrives and then shuts everything down in reverse order.
func run(logger log.Logger, cfg *config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := openAccountStore(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Log("store", fmt.Sprintf("problem closing: %v", err))
		}
	}()
	if r, ok := repo.(*accounts.RedisRepository); ok {
		go promMetricCollector{interval: 10 * time.Second}.run(ctx, r)
	}

	svc, err := newAuthService(logger, repo, bcryptHasher{cost: cfg.BcryptCost}, newTokenSigner([]byte(cfg.SigningKey), cfg.TokenTTL))
	if err != nil {
		return err
	}
	if cfg.LoginErrors == loginErrorsDistinct {
		logger.Log("config", "LOGIN_ERRORS=distinct, login replies reveal whether an email is registered")
	}

	// Listen for application termination.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// errs only carries server failures, they make run return an error.
	errs := make(chan error, 1)

	readTimeout, _ := time.ParseDuration("30s")
	writTimeout, _ := time.ParseDuration("30s")
	idleTimeout, _ := time.ParseDuration("60s")

	serve := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: setupRouter(logger, svc, cfg),
		TLSConfig: &tls.Config{
			InsecureSkipVerify:       false,
			PreferServerCipherSuites: true,
			MinVersion:               tls.VersionTLS12,
		},
		ReadTimeout:  readTimeout,
		WriteTimeout: writTimeout,
		IdleTimeout:  idleTimeout,
	}

	if err := admin.Init(logger); err != nil {
		return err
	}
	adminServer := admin.SetupServer(cfg.AdminAddr)
	adminServer.AddLivenessCheck("accounts", repo.Ping)
	go func() {
		logger.Log("admin", fmt.Sprintf("Starting admin service on %s", adminServer.BindAddress()))
		if err := adminServer.Listen(); err != nil {
			logger.Log("admin", "shutting down", "error", err)
		}
	}()

	go func() {
		logger.Log("transport", "HTTP", "addr", cfg.HTTPAddr)
		if err := serve.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	var runErr error
	select {
	case sig := <-sigs:
		logger.Log("shutdown", sig.String())
	case runErr = <-errs:
		logger.Log("shutdown", runErr)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := serve.Shutdown(shutdownCtx); err != nil {
		logger.Log("shutdown", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Log("admin", err)
	}
	return runErr
}

// setupRouter builds the public handler: the two API routes wrapped with
// CORS, request logging and panic recovery.
func setupRouter(logger log.Logger, svc *authService, cfg *config) http.Handler {
	router := mux.NewRouter()
	addSignupRoutes(router, logger, svc)
	addLoginRoutes(router, logger, svc, cfg.LoginErrors)

	var handler http.Handler = router
	handler = recoverPanics(logger, handler)
	handler = allowCORS(cfg.CORSOrigins, handler)
	return logRequests(logger, handler)
}
