// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupServer creates the admin HTTP server bound to addr.
// Call Listen to start serving.
func SetupServer(addr string) *Server {
	timeout, _ := time.ParseDuration("45s")
	s := &Server{
		checks: make(map[string]LivenessCheck),
	}
	s.svc = &http.Server{
		Addr:         addr,
		Handler:      s.handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  timeout,
	}
	return s
}

// LivenessCheck returns a non-nil error when the dependency it covers
// is unhealthy.
type LivenessCheck func(ctx context.Context) error

// Server represents a holder around a net/http Server which
// is used for admin endpoints. (i.e. metrics, healthcheck)
type Server struct {
	svc *http.Server

	mu     sync.RWMutex
	checks map[string]LivenessCheck
}

func (s *Server) BindAddress() string {
	return s.svc.Addr
}

// AddLivenessCheck registers f under name. GET /live runs every check.
func (s *Server) AddLivenessCheck(name string, f LivenessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = f
}

// Listen brings up the admin HTTP service. This call blocks.
func (s *Server) Listen() error {
	if s == nil || s.svc == nil {
		return nil
	}
	err := s.svc.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown unbinds the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.svc == nil {
		return nil
	}
	return s.svc.Shutdown(ctx)
}

func (s *Server) handler() http.Handler {
	r := mux.NewRouter()

	// prometheus metrics
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	r.Methods("GET").Path("/live").HandlerFunc(s.liveHandler)

	// add all pprof handlers we've configured
	r.HandleFunc("/debug/pprof/", pprof.Index)
	for k, add := range pprofHandlers {
		if !pprofProfileEnabled(k, add) {
			continue
		}
		path := fmt.Sprintf("/debug/pprof/%s", k)
		switch k {
		// not runtime profiles, pprof.Handler can't serve these
		case "cmdline":
			r.HandleFunc(path, pprof.Cmdline)
		case "profile":
			r.HandleFunc(path, pprof.Profile)
		case "trace":
			r.HandleFunc(path, pprof.Trace)
		default:
			r.Handle(path, pprof.Handler(k))
		}
	}

	return r
}

// liveHandler runs every liveness check and replies 200 when all pass,
// otherwise 400 with the failing check names and their errors.
func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]LivenessCheck, len(names))
	for i := range names {
		checks[i] = s.checks[names[i]]
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for i := range checks {
		if err := checks[i](ctx); err != nil {
			failures[names[i]] = err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if len(failures) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(failures)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("{}\n"))
}
