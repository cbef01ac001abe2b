// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin__live(t *testing.T) {
	svc := SetupServer(":0")
	require.Equal(t, ":0", svc.BindAddress())

	// no checks registered
	w := httptest.NewRecorder()
	svc.svc.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AddLivenessCheck("ok", func(context.Context) error { return nil })
	svc.AddLivenessCheck("accounts", func(context.Context) error { return errors.New("connection refused") })

	w = httptest.NewRecorder()
	svc.svc.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"accounts":"connection refused"}`, w.Body.String())
}

func TestAdmin__metrics(t *testing.T) {
	svc := SetupServer(":0")

	w := httptest.NewRecorder()
	svc.svc.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAdmin__pprof(t *testing.T) {
	t.Setenv("PPROF_TRACE", "yes")
	t.Setenv("PPROF_HEAP", "NO")

	assert.True(t, pprofProfileEnabled("trace", false))
	assert.False(t, pprofProfileEnabled("heap", true))
	assert.True(t, pprofProfileEnabled("goroutine", true))
	assert.False(t, pprofProfileEnabled("threadcreate", false))

	profiles := enabledProfiles()
	assert.Contains(t, profiles, "trace")
	assert.NotContains(t, profiles, "heap")

	require.NoError(t, Init(log.NewNopLogger()))
}

func TestAdmin__pprofRoutes(t *testing.T) {
	t.Setenv("PPROF_TRACE", "yes")
	svc := SetupServer(":0")

	for _, path := range []string{
		"/debug/pprof/cmdline",
		"/debug/pprof/profile?seconds=1",
		"/debug/pprof/trace?seconds=1",
		"/debug/pprof/goroutine",
		"/debug/pprof/heap",
	} {
		w := httptest.NewRecorder()
		svc.svc.Handler.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotContains(t, w.Body.String(), "Unknown profile", path)
	}

	// disabled by default
	t.Setenv("PPROF_TRACE", "")
	w := httptest.NewRecorder()
	SetupServer(":0").svc.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/debug/pprof/trace", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin__nilServer(t *testing.T) {
	var s *Server
	assert.NoError(t, s.Listen())
	assert.NoError(t, s.Shutdown(context.Background()))
}
