// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/go-kit/kit/log"
)

// pprofHandlers holds which pprof profiles the admin server exposes.
//
// They only live on the admin server because profiles and dumps can
// contain password hashes and emails, or slow the app down.
//
// Override any of them with PPROF_<NAME>=yes|no.
var pprofHandlers = map[string]bool{
	"allocs":       true,
	"block":        true,
	"cmdline":      true,
	"goroutine":    true,
	"heap":         true,
	"mutex":        true,
	"profile":      true,
	"threadcreate": false,
	"trace":        false,
}

// Init is the entrypoint into the admin package. It configures the
// runtime for block and mutex profiling and logs the enabled profiles.
func Init(logger log.Logger) error {
	if pprofProfileEnabled("block", pprofHandlers["block"]) {
		runtime.SetBlockProfileRate(1)
	}
	if pprofProfileEnabled("mutex", pprofHandlers["mutex"]) {
		runtime.SetMutexProfileFraction(1)
	}
	logger.Log("admin", fmt.Sprintf("pprof profiles: %s", strings.Join(enabledProfiles(), ",")))
	return nil
}

func enabledProfiles() []string {
	var out []string
	for name, zero := range pprofHandlers {
		if pprofProfileEnabled(name, zero) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// pprofProfileEnabled reads PPROF_$NAME. "yes" and "no" (any case) turn
// the profile on or off, anything else returns zero.
func pprofProfileEnabled(name string, zero bool) bool {
	switch strings.ToLower(os.Getenv("PPROF_" + strings.ToUpper(name))) {
	case "yes":
		return true
	case "no":
		return false
	}
	return zero
}
