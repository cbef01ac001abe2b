// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// authform is a terminal front end for the auth server's signup and
// login endpoints.
package main

import (
	"os"

	"github.com/go-kit/kit/log"
)

func main() {
	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
