// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/auth/pkg/accounts"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	stdprom "github.com/prometheus/client_golang/prometheus"
)

var (
	// Metrics
	redisConnections = kitprom.NewGaugeFrom(stdprom.GaugeOpts{
		Name: "redis_connections",
		Help: "How many redis connections and what status they're in.",
	}, []string{"state"})

	errEscapingPath = errors.New("database path can't contain ..")
)

// openAccountStore picks a backend from the scheme of databaseURL and
// opens it. Callers must Close the returned store.
func openAccountStore(ctx context.Context, logger log.Logger, databaseURL string) (accounts.Repository, error) {
	switch {
	case strings.HasPrefix(databaseURL, "redis://"), strings.HasPrefix(databaseURL, "rediss://"):
		logger.Log("store", "connecting to redis")
		repo, err := accounts.OpenRedis(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil

	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		logger.Log("store", "connecting to mongodb")
		repo, err := accounts.OpenMongo(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil

	default:
		path, err := getBuntPath(databaseURL)
		if err != nil {
			return nil, err
		}
		logger.Log("store", fmt.Sprintf("opening buntdb %s", path))
		repo, err := accounts.OpenBunt(path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

// getBuntPath validates a BuntDB file path.
// Don't filepath.Abs to avoid full-fs reads.
func getBuntPath(raw string) (string, error) {
	path := strings.TrimPrefix(raw, "buntdb://")
	if path == "" {
		return "", fmt.Errorf("%w: DATABASE_URL", errMissingConfig)
	}
	if strings.Contains(path, "..") {
		return "", errEscapingPath
	}
	return path, nil
}

type promMetricCollector struct {
	interval time.Duration
}

// run samples the redis pool into redisConnections until ctx is done.
func (p promMetricCollector) run(ctx context.Context, repo *accounts.RedisRepository) {
	if repo == nil {
		return
	}

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		p.sample(repo)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (promMetricCollector) sample(repo *accounts.RedisRepository) {
	stats := repo.PoolStats()
	redisConnections.With("state", "idle").Set(float64(stats.IdleConns))
	redisConnections.With("state", "total").Set(float64(stats.TotalConns))
	redisConnections.With("state", "stale").Set(float64(stats.StaleConns))
}
