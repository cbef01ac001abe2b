// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "auth"

// RedisRepository keeps accounts as JSON strings in Redis.
//
// The email index key is claimed with SETNX before the account document is
// written, which makes the uniqueness check and insert a single atomic step.
type RedisRepository struct {
	client *redis.Client
}

// OpenRedis connects to the server at url (redis://host:port/db) and
// verifies the connection.
func OpenRedis(ctx context.Context, url string) (*RedisRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("problem parsing redis url: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("problem connecting to redis: %v", err)
	}
	return &RedisRepository{client: client}, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

var _ Repository = (*RedisRepository)(nil)

func redisAccountKey(id string) string {
	return fmt.Sprintf("%s:account:%s", redisKeyPrefix, id)
}

func redisEmailKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", redisKeyPrefix, email)
}

func (r *RedisRepository) Create(ctx context.Context, a *Account) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	claimed, err := r.client.SetNX(ctx, redisEmailKey(a.Email), a.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("problem claiming email: %v", err)
	}
	if !claimed {
		return ErrAccountExists
	}

	if err := r.client.Set(ctx, redisAccountKey(a.ID), data, 0).Err(); err != nil {
		// release the email so the address isn't locked by a half written account
		r.client.Del(ctx, redisEmailKey(a.Email))
		return fmt.Errorf("problem creating account %s: %v", a.ID, err)
	}
	return nil
}

func (r *RedisRepository) LookupByEmail(ctx context.Context, email string) (*Account, error) {
	id, err := r.client.Get(ctx, redisEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	data, err := r.client.Get(ctx, redisAccountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	var a Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("problem decoding account %s: %v", id, err)
	}
	return &a, nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// PoolStats exposes the connection pool counters for metrics.
func (r *RedisRepository) PoolStats() *redis.PoolStats {
	return r.client.PoolStats()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
