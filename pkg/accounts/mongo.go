// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	DefaultMongoDatabase   = "glass-auth"
	DefaultMongoCollection = "users"
)

// MongoRepository keeps accounts as documents in a MongoDB collection.
// A unique index on "email" rejects duplicate inserts server side.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongo connects to uri and makes sure the unique email index exists.
// The database is taken from the uri path, DefaultMongoDatabase otherwise.
func OpenMongo(ctx context.Context, uri string) (*MongoRepository, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("problem connecting to mongodb: %v", err)
	}
	repo := &MongoRepository{
		client:     client,
		collection: client.Database(mongoDatabaseName(uri)).Collection(DefaultMongoCollection),
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func mongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultMongoDatabase
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("problem creating email index: %v", err)
	}
	return nil
}

var _ Repository = (*MongoRepository)(nil)

func (r *MongoRepository) Create(ctx context.Context, a *Account) error {
	_, err := r.collection.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("problem creating account %s: %v", a.ID, err)
	}
	return nil
}

func (r *MongoRepository) LookupByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := r.collection.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("problem reading account: %v", err)
	}
	return &a, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}
