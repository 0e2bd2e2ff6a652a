// Package mongostore implements the user and video repositories on MongoDB.
package mongostore

import (
	"context"
	"errors"

	"github.com/clipshare/apiserver/internal/db"
	"github.com/clipshare/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection  = "users"
	videosCollection = "videos"
)

// Database resolves collections from a lazily connected client.
type Database struct {
	pool *db.Pool[*mongo.Client]
	name string
}

func NewDatabase(pool *db.Pool[*mongo.Client], name string) *Database {
	return &Database{pool: pool, name: name}
}

func (d *Database) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	client, err := d.pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(d.name).Collection(name), nil
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// email index is what enforces one user per email.
func (d *Database) EnsureIndexes(ctx context.Context) error {
	users, err := d.collection(ctx, usersCollection)
	if err != nil {
		return err
	}
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	}); err != nil {
		return err
	}

	videos, err := d.collection(ctx, videosCollection)
	if err != nil {
		return err
	}
	_, err = videos.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("videos_created_at_idx"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("videos_user_id_idx"),
		},
	})
	return err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}
