package mongostore

import (
	"context"
	"time"

	"github.com/clipshare/apiserver/types"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *Database
}

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	coll, err := r.db.collection(ctx, usersCollection)
	if err != nil {
		return types.User{}, err
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := coll.InsertOne(ctx, user); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (types.User, error) {
	coll, err := r.db.collection(ctx, usersCollection)
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	if err := coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}
