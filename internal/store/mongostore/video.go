package mongostore

import (
	"context"
	"time"

	"github.com/clipshare/apiserver/internal/store"
	"github.com/clipshare/apiserver/types"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// VideoRepository handles persistence for video metadata.
type VideoRepository struct {
	db *Database
}

func NewVideoRepository(db *Database) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) List(ctx context.Context, offset, limit int) ([]types.Video, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	coll, err := r.db.collection(ctx, videosCollection)
	if err != nil {
		return nil, 0, err
	}

	total, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}

	videos := make([]types.Video, 0, limit)
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, 0, err
	}
	return videos, int(total), nil
}

func (r *VideoRepository) Get(ctx context.Context, id string) (types.Video, error) {
	coll, err := r.db.collection(ctx, videosCollection)
	if err != nil {
		return types.Video{}, err
	}

	var video types.Video
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&video); err != nil {
		return types.Video{}, mapError(err)
	}
	return video, nil
}

func (r *VideoRepository) Create(ctx context.Context, video types.Video) (types.Video, error) {
	coll, err := r.db.collection(ctx, videosCollection)
	if err != nil {
		return types.Video{}, err
	}

	now := time.Now().UTC()
	video.ID = uuid.NewString()
	video.CreatedAt = now
	video.UpdatedAt = now

	if _, err := coll.InsertOne(ctx, video); err != nil {
		return types.Video{}, mapError(err)
	}
	return video, nil
}

// Update overwrites the editable fields and returns the stored document.
func (r *VideoRepository) Update(ctx context.Context, video types.Video) (types.Video, error) {
	coll, err := r.db.collection(ctx, videosCollection)
	if err != nil {
		return types.Video{}, err
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: video.Title},
		{Key: "description", Value: video.Description},
		{Key: "video_url", Value: video.VideoURL},
		{Key: "thumbnail_url", Value: video.ThumbnailURL},
		{Key: "controls", Value: video.Controls},
		{Key: "transformation", Value: video.Transformation},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated types.Video
	if err := coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: video.ID}}, update, opts).Decode(&updated); err != nil {
		return types.Video{}, mapError(err)
	}
	return updated, nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	coll, err := r.db.collection(ctx, videosCollection)
	if err != nil {
		return err
	}

	result, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
