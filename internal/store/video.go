package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/clipshare/apiserver/internal/db"
	"github.com/clipshare/apiserver/types"
	"github.com/google/uuid"
)

// VideoRepository handles persistence for video metadata.
type VideoRepository struct {
	pool *db.Pool[*sql.DB]
}

func NewVideoRepository(pool *db.Pool[*sql.DB]) *VideoRepository {
	return &VideoRepository{pool: pool}
}

const videoColumns = `id, user_id, title, description, video_url, thumbnail_url, controls, height, width, quality, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (types.Video, error) {
	var video types.Video
	err := row.Scan(
		&video.ID,
		&video.UserID,
		&video.Title,
		&video.Description,
		&video.VideoURL,
		&video.ThumbnailURL,
		&video.Controls,
		&video.Transformation.Height,
		&video.Transformation.Width,
		&video.Transformation.Quality,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	return video, err
}

// List returns a page of videos, newest first, and the total count.
func (r *VideoRepository) List(ctx context.Context, offset, limit int) ([]types.Video, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	conn, err := r.pool.Get(ctx)
	if err != nil {
		return nil, 0, err
	}

	const countQuery = `SELECT COUNT(1) FROM videos`
	var total int
	if err := conn.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + videoColumns + `
		FROM videos
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`
	rows, err := conn.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	videos := make([]types.Video, 0, limit)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, 0, err
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

func (r *VideoRepository) Get(ctx context.Context, id string) (types.Video, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Video{}, ErrNotFound
	}

	conn, err := r.pool.Get(ctx)
	if err != nil {
		return types.Video{}, err
	}

	const query = `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE id = $1`
	video, err := scanVideo(conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return types.Video{}, mapError(err)
	}
	return video, nil
}

func (r *VideoRepository) Create(ctx context.Context, video types.Video) (types.Video, error) {
	conn, err := r.pool.Get(ctx)
	if err != nil {
		return types.Video{}, err
	}

	now := time.Now().UTC()
	video.ID = uuid.NewString()
	video.CreatedAt = now
	video.UpdatedAt = now

	const query = `
		INSERT INTO videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := conn.ExecContext(
		ctx,
		query,
		video.ID,
		video.UserID,
		video.Title,
		video.Description,
		video.VideoURL,
		video.ThumbnailURL,
		video.Controls,
		video.Transformation.Height,
		video.Transformation.Width,
		video.Transformation.Quality,
		video.CreatedAt,
		video.UpdatedAt,
	); err != nil {
		return types.Video{}, mapError(err)
	}
	return video, nil
}

// Update overwrites the editable fields and returns the stored row.
func (r *VideoRepository) Update(ctx context.Context, video types.Video) (types.Video, error) {
	if _, err := uuid.Parse(video.ID); err != nil {
		return types.Video{}, ErrNotFound
	}

	conn, err := r.pool.Get(ctx)
	if err != nil {
		return types.Video{}, err
	}

	const query = `
		UPDATE videos
		SET title = $1,
			description = $2,
			video_url = $3,
			thumbnail_url = $4,
			controls = $5,
			height = $6,
			width = $7,
			quality = $8,
			updated_at = $9
		WHERE id = $10
		RETURNING ` + videoColumns
	updated, err := scanVideo(conn.QueryRowContext(
		ctx,
		query,
		video.Title,
		video.Description,
		video.VideoURL,
		video.ThumbnailURL,
		video.Controls,
		video.Transformation.Height,
		video.Transformation.Width,
		video.Transformation.Quality,
		time.Now().UTC(),
		video.ID,
	))
	if err != nil {
		return types.Video{}, mapError(err)
	}
	return updated, nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	conn, err := r.pool.Get(ctx)
	if err != nil {
		return err
	}

	const query = `DELETE FROM videos WHERE id = $1`
	result, err := conn.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
