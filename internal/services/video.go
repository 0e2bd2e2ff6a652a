package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clipshare/apiserver/internal/logging"
	"github.com/clipshare/apiserver/internal/mq"
	"github.com/clipshare/apiserver/internal/store"
	"github.com/clipshare/apiserver/types"
)

const (
	maxTitleLength = 100
	defaultLimit   = 20
	maxLimit       = 100
)

// VideoRepository defines persistence operations for videos.
type VideoRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Video, int, error)
	Get(ctx context.Context, id string) (types.Video, error)
	Create(ctx context.Context, video types.Video) (types.Video, error)
	Update(ctx context.Context, video types.Video) (types.Video, error)
	Delete(ctx context.Context, id string) error
}

// VideoInput is the client-supplied part of a video record. Nil pointers
// take the defaults.
type VideoInput struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	VideoURL       string                `json:"video_url"`
	ThumbnailURL   string                `json:"thumbnail_url"`
	Controls       *bool                 `json:"controls,omitempty"`
	Transformation *types.Transformation `json:"transformation,omitempty"`
}

// VideoService encapsulates video metadata use-cases.
type VideoService struct {
	repo   VideoRepository
	events EventPublisher
}

func NewVideoService(repo VideoRepository, events EventPublisher) *VideoService {
	return &VideoService{repo: repo, events: events}
}

func (s *VideoService) List(ctx context.Context, offset, limit int) ([]types.Video, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	videos, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, newError(KindUnavailable, "failed to list videos", err)
	}
	return videos, total, nil
}

func (s *VideoService) Get(ctx context.Context, id string) (types.Video, error) {
	video, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Video{}, storeError(err, "video not found", "failed to load video")
	}
	return video, nil
}

// Create stores a new video owned by userID.
func (s *VideoService) Create(ctx context.Context, userID string, in VideoInput) (types.Video, error) {
	if strings.TrimSpace(userID) == "" {
		return types.Video{}, newError(KindForbidden, "authentication required", nil)
	}
	video, err := buildVideo(in)
	if err != nil {
		return types.Video{}, err
	}
	video.UserID = userID

	created, err := s.repo.Create(ctx, video)
	if err != nil {
		return types.Video{}, newError(KindUnavailable, "failed to create video", err)
	}

	publish(ctx, s.events, mq.ChannelVideoCreated, mq.VideoEvent{
		VideoID:    created.ID,
		UserID:     created.UserID,
		Title:      created.Title,
		OccurredAt: created.CreatedAt,
	})
	return created, nil
}

// Update replaces the metadata of a video owned by userID.
func (s *VideoService) Update(ctx context.Context, userID, id string, in VideoInput) (types.Video, error) {
	current, err := s.owned(ctx, userID, id)
	if err != nil {
		return types.Video{}, err
	}

	video, err := buildVideo(in)
	if err != nil {
		return types.Video{}, err
	}
	video.ID = current.ID
	video.UserID = current.UserID
	video.CreatedAt = current.CreatedAt

	updated, err := s.repo.Update(ctx, video)
	if err != nil {
		return types.Video{}, storeError(err, "video not found", "failed to update video")
	}
	return updated, nil
}

// Delete removes a video owned by userID.
func (s *VideoService) Delete(ctx context.Context, userID, id string) error {
	current, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "video not found", "failed to delete video")
	}

	logging.Infof(ctx, "video %s deleted by %s", current.ID, userID)
	publish(ctx, s.events, mq.ChannelVideoDeleted, mq.VideoEvent{
		VideoID:    current.ID,
		UserID:     current.UserID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (s *VideoService) owned(ctx context.Context, userID, id string) (types.Video, error) {
	video, err := s.Get(ctx, id)
	if err != nil {
		return types.Video{}, err
	}
	if video.UserID != userID {
		return types.Video{}, newError(KindForbidden, "not the owner of this video", nil)
	}
	return video, nil
}

func buildVideo(in VideoInput) (types.Video, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	videoURL := strings.TrimSpace(in.VideoURL)
	if title == "" || description == "" || videoURL == "" {
		return types.Video{}, newError(KindValidation, "title, description and video_url are required", nil)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return types.Video{}, newError(KindValidation, "title must be at most 100 characters", nil)
	}

	video := types.Video{
		Title:        title,
		Description:  description,
		VideoURL:     videoURL,
		ThumbnailURL: strings.TrimSpace(in.ThumbnailURL),
		Controls:     true,
		Transformation: types.Transformation{
			Height:  types.DefaultVideoHeight,
			Width:   types.DefaultVideoWidth,
			Quality: types.DefaultVideoQuality,
		},
	}
	if video.ThumbnailURL == "" {
		video.ThumbnailURL = videoURL
	}
	if in.Controls != nil {
		video.Controls = *in.Controls
	}
	if t := in.Transformation; t != nil {
		if t.Height < 0 || t.Width < 0 || t.Quality < 0 || t.Quality > 100 {
			return types.Video{}, newError(KindValidation, "invalid transformation", nil)
		}
		if t.Height > 0 {
			video.Transformation.Height = t.Height
		}
		if t.Width > 0 {
			video.Transformation.Width = t.Width
		}
		if t.Quality > 0 {
			video.Transformation.Quality = t.Quality
		}
	}
	return video, nil
}

func storeError(err error, notFound, unavailable string) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, notFound, err)
	}
	return newError(KindUnavailable, unavailable, err)
}
