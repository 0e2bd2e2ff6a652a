// Package memstore keeps users and videos in process memory. It backs the
// dev/test store and the unit tests of the layers above the store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clipshare/apiserver/internal/store"
	"github.com/clipshare/apiserver/types"
	"github.com/google/uuid"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]types.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]types.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return types.User{}, store.ErrDuplicate
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

type VideoRepository struct {
	mu     sync.RWMutex
	videos map[string]types.Video
}

func NewVideoRepository() *VideoRepository {
	return &VideoRepository{videos: make(map[string]types.Video)}
}

func (r *VideoRepository) List(_ context.Context, offset, limit int) ([]types.Video, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	r.mu.RLock()
	all := make([]types.Video, 0, len(r.videos))
	for _, video := range r.videos {
		all = append(all, video)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return []types.Video{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *VideoRepository) Get(_ context.Context, id string) (types.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	video, ok := r.videos[id]
	if !ok {
		return types.Video{}, store.ErrNotFound
	}
	return video, nil
}

func (r *VideoRepository) Create(_ context.Context, video types.Video) (types.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	video.ID = uuid.NewString()
	video.CreatedAt = now
	video.UpdatedAt = now
	r.videos[video.ID] = video
	return video, nil
}

func (r *VideoRepository) Update(_ context.Context, video types.Video) (types.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.videos[video.ID]
	if !ok {
		return types.Video{}, store.ErrNotFound
	}
	video.UserID = current.UserID
	video.CreatedAt = current.CreatedAt
	video.UpdatedAt = time.Now().UTC()
	r.videos[video.ID] = video
	return video, nil
}

func (r *VideoRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.videos[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.videos, id)
	return nil
}
