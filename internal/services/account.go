package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clipshare/apiserver/internal/logging"
	"github.com/clipshare/apiserver/internal/mq"
	"github.com/clipshare/apiserver/internal/session"
	"github.com/clipshare/apiserver/internal/store"
	"github.com/clipshare/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, v any) (string, error)
}

// AccountService registers accounts and authenticates them.
type AccountService struct {
	repo     UserRepository
	boundary session.Boundary
	events   EventPublisher
	cost     int

	// dummyHash is compared against on lookup misses so that unknown emails
	// cost the same as wrong passwords.
	dummyHash []byte
}

// NewAccountService constructs an AccountService. events may be nil.
func NewAccountService(repo UserRepository, boundary session.Boundary, events EventPublisher, cost int) (*AccountService, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("clipshare-timing-equalizer"), cost)
	if err != nil {
		return nil, err
	}
	return &AccountService{
		repo:      repo,
		boundary:  boundary,
		events:    events,
		cost:      cost,
		dummyHash: dummy,
	}, nil
}

// Register creates a new account. The plaintext password is hashed before
// anything is persisted and is never returned or logged.
func (s *AccountService) Register(ctx context.Context, email, password string) (types.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return types.User{}, newError(KindValidation, "email and password are required", nil)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, newError(KindConflict, "email already registered", nil)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, newError(KindUnavailable, "failed to register", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.User{}, newError(KindValidation, "password is too long", nil)
		}
		return types.User{}, newError(KindUnavailable, "failed to register", err)
	}

	user, err := s.repo.Create(ctx, types.User{Email: email, PasswordHash: string(hashed)})
	if err != nil {
		// The unique index is the final arbiter for concurrent registrations.
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, newError(KindConflict, "email already registered", err)
		}
		return types.User{}, newError(KindUnavailable, "failed to register", err)
	}

	logging.Infof(ctx, "user %s registered", user.ID)
	s.publish(ctx, mq.ChannelUserRegistered, mq.UserRegistered{
		UserID:       user.ID,
		Email:        user.Email,
		RegisteredAt: user.CreatedAt,
	})
	return user, nil
}

// Authenticate verifies the credentials and mints a session. Unknown email
// and wrong password fail identically.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (session.Artifact, types.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return session.Artifact{}, types.User{}, newError(KindValidation, "missing credentials", nil)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return session.Artifact{}, types.User{}, ErrInvalidCredentials
		}
		return session.Artifact{}, types.User{}, newError(KindUnavailable, "failed to authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return session.Artifact{}, types.User{}, ErrInvalidCredentials
	}

	artifact, err := s.boundary.Mint(user.ID)
	if err != nil {
		return session.Artifact{}, types.User{}, newError(KindUnavailable, "failed to authenticate", err)
	}
	return artifact, user, nil
}

// CurrentUser resolves a session artifact to its user.
func (s *AccountService) CurrentUser(ctx context.Context, token string) (types.User, error) {
	userID, err := s.boundary.Validate(token)
	if err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, newError(KindUnavailable, "failed to load session", err)
	}
	return user, nil
}

func (s *AccountService) publish(ctx context.Context, channel string, event any) {
	publish(ctx, s.events, channel, event)
}

func publish(ctx context.Context, events EventPublisher, channel string, event any) {
	if events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := events.PublishJSON(ctx, channel, event); err != nil {
		logging.FromContext(ctx).Warnw("event publish failed", "channel", channel, "error", err)
	}
}
