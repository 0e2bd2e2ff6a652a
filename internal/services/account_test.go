package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clipshare/apiserver/internal/session"
	"github.com/clipshare/apiserver/internal/store"
	"github.com/clipshare/apiserver/internal/store/memstore"
	"github.com/clipshare/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordedEvent struct {
	channel string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakePublisher) PublishJSON(_ context.Context, channel string, v any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{channel: channel, payload: v})
	return "id", f.err
}

func (f *fakePublisher) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.channel)
	}
	return out
}

func newAccountService(t *testing.T) (*AccountService, *memstore.UserRepository, *fakePublisher) {
	t.Helper()
	repo := memstore.NewUserRepository()
	boundary, err := session.NewJWTBoundary("test-secret", time.Hour)
	require.NoError(t, err)
	events := &fakePublisher{}
	svc, err := NewAccountService(repo, boundary, events, bcrypt.MinCost)
	require.NoError(t, err)
	return svc, repo, events
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, repo, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "a@x.com", "another")
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, 1, repo.Count())
}

func TestRegister_ConcurrentDuplicatesYieldOneUser(t *testing.T) {
	svc, repo, _ := newAccountService(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "race@x.com", "pw")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, KindConflict, KindOf(err))
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, repo.Count())
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	svc, repo, events := newAccountService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "b@x.com", "plain-secret")
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", user.Email)

	stored, err := repo.GetByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "plain-secret", stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "plain-secret")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("plain-secret")))

	assert.Equal(t, []string{"user.registered"}, events.channels())
}

func TestRegister_EmailIsStoredVerbatim(t *testing.T) {
	svc, repo, _ := newAccountService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " C@x.com", "plain-secret")
	require.NoError(t, err)
	assert.Equal(t, " C@x.com", user.Email)

	_, err = repo.GetByEmail(ctx, "c@x.com")
	require.Error(t, err)

	_, err = svc.Register(ctx, "C@x.com", "plain-secret")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Count())

	_, _, err = svc.Authenticate(ctx, "C@x.com ", "plain-secret")
	assert.Equal(t, KindInvalidCredentials, KindOf(err))
	_, _, err = svc.Authenticate(ctx, " C@x.com", "plain-secret")
	require.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	svc, repo, events := newAccountService(t)

	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"  ", "pw"},
		{"a@x.com", ""},
		{"a@x.com", strings.Repeat("x", 80)},
	} {
		_, err := svc.Register(context.Background(), tc.email, tc.password)
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	}
	assert.Zero(t, repo.Count())
	assert.Empty(t, events.channels())
}

func TestRegister_PublishFailureDoesNotFailRegistration(t *testing.T) {
	svc, repo, events := newAccountService(t)
	events.err = errors.New("broker down")

	_, err := svc.Register(context.Background(), "c@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Count())
}

type failingUserRepo struct {
	lookupErr error
	createErr error
}

func (f failingUserRepo) GetByID(context.Context, string) (types.User, error) {
	return types.User{}, f.lookupErr
}

func (f failingUserRepo) GetByEmail(context.Context, string) (types.User, error) {
	return types.User{}, f.lookupErr
}

func (f failingUserRepo) Create(context.Context, types.User) (types.User, error) {
	return types.User{}, f.createErr
}

func TestRegister_StoreFailures(t *testing.T) {
	boundary, err := session.NewJWTBoundary("k", time.Hour)
	require.NoError(t, err)

	svc, err := NewAccountService(failingUserRepo{lookupErr: errors.New("connection refused")}, boundary, nil, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "a@x.com", "pw")
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Equal(t, "failed to register", MessageOf(err))

	svc, err = NewAccountService(failingUserRepo{lookupErr: store.ErrNotFound, createErr: store.ErrDuplicate}, boundary, nil, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "a@x.com", "pw")
	assert.Equal(t, KindConflict, KindOf(err))

	svc, err = NewAccountService(failingUserRepo{lookupErr: store.ErrNotFound, createErr: errors.New("timeout")}, boundary, nil, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "a@x.com", "pw")
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	svc, _, _ := newAccountService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	artifact, user, err := svc.Authenticate(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.Token)
	assert.Equal(t, registered.ID, user.ID)

	current, err := svc.CurrentUser(ctx, artifact.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, current.ID)

	for _, tc := range []struct{ email, password string }{
		{"a@x.com", "wrong"},
		{"nobody@x.com", "secret1"},
		{"A@x.com", "secret1"},
	} {
		_, _, err := svc.Authenticate(ctx, tc.email, tc.password)
		require.ErrorIs(t, err, ErrInvalidCredentials, "%s/%s", tc.email, tc.password)
		assert.Equal(t, KindInvalidCredentials, KindOf(err))
	}
}

func TestAuthenticate_MissAndMismatchIndistinguishable(t *testing.T) {
	svc, _, _ := newAccountService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, _, missErr := svc.Authenticate(ctx, "ghost@x.com", "secret1")
	_, _, wrongErr := svc.Authenticate(ctx, "a@x.com", "nope")
	assert.Equal(t, missErr, wrongErr)
	assert.Equal(t, missErr.Error(), wrongErr.Error())
}

func TestAuthenticate_StoreFailureIsUnavailable(t *testing.T) {
	boundary, err := session.NewJWTBoundary("k", time.Hour)
	require.NoError(t, err)
	svc, err := NewAccountService(failingUserRepo{lookupErr: errors.New("server selection timeout")}, boundary, nil, bcrypt.MinCost)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), "a@x.com", "pw")
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.NotContains(t, MessageOf(err), "server selection")
}

func TestCurrentUser_InvalidToken(t *testing.T) {
	svc, _, _ := newAccountService(t)
	_, err := svc.CurrentUser(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewAccountService_CostRange(t *testing.T) {
	_, err := NewAccountService(memstore.NewUserRepository(), nil, nil, bcrypt.MaxCost+1)
	require.Error(t, err)
}
