package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/domain/repository"
	"github.com/yudhapratama/contactbook/internal/infrastructure/cache"
	"github.com/yudhapratama/contactbook/pkg/helpers"
	"github.com/yudhapratama/contactbook/pkg/mailer"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*entity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*entity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	args := m.Called(ctx, limit, offset)
	if us, ok := args.Get(0).([]*entity.User); ok {
		return us, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UpdateRefreshToken(ctx context.Context, userID string, token *string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *mockUserRepo) RotateRefreshToken(ctx context.Context, userID string, old, new string) (bool, error) {
	args := m.Called(ctx, userID, old, new)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) SetConfirmed(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, email, url string) (*entity.User, error) {
	args := m.Called(ctx, email, url)
	if u, ok := args.Get(0).(*entity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSnapshotCache struct{ mock.Mock }

func (m *mockSnapshotCache) Get(ctx context.Context, email string) (*cache.UserSnapshot, bool, error) {
	args := m.Called(ctx, email)
	if snap, ok := args.Get(0).(*cache.UserSnapshot); ok {
		return snap, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockSnapshotCache) Set(ctx context.Context, snap *cache.UserSnapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockSnapshotCache) Invalidate(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishJSON(ctx context.Context, body any) error {
	return m.Called(ctx, body).Error(0)
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testJWT(t *testing.T) *helpers.JWTManager {
	t.Helper()
	m, err := helpers.NewJWTManager("test-secret", "HS256", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)
	return m
}

func newAuthService(t *testing.T, repo repository.UserRepository, uc SnapshotCache, pub Publisher) *AuthService {
	t.Helper()
	return NewAuthService(repo, testJWT(t), uc, pub, discardLogger(), "contactbook", "http://localhost:8080", pub != nil)
}

func confirmedUser(t *testing.T, email, password string) *entity.User {
	t.Helper()
	hash, err := helpers.HashPassword(password)
	require.NoError(t, err)
	return &entity.User{
		ID:        "11111111-1111-1111-1111-111111111111",
		Email:     email,
		Username:  "alice",
		Password:  hash,
		Confirmed: true,
		Role:      entity.RoleUser,
	}
}

func TestSignup_SchedulesConfirmationEmail(t *testing.T) {
	repo := new(mockUserRepo)
	pub := new(mockPublisher)
	svc := newAuthService(t, repo, new(mockSnapshotCache), pub)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).
		Run(func(args mock.Arguments) {
			u := args.Get(1).(*entity.User)
			u.ID = "11111111-1111-1111-1111-111111111111"
		}).
		Return(nil)

	published := make(chan mailer.EmailJob, 1)
	pub.On("PublishJSON", mock.Anything, mock.AnythingOfType("mailer.EmailJob")).
		Run(func(args mock.Arguments) {
			published <- args.Get(1).(mailer.EmailJob)
		}).
		Return(nil)

	u, err := svc.Signup(context.Background(), "alice@example.com", "s3cretpass", "alice")
	require.NoError(t, err)
	assert.False(t, u.Confirmed)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.NotEqual(t, "s3cretpass", u.Password)

	select {
	case job := <-published:
		assert.Equal(t, "alice@example.com", job.To)
		assert.Equal(t, "confirm_email", job.Template)
		assert.Contains(t, job.Data["ConfirmURL"], "http://localhost:8080/api/auth/confirm/")
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation email was never enqueued")
	}
	repo.AssertExpectations(t)
}

func TestSignup_SurvivesDisconnectedPublisher(t *testing.T) {
	repo := newMemUserRepo()

	// a failed startup dial leaves a typed-nil pointer; through the Publisher
	// interface it no longer compares equal to nil, so the enqueue path runs
	var pub *helpers.RabbitPublisher
	svc := NewAuthService(repo, testJWT(t), noopCache{}, pub, discardLogger(), "contactbook", "http://localhost:8080", true)

	u, err := svc.Signup(context.Background(), "alice@example.com", "s3cretpass", "alice")
	require.NoError(t, err)
	assert.False(t, u.Confirmed)

	// give the fire-and-forget goroutine time to run; it must log and return,
	// never take the process down
	time.Sleep(100 * time.Millisecond)

	stored, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEmail)

	_, err := svc.Signup(context.Background(), "taken@example.com", "s3cretpass", "bob")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin_UnconfirmedRejected(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	u.Confirmed = false
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	_, err := svc.Login(context.Background(), "alice@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrUnauthorized)
	repo.AssertNotCalled(t, "UpdateRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmailAndWrongPassword(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)
	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrUnauthorized)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	_, err = svc.Login(context.Background(), "alice@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogin_CorruptHash(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	u.Password = "not-a-bcrypt-hash"
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	_, err := svc.Login(context.Background(), "alice@example.com", "s3cretpass")
	assert.ErrorIs(t, err, helpers.ErrCorruptHash)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestLogin_PersistsNewRefreshToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	var stored *string
	repo.On("UpdateRefreshToken", mock.Anything, u.ID, mock.AnythingOfType("*string")).
		Run(func(args mock.Arguments) { stored = args.Get(2).(*string) }).
		Return(nil)

	pair, err := svc.Login(context.Background(), "alice@example.com", "s3cretpass")
	require.NoError(t, err)

	require.NotNil(t, stored)
	assert.Equal(t, pair.RefreshToken, *stored)

	sub, err := svc.JWT.Decode(pair.AccessToken, helpers.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sub)
	sub, err = svc.JWT.Decode(pair.RefreshToken, helpers.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sub)
}

func TestRefresh_RotatesPair(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.JWT.Now = func() time.Time { return base }
	old, _, err := svc.JWT.CreateRefreshToken("alice@example.com")
	require.NoError(t, err)
	svc.JWT.Now = func() time.Time { return base.Add(time.Minute) }

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	u.RefreshToken = &old
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	repo.On("RotateRefreshToken", mock.Anything, u.ID, old, mock.AnythingOfType("string")).Return(true, nil)

	pair, err := svc.Refresh(context.Background(), old)
	require.NoError(t, err)
	assert.NotEqual(t, old, pair.RefreshToken)

	sub, err := svc.JWT.Decode(pair.RefreshToken, helpers.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sub)
	repo.AssertExpectations(t)
}

func TestRefresh_ReuseTearsDownSession(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	presented, _, err := svc.JWT.CreateRefreshToken("alice@example.com")
	require.NoError(t, err)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	current := "some-other-stored-token"
	u.RefreshToken = &current
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	repo.On("UpdateRefreshToken", mock.Anything, u.ID, (*string)(nil)).Return(nil)

	_, err = svc.Refresh(context.Background(), presented)
	assert.ErrorIs(t, err, ErrUnauthorized)
	repo.AssertCalled(t, "UpdateRefreshToken", mock.Anything, u.ID, (*string)(nil))
	repo.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_ConcurrentRotationLoses(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.JWT.Now = func() time.Time { return base }
	old, _, err := svc.JWT.CreateRefreshToken("alice@example.com")
	require.NoError(t, err)
	svc.JWT.Now = func() time.Time { return base.Add(time.Minute) }

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	u.RefreshToken = &old
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	repo.On("RotateRefreshToken", mock.Anything, u.ID, old, mock.Anything).Return(false, nil)

	_, err = svc.Refresh(context.Background(), old)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	access, _, err := svc.JWT.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, ErrUnauthorized)
	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestResolveUser_CacheHitSkipsRepo(t *testing.T) {
	repo := new(mockUserRepo)
	uc := new(mockSnapshotCache)
	svc := newAuthService(t, repo, uc, nil)

	access, _, err := svc.JWT.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	snap := &cache.UserSnapshot{
		SchemaVersion: cache.SnapshotVersion,
		ID:            "11111111-1111-1111-1111-111111111111",
		Email:         "alice@example.com",
		Username:      "alice",
		Role:          entity.RoleUser,
		Confirmed:     true,
	}
	uc.On("Get", mock.Anything, "alice@example.com").Return(snap, true, nil)

	got, err := svc.ResolveUser(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestResolveUser_CacheMissWritesThrough(t *testing.T) {
	repo := new(mockUserRepo)
	uc := new(mockSnapshotCache)
	svc := newAuthService(t, repo, uc, nil)

	access, _, err := svc.JWT.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	uc.On("Get", mock.Anything, "alice@example.com").Return(nil, false, nil)
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	uc.On("Set", mock.Anything, mock.AnythingOfType("*cache.UserSnapshot")).Return(nil)

	snap, err := svc.ResolveUser(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, snap.ID)
	assert.Equal(t, cache.SnapshotVersion, snap.SchemaVersion)
	uc.AssertCalled(t, "Set", mock.Anything, mock.AnythingOfType("*cache.UserSnapshot"))
}

func TestResolveUser_CacheTimeoutIsUnavailable(t *testing.T) {
	repo := new(mockUserRepo)
	uc := new(mockSnapshotCache)
	svc := newAuthService(t, repo, uc, nil)

	access, _, err := svc.JWT.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	uc.On("Get", mock.Anything, "alice@example.com").Return(nil, false, context.DeadlineExceeded)

	_, err = svc.ResolveUser(context.Background(), access)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestResolveUser_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := new(mockUserRepo)
	uc := new(mockSnapshotCache)
	svc := newAuthService(t, repo, uc, nil)

	access, _, err := svc.JWT.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	uc.On("Get", mock.Anything, "alice@example.com").Return(nil, false, errors.New("redis exploded"))
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	uc.On("Set", mock.Anything, mock.Anything).Return(nil)

	snap, err := svc.ResolveUser(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, u.Email, snap.Email)
}

func TestResolveUser_ExpiredToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.JWT.Now = func() time.Time { return base }
	access, _, err := svc.JWT.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	svc.JWT.Now = func() time.Time { return base.Add(time.Hour) }
	_, err = svc.ResolveUser(context.Background(), access)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestConfirmEmail_Idempotent(t *testing.T) {
	repo := new(mockUserRepo)
	uc := new(mockSnapshotCache)
	svc := newAuthService(t, repo, uc, nil)

	token, err := svc.JWT.CreateEmailToken("alice@example.com")
	require.NoError(t, err)

	u := confirmedUser(t, "alice@example.com", "s3cretpass")
	u.Confirmed = false
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	repo.On("SetConfirmed", mock.Anything, u.ID).Return(nil).Once()
	uc.On("Invalidate", mock.Anything, "alice@example.com").Return(nil)

	already, err := svc.ConfirmEmail(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, already)

	u.Confirmed = true
	already, err = svc.ConfirmEmail(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, already)
	repo.AssertNumberOfCalls(t, "SetConfirmed", 1)
}

func TestConfirmEmail_BadToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	// an access token is not an email confirmation token
	access, _, err := svc.JWT.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	_, err = svc.ConfirmEmail(context.Background(), access)
	assert.ErrorIs(t, err, helpers.ErrWrongTokenKind)

	_, err = svc.ConfirmEmail(context.Background(), "garbage")
	assert.ErrorIs(t, err, helpers.ErrInvalidToken)
}

func TestConfirmEmail_UnknownUser(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	token, err := svc.JWT.CreateEmailToken("gone@example.com")
	require.NoError(t, err)

	repo.On("GetByEmail", mock.Anything, "gone@example.com").Return(nil, repository.ErrNotFound)
	_, err = svc.ConfirmEmail(context.Background(), token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequestConfirmation_NeverRevealsRegistration(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(t, repo, new(mockSnapshotCache), nil)

	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)

	already, err := svc.RequestConfirmation(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	assert.False(t, already)
}

// memUserRepo is a minimal in-memory store for end-to-end flow tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User // by email
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*entity.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	u.ID = "mem-" + u.Email
	m.users[u.Email] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) List(_ context.Context, _, _ int) ([]*entity.User, error) {
	return nil, nil
}

func (m *memUserRepo) UpdateRefreshToken(_ context.Context, userID string, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			u.RefreshToken = token
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memUserRepo) RotateRefreshToken(_ context.Context, userID string, old, new string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			if u.RefreshToken == nil || *u.RefreshToken != old {
				return false, nil
			}
			u.RefreshToken = &new
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserRepo) SetConfirmed(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			u.Confirmed = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memUserRepo) UpdateAvatar(_ context.Context, email, url string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		u.AvatarURL = url
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*cache.UserSnapshot, bool, error) {
	return nil, false, nil
}
func (noopCache) Set(context.Context, *cache.UserSnapshot) error { return nil }
func (noopCache) Invalidate(context.Context, string) error       { return nil }

func TestSignupConfirmLoginFlow(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewAuthService(repo, testJWT(t), noopCache{}, nil, discardLogger(), "contactbook", "http://localhost:8080", false)
	ctx := context.Background()

	u, err := svc.Signup(ctx, "a@x.com", "password1", "alice")
	require.NoError(t, err)
	assert.False(t, u.Confirmed)

	// login before confirmation is rejected
	_, err = svc.Login(ctx, "a@x.com", "password1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	token, err := svc.JWT.CreateEmailToken("a@x.com")
	require.NoError(t, err)
	already, err := svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.False(t, already)

	pair, err := svc.Login(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
}

// staleReadRepo freezes what GetByEmail reports, simulating two refresh
// callers who both read the user record before either rotated it. The CAS in
// RotateRefreshToken still sees live state.
type staleReadRepo struct {
	*memUserRepo
	frozen entity.User
}

func (r *staleReadRepo) GetByEmail(context.Context, string) (*entity.User, error) {
	u := r.frozen
	return &u, nil
}

func TestRefresh_ConcurrentCallersOneWinner(t *testing.T) {
	mem := newMemUserRepo()
	jwtm := testJWT(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	jwtm.Now = func() time.Time { return base }
	stale, _, err := jwtm.CreateRefreshToken("a@x.com")
	require.NoError(t, err)

	hash, err := helpers.HashPassword("password1")
	require.NoError(t, err)
	u := &entity.User{Email: "a@x.com", Username: "alice", Password: hash, Confirmed: true, Role: entity.RoleUser}
	require.NoError(t, mem.Create(ctx, u))
	require.NoError(t, mem.UpdateRefreshToken(ctx, u.ID, &stale))

	frozen := *u
	frozen.RefreshToken = &stale
	repo := &staleReadRepo{memUserRepo: mem, frozen: frozen}
	svc := NewAuthService(repo, jwtm, noopCache{}, nil, discardLogger(), "contactbook", "http://localhost:8080", false)

	// distinct mint times so each rotation produces a distinct token
	jwtm.Now = func() time.Time { return base.Add(time.Second) }
	pair, err := svc.Refresh(ctx, stale)
	require.NoError(t, err)
	assert.NotEqual(t, stale, pair.RefreshToken)

	// second caller presents the same stale token; its read predates the
	// winner's write, so only the conditional update can stop it
	jwtm.Now = func() time.Time { return base.Add(2 * time.Second) }
	_, err = svc.Refresh(ctx, stale)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// exactly one live refresh token remains: the winner's
	stored, err := mem.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
}

func TestLogout_ClearsTokenAndCache(t *testing.T) {
	repo := new(mockUserRepo)
	uc := new(mockSnapshotCache)
	svc := newAuthService(t, repo, uc, nil)

	repo.On("UpdateRefreshToken", mock.Anything, "uid-1", (*string)(nil)).Return(nil)
	uc.On("Invalidate", mock.Anything, "alice@example.com").Return(nil)

	err := svc.Logout(context.Background(), "uid-1", "alice@example.com")
	require.NoError(t, err)
	repo.AssertExpectations(t)
	uc.AssertExpectations(t)
}
