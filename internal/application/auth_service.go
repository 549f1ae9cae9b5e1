package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/domain/repository"
	"github.com/yudhapratama/contactbook/internal/infrastructure/cache"
	"github.com/yudhapratama/contactbook/pkg/helpers"
	"github.com/yudhapratama/contactbook/pkg/mailer"
	tpl "github.com/yudhapratama/contactbook/pkg/mailer/templates"
)

// SnapshotCache is what AuthService needs from the user cache; the concrete
// redis-backed implementation lives in internal/infrastructure/cache.
type SnapshotCache interface {
	Get(ctx context.Context, email string) (*cache.UserSnapshot, bool, error)
	Set(ctx context.Context, snap *cache.UserSnapshot) error
	Invalidate(ctx context.Context, email string) error
}

// Publisher enqueues fire-and-forget jobs (confirmation emails).
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// AuthService resolves the current user from an access token and drives the
// signup / login / refresh / confirmation flows.
type AuthService struct {
	Repo        repository.UserRepository
	JWT         *helpers.JWTManager
	Cache       SnapshotCache
	Pub         Publisher
	Logger      *logrus.Logger
	AppName     string
	BaseURL     string
	MailEnabled bool
}

func NewAuthService(repo repository.UserRepository, jwt *helpers.JWTManager, uc SnapshotCache, pub Publisher, logger *logrus.Logger, appName, baseURL string, mailEnabled bool) *AuthService {
	return &AuthService{
		Repo:        repo,
		JWT:         jwt,
		Cache:       uc,
		Pub:         pub,
		Logger:      logger,
		AppName:     appName,
		BaseURL:     baseURL,
		MailEnabled: mailEnabled,
	}
}

// Signup registers a new unconfirmed account and schedules the confirmation
// email without awaiting delivery.
func (s *AuthService) Signup(ctx context.Context, email, password, username string) (*entity.User, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:     email,
		Username:  username,
		Password:  hash,
		Confirmed: false,
		Role:      entity.RoleUser,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrConflict
		}
		return nil, mapInfraErr(err)
	}
	s.scheduleConfirmation(u.Email, u.Username)
	return u, nil
}

// Login checks credentials against the store of record, never the cache, so it
// always observes the latest confirmed flag and password hash.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, mapInfraErr(err)
	}
	if !u.Confirmed {
		return TokenPair{}, ErrUnauthorized
	}
	ok, err := helpers.VerifyPassword(u.Password, password)
	if err != nil {
		// corrupt stored hash is data corruption, not a bad credential
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrUnauthorized
	}

	pair, err := s.mintPair(u.Email)
	if err != nil {
		return TokenPair{}, err
	}
	// Overwriting the stored value invalidates any earlier session.
	if err := s.Repo.UpdateRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		return TokenPair{}, mapInfraErr(err)
	}
	return pair, nil
}

// Refresh rotates the token pair. A presented token that does not match the
// stored one is treated as theft or reuse: the session is torn down entirely.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	email, err := s.JWT.Decode(refreshToken, helpers.TokenRefresh)
	if err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, mapInfraErr(err)
	}
	if u.RefreshToken == nil || *u.RefreshToken != refreshToken {
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).
			Warn("refresh token reuse detected, invalidating session")
		if err := s.Repo.UpdateRefreshToken(ctx, u.ID, nil); err != nil {
			return TokenPair{}, mapInfraErr(err)
		}
		return TokenPair{}, ErrUnauthorized
	}

	pair, err := s.mintPair(u.Email)
	if err != nil {
		return TokenPair{}, err
	}
	swapped, err := s.Repo.RotateRefreshToken(ctx, u.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return TokenPair{}, mapInfraErr(err)
	}
	if !swapped {
		// a concurrent refresh won the race with the same stale token
		return TokenPair{}, ErrUnauthorized
	}
	return pair, nil
}

// ResolveUser turns an access token into the current user, consulting the
// snapshot cache before the store of record.
func (s *AuthService) ResolveUser(ctx context.Context, accessToken string) (*cache.UserSnapshot, error) {
	email, err := s.JWT.Decode(accessToken, helpers.TokenAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}

	snap, hit, err := s.Cache.Get(ctx, email)
	if err != nil {
		if mapped := mapInfraErr(err); errors.Is(mapped, ErrServiceUnavailable) {
			return nil, mapped
		}
		// any other cache failure is a miss, not a request failure
		s.Logger.WithError(err).WithField("email", email).Warn("user cache read failed")
	}
	if hit {
		return snap, nil
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, mapInfraErr(err)
	}
	snap = cache.SnapshotOf(u)
	if err := s.Cache.Set(ctx, snap); err != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("user cache write failed")
	}
	return snap, nil
}

// ConfirmEmail flips the confirmed flag exactly once. A second confirmation
// for the same subject reports already=true without error.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (already bool, err error) {
	email, err := s.JWT.Decode(token, helpers.TokenEmail)
	if err != nil {
		return false, err
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, mapInfraErr(err)
	}
	if u.Confirmed {
		return true, nil
	}
	if err := s.Repo.SetConfirmed(ctx, u.ID); err != nil {
		return false, mapInfraErr(err)
	}
	// the cached snapshot (if any) now carries a stale confirmed flag
	if err := s.Cache.Invalidate(ctx, u.Email); err != nil {
		s.Logger.WithError(err).WithField("email", u.Email).Warn("user cache invalidate failed")
	}
	return false, nil
}

// RequestConfirmation re-sends the confirmation email. The response never
// reveals whether the address is registered.
func (s *AuthService) RequestConfirmation(ctx context.Context, email string) (already bool, err error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, mapInfraErr(err)
	}
	if u.Confirmed {
		return true, nil
	}
	s.scheduleConfirmation(u.Email, u.Username)
	return false, nil
}

// Logout clears the stored refresh token and the cached snapshot.
func (s *AuthService) Logout(ctx context.Context, userID, email string) error {
	if err := s.Repo.UpdateRefreshToken(ctx, userID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return mapInfraErr(err)
	}
	if err := s.Cache.Invalidate(ctx, email); err != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("user cache invalidate failed")
	}
	return nil
}

func (s *AuthService) mintPair(subject string) (TokenPair, error) {
	access, aexp, err := s.JWT.CreateAccessToken(subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.CreateRefreshToken(subject)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:        access,
		AccessTokenExpiry:  aexp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: rexp,
	}, nil
}

// scheduleConfirmation enqueues the confirmation email without blocking the
// caller. Failures are logged, never propagated.
func (s *AuthService) scheduleConfirmation(email, username string) {
	if s.Pub == nil || !s.MailEnabled {
		return
	}
	token, err := s.JWT.CreateEmailToken(email)
	if err != nil {
		s.Logger.WithError(err).WithField("email", email).Error("confirmation token mint failed")
		return
	}
	job := mailer.EmailJob{
		To:       email,
		Template: tpl.ConfirmEmail,
		Data: tpl.ToMap(tpl.EmailData{
			Name:       username,
			Email:      email,
			AppName:    s.AppName,
			ConfirmURL: s.BaseURL + "/api/auth/confirm/" + token,
		}),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Pub.PublishJSON(ctx, job); err != nil {
			s.Logger.WithError(err).WithField("email", email).Warn("confirmation email enqueue failed")
		}
	}()
}
