package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/domain/repository"
	"github.com/yudhapratama/contactbook/internal/infrastructure/cache"
	"github.com/yudhapratama/contactbook/pkg/helpers"
)

// UserService serves profile reads and the avatar-upload flow.
type UserService struct {
	Repo      repository.UserRepository
	Cache     SnapshotCache
	GCS       *storage.Client
	GCSBucket string
	Logger    *logrus.Logger
}

func NewUserService(repo repository.UserRepository, uc SnapshotCache, gcs *storage.Client, gcsBucket string, logger *logrus.Logger) *UserService {
	return &UserService{Repo: repo, Cache: uc, GCS: gcs, GCSBucket: gcsBucket, Logger: logger}
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, mapInfraErr(err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	users, err := s.Repo.List(ctx, limit, offset)
	if err != nil {
		return nil, mapInfraErr(err)
	}
	return users, nil
}

// UploadAvatar stores the image in GCS, persists the public URL, and refreshes
// the cached snapshot in the same operation so it is never left stale.
func (s *UserService) UploadAvatar(ctx context.Context, email string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, errors.New("gcs not configured")
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, mapInfraErr(err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", u.ID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.UpdateAvatar(ctx, u.Email, url)
	if err != nil {
		return nil, mapInfraErr(err)
	}
	if err := s.Cache.Set(ctx, cache.SnapshotOf(updated)); err != nil {
		s.Logger.WithError(err).WithField("email", u.Email).Warn("user cache write failed")
	}
	return updated, nil
}
