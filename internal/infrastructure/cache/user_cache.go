package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/pkg/helpers"
)

// SnapshotVersion guards against reading snapshots written by an older schema.
const SnapshotVersion = 1

// UserSnapshot is a narrow, versioned copy of a user record kept in redis.
// It deliberately excludes the password hash and the stored refresh token.
type UserSnapshot struct {
	SchemaVersion int         `json:"v"`
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Username      string      `json:"username"`
	AvatarURL     string      `json:"avatar_url"`
	Role          entity.Role `json:"role"`
	Confirmed     bool        `json:"confirmed"`
}

// SnapshotOf builds a snapshot from a persisted user record.
func SnapshotOf(u *entity.User) *UserSnapshot {
	return &UserSnapshot{
		SchemaVersion: SnapshotVersion,
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		AvatarURL:     u.AvatarURL,
		Role:          u.Role,
		Confirmed:     u.Confirmed,
	}
}

// UserCache is a bounded-staleness, write-through cache keyed by user email.
// Correctness never depends on a hit; the store of record is postgres.
type UserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewUserCache(rdb *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{rdb: rdb, ttl: ttl}
}

func key(email string) string {
	return "user:snapshot:" + email
}

// Get returns the cached snapshot, or (nil, false, nil) on a miss.
// A snapshot written by a different schema version counts as a miss.
func (c *UserCache) Get(ctx context.Context, email string) (*UserSnapshot, bool, error) {
	var snap UserSnapshot
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, key(email), &snap)
	if err != nil || !ok {
		return nil, false, err
	}
	if snap.SchemaVersion != SnapshotVersion {
		return nil, false, nil
	}
	return &snap, true, nil
}

func (c *UserCache) Set(ctx context.Context, snap *UserSnapshot) error {
	return helpers.RedisSetJSON(ctx, c.rdb, key(snap.Email), snap, c.ttl)
}

func (c *UserCache) Invalidate(ctx context.Context, email string) error {
	return helpers.RedisDel(ctx, c.rdb, key(email))
}
