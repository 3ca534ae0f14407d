// Package replica implements the denormalized key-value projection of account
// records used for fast profile lookups. Keys are namespaced by prefixing the
// record id with its entity kind ("user.", "organization.", "tokens.") inside
// a configured keyspace.
package replica

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"

	"accounts_backend/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrExists   = errors.New("replica key already exists")
	ErrNotFound = errors.New("replica key not found")
)

// UserKey returns the replica key for a user record.
func UserKey(id uuid.UUID) string { return "user." + id.String() }

// OrganizationKey returns the replica key for an organization record.
func OrganizationKey(id uuid.UUID) string { return "organization." + id.String() }

// TokenKey returns the replica key for a subject's credential token.
func TokenKey(subject uuid.UUID) string { return "tokens." + subject.String() }

// NewClient creates a redis client from config.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() && opt.TLSConfig != nil {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return redis.NewClient(opt), nil
}

// Store is the replica store adapter. Each write is single-key atomic.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Create writes a record under the given key in the keyspace, failing with
// ErrExists if the key is already present.
func (s *Store) Create(ctx context.Context, record any, keyspace, key string) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	ok, err := s.client.HSetNX(ctx, keyspace, key, payload).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	return nil
}

// Upsert writes a record under the given key. When overwrite is false an
// existing value is left untouched.
func (s *Store) Upsert(ctx context.Context, record any, keyspace, key string, overwrite bool) error {
	if !overwrite {
		err := s.Create(ctx, record, keyspace, key)
		if errors.Is(err, ErrExists) {
			return nil
		}
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, keyspace, key, payload).Err()
}

// Delete removes the record under the given key. Deleting an absent key is
// not an error; compensation relies on that.
func (s *Store) Delete(ctx context.Context, keyspace, key string) error {
	return s.client.HDel(ctx, keyspace, key).Err()
}

// Get reads the record under the given key into dest.
func (s *Store) Get(ctx context.Context, keyspace, key string, dest any) error {
	payload, err := s.client.HGet(ctx, keyspace, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// Ping verifies store connectivity, used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
