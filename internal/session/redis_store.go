// Package session resolves anonymous session identifiers and caches the
// preferences saved under them in Redis.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"swingvote/api/internal/store"
)

// DefaultID is used when a request carries no session header.
const DefaultID = "default"

// DefaultTTL bounds how long cached preferences live.
const DefaultTTL = 24 * time.Hour

const maxIDLength = 128

const hashedIDPrefix = "sha256:"

// ErrCacheMiss is returned when nothing is cached for a session.
var ErrCacheMiss = errors.New("preferences not cached")

// ResolveID normalizes a client-supplied session header. Ids that are too
// long or not valid UTF-8 are replaced by the hex sha256 of the raw value, so
// distinct headers stay distinct.
func ResolveID(header string) string {
	id := strings.TrimSpace(header)
	if id == "" {
		return DefaultID
	}
	if len(id) > maxIDLength || !utf8.ValidString(id) {
		sum := sha256.Sum256([]byte(id))
		return hashedIDPrefix + hex.EncodeToString(sum[:])
	}
	return id
}

// RedisStore caches user preferences keyed by session id.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "prefs:",
		ttl:    DefaultTTL,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// SavePreferences overwrites the cached preferences for prefs.SessionID.
func (s *RedisStore) SavePreferences(ctx context.Context, prefs store.UserPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := s.client.Set(ctx, s.key(prefs.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache preferences: %w", err)
	}
	return nil
}

// LookupPreferences returns ErrCacheMiss when nothing is cached.
func (s *RedisStore) LookupPreferences(ctx context.Context, sessionID string) (store.UserPreferences, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.UserPreferences{}, ErrCacheMiss
	}
	if err != nil {
		return store.UserPreferences{}, fmt.Errorf("lookup preferences: %w", err)
	}

	var prefs store.UserPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return store.UserPreferences{}, fmt.Errorf("unmarshal preferences: %w", err)
	}
	if prefs.SelectedTopics == nil {
		prefs.SelectedTopics = []string{}
	}
	return prefs, nil
}

// RevokePreferences drops the cached entry. Missing keys are not an error.
func (s *RedisStore) RevokePreferences(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("revoke preferences: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
