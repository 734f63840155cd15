package utils

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"taskr/models"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 5 * time.Second

type SessionStore interface {
	StoreSession(ctx context.Context, session models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, sessionToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionToken string) error
	UpdateLastActivity(ctx context.Context, sessionToken string) error
}

// RedisStore keeps sessions as hashes under session:<token>, indexed per
// user in the set user_sessions:<id>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// OpenRedisPool initializes a Redis connection pool
func OpenRedisPool(ctx context.Context, dsn string) (*redis.Client, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis DSN: %w", err)
	}

	opt.PoolSize = 100
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

func sessionKey(token string) string {
	return "session:" + token
}

func userSessionsKey(userID string) string {
	return "user_sessions:" + userID
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// StoreSession saves a session in Redis
func (s *RedisStore) StoreSession(ctx context.Context, session models.Session, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	userID := strconv.FormatInt(session.UserID, 10)
	sessionMap := map[string]any{
		"user_id":       userID,
		"user_name":     session.UserName,
		"created_at":    session.CreatedAt,
		"expires_at":    session.ExpiresAt,
		"last_activity": session.LastActivity,
		"csrf_token":    session.CSRFToken,
		"user_agent":    session.UserAgent,
		"ip_address":    session.IPAddress,
	}

	key := sessionKey(session.SessionToken)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, sessionMap)
		pipe.Expire(ctx, key, ttl)
		pipe.SAdd(ctx, userSessionsKey(userID), key)
		pipe.Expire(ctx, userSessionsKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// GetSession retrieves session details from Redis. Expired sessions are
// reported as missing.
func (s *RedisStore) GetSession(ctx context.Context, sessionToken string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	data, err := s.client.HGetAll(ctx, sessionKey(sessionToken)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrSessionNotFound
	}

	expiresAt, err := time.Parse(time.RFC3339, data["expires_at"])
	if err != nil || !time.Now().Before(expiresAt) {
		return nil, ErrSessionNotFound
	}
	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session user id %q: %w", data["user_id"], err)
	}

	return &models.Session{
		SessionToken: sessionToken,
		UserID:       userID,
		UserName:     data["user_name"],
		CreatedAt:    data["created_at"],
		ExpiresAt:    data["expires_at"],
		LastActivity: data["last_activity"],
		CSRFToken:    data["csrf_token"],
		UserAgent:    data["user_agent"],
		IPAddress:    data["ip_address"],
	}, nil
}

// DeleteSession removes a single session and its reference in the user index
func (s *RedisStore) DeleteSession(ctx context.Context, sessionToken string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := sessionKey(sessionToken)
	userID, err := s.client.HGet(ctx, key, "user_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("reading session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, userSessionsKey(userID), key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// UpdateLastActivity refreshes last_activity on a live session. A session
// that expired in the meantime is left absent and ErrSessionNotFound is
// returned.
func (s *RedisStore) UpdateLastActivity(ctx context.Context, sessionToken string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := sessionKey(sessionToken)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSessionNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "last_activity", time.Now().Format(time.RFC3339))
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("updating last activity: %w", err)
	}
	return err
}
