package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const sessionKeyPrefix = "portal_session:"

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session: not found")

// Store keeps active portal sessions in redis so tokens are revocable and
// expire server-side regardless of the JWT lifetime.
type Store struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewStore creates a redis-backed session store.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{
		redis:  redisClient,
		tracer: otel.Tracer("portal.internal.session.store"),
		ttl:    ttl,
	}
}

// Put records an active session id for a patient.
func (s *Store) Put(ctx context.Context, sessionID string, patientID int64) error {
	if s == nil || s.redis == nil {
		return errors.New("session: store not configured")
	}
	if sessionID == "" || patientID <= 0 {
		return errors.New("session: session id and patient id required")
	}
	ctx, span := s.tracer.Start(ctx, "session.store.put")
	defer span.End()

	key := sessionKey(sessionID)
	if err := s.redis.Set(ctx, key, strconv.FormatInt(patientID, 10), s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: store session: %w", err)
	}
	return nil
}

// Get resolves a session id back to its patient id.
func (s *Store) Get(ctx context.Context, sessionID string) (int64, error) {
	if s == nil || s.redis == nil {
		return 0, errors.New("session: store not configured")
	}
	ctx, span := s.tracer.Start(ctx, "session.store.get")
	defer span.End()

	val, err := s.redis.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("session: load session: %w", err)
	}
	patientID, err := strconv.ParseInt(val, 10, 64)
	if err != nil || patientID <= 0 {
		return 0, fmt.Errorf("session: corrupt session value %q", val)
	}
	return patientID, nil
}

// Revoke removes a session so its token stops working immediately.
func (s *Store) Revoke(ctx context.Context, sessionID string) error {
	if s == nil || s.redis == nil {
		return errors.New("session: store not configured")
	}
	ctx, span := s.tracer.Start(ctx, "session.store.revoke")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: revoke session: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}
