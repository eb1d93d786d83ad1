package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service issues and verifies patient session tokens. Tokens are HMAC-signed
// JWTs whose subject is the patient id and whose jti must still exist in the
// session store, so revocation wins over the JWT expiry.
type Service struct {
	secret []byte
	store  *Store
	ttl    time.Duration
}

// NewService creates a session service.
func NewService(secret string, store *Store, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("session: signing secret required")
	}
	if store == nil {
		return nil, errors.New("session: store required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{secret: []byte(secret), store: store, ttl: ttl}, nil
}

// Issue creates a session for the patient and returns the signed token.
func (s *Service) Issue(ctx context.Context, patientID int64) (string, error) {
	if patientID <= 0 {
		return "", errors.New("session: patient id required")
	}
	sessionID := uuid.NewString()
	if err := s.store.Put(ctx, sessionID, patientID); err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(patientID, 10),
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the token signature and that the session is still active,
// returning the patient id it was issued for.
func (s *Service) Verify(ctx context.Context, tokenString string) (int64, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("session: invalid token")
	}
	patientID, err := s.store.Get(ctx, claims.ID)
	if err != nil {
		return 0, err
	}
	subject, convErr := strconv.ParseInt(claims.Subject, 10, 64)
	if convErr != nil || subject != patientID {
		return 0, errors.New("session: token subject mismatch")
	}
	return patientID, nil
}

// Revoke ends the session referenced by the token, ignoring signature expiry
// so logout works even with a stale token.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return errors.New("session: invalid token")
	}
	return s.store.Revoke(ctx, claims.ID)
}
