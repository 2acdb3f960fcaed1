package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"euroassist/internal/domain"
)

// SessionService emite y valida la cookie de sesion. La cookie es un JWT HS256 cuyo
// jti es el sid; la sesion solo es valida mientras el store la conserve.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  SessionStore
	now    func() time.Time
}

// IssuedSession es el valor a escribir en la cookie y su vencimiento.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func NewSessionService(secret string, ttl time.Duration, store SessionStore) *SessionService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if store == nil {
		store = NewMemorySessionStore()
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "euroassist",
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionService) TTL() time.Duration { return s.ttl }

// Create abre una sesion nueva para userID.
func (s *SessionService) Create(ctx context.Context, userID string) (IssuedSession, error) {
	if len(s.secret) == 0 || strings.TrimSpace(userID) == "" {
		return IssuedSession{}, ErrUnauthorized
	}
	now := s.now()
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return IssuedSession{}, err
	}

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return IssuedSession{}, err
	}
	return IssuedSession{Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Resolve devuelve el userID de la cookie o ErrUnauthorized.
func (s *SessionService) Resolve(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token, true)
	if err != nil {
		return "", ErrUnauthorized
	}
	session, err := s.store.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	if session.UserID != claims.Subject || session.Expired(s.now()) {
		return "", ErrUnauthorized
	}
	return session.UserID, nil
}

// Destroy revoca la sesion. Es idempotente y acepta cookies vencidas o invalidas.
func (s *SessionService) Destroy(ctx context.Context, token string) error {
	claims, err := s.parse(token, false)
	if err != nil {
		return nil
	}
	return s.store.Delete(ctx, claims.ID)
}

func (s *SessionService) parse(token string, validate bool) (sessionClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(token) == "" {
		return sessionClaims{}, ErrUnauthorized
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	var claims sessionClaims
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return sessionClaims{}, ErrUnauthorized
	}
	if strings.TrimSpace(claims.ID) == "" || strings.TrimSpace(claims.Subject) == "" {
		return sessionClaims{}, ErrUnauthorized
	}
	return claims, nil
}
