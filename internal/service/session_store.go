package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"euroassist/internal/domain"
	"euroassist/internal/repository"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore guarda sesiones por sid y permite revocarlas.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, sid string) (domain.Session, error)
	Delete(ctx context.Context, sid string) error
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]domain.Session
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string]domain.Session),
	}
}

func (s *memorySessionStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(session.ID) == "" {
		return nil
	}
	s.items[session.ID] = session
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, sid string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[sid]
	if !ok {
		return domain.Session{}, ErrSessionNotFound
	}
	if session.Expired(time.Now().UTC()) {
		delete(s.items, sid)
		return domain.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *memorySessionStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sid)
	return nil
}

// redisKVClient es el subconjunto de go-redis que usa el store (facilita mocks).
type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKVClient
	prefix string
}

func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "sess:",
	}
}

func (s *redisSessionStore) Save(ctx context.Context, session domain.Session) error {
	sid := strings.TrimSpace(session.ID)
	if sid == "" {
		return nil
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	blob, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+sid, blob, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, sid string) (domain.Session, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return domain.Session{}, ErrSessionNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := s.client.Get(ctx, s.prefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, err
	}
	session.ID = sid
	return session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sid string) error {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+sid).Err()
}

type pgSessionStore struct {
	repo repository.SessionRepository
}

// NewPgSessionStore persiste sesiones en la tabla sessions.
func NewPgSessionStore(repo repository.SessionRepository) SessionStore {
	return &pgSessionStore{repo: repo}
}

func (s *pgSessionStore) Save(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return nil
	}
	return s.repo.Save(ctx, session)
}

func (s *pgSessionStore) Get(ctx context.Context, sid string) (domain.Session, error) {
	session, err := s.repo.Get(ctx, sid)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Session{}, ErrSessionNotFound
	}
	return session, err
}

func (s *pgSessionStore) Delete(ctx context.Context, sid string) error {
	return s.repo.Delete(ctx, sid)
}

// RunSessionSweeper borra sesiones vencidas de Postgres cada interval hasta que ctx termine.
func RunSessionSweeper(ctx context.Context, logger *zap.Logger, repo repository.SessionRepository, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", zap.Int64("count", n))
			}
		}
	}
}
