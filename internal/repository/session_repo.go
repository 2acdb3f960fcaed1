package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"euroassist/internal/domain"
)

// SessionRepository guarda blobs de sesion por sid con vencimiento.
type SessionRepository interface {
	Save(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, sid string) (domain.Session, error)
	Delete(ctx context.Context, sid string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Save(ctx context.Context, session domain.Session) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	const query = `
		INSERT INTO sessions (sid, sess, expire)
		VALUES ($1, $2, $3)
		ON CONFLICT (sid) DO UPDATE SET sess = EXCLUDED.sess, expire = EXCLUDED.expire
	`
	if _, err := r.pool.Exec(ctx, query, session.ID, blob, session.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *PgSessionRepository) Get(ctx context.Context, sid string) (domain.Session, error) {
	const query = `SELECT sess, expire FROM sessions WHERE sid = $1 AND expire > $2`
	var (
		blob   []byte
		expire time.Time
	)
	if err := r.pool.QueryRow(ctx, query, sid, time.Now().UTC()).Scan(&blob, &expire); err != nil {
		return domain.Session{}, notFoundOr(err)
	}
	var session domain.Session
	if err := json.Unmarshal(blob, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	session.ID = sid
	session.ExpiresAt = expire
	return session, nil
}

func (r *PgSessionRepository) Delete(ctx context.Context, sid string) error {
	const query = `DELETE FROM sessions WHERE sid = $1`
	if _, err := r.pool.Exec(ctx, query, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *PgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expire <= $1`
	tag, err := r.pool.Exec(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
