package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"euroassist/internal/domain"
)

// ChatRepository persiste conversaciones. Toda lectura o escritura por id
// filtra tambien por user_id: el id de chat por si solo nunca autoriza.
type ChatRepository interface {
	Create(ctx context.Context, chat domain.Chat) error
	ListByUserID(ctx context.Context, userID string) ([]domain.Chat, error)
	GetByIDForUser(ctx context.Context, chatID, userID string) (domain.Chat, error)
	Rename(ctx context.Context, chatID, userID, title string, at time.Time) (domain.Chat, error)
	Delete(ctx context.Context, chatID, userID string) error
	Touch(ctx context.Context, chatID string, at time.Time) error
}

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

const chatColumns = `id::text, user_id, title, created_at, updated_at`

func (r *PgChatRepository) Create(ctx context.Context, chat domain.Chat) error {
	const query = `
		INSERT INTO chats (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		chat.ID,
		chat.UserID,
		chat.Title,
		chat.CreatedAt,
		chat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

func (r *PgChatRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	chats := []domain.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *PgChatRepository) GetByIDForUser(ctx context.Context, chatID, userID string) (domain.Chat, error) {
	if !validID(chatID) {
		return domain.Chat{}, ErrNotFound
	}
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1 AND user_id = $2`
	chat, err := scanChat(r.pool.QueryRow(ctx, query, chatID, userID))
	return chat, notFoundOr(err)
}

// Rename devuelve ErrNotFound si el chat no existe o es de otro usuario; en ese caso no modifica nada.
func (r *PgChatRepository) Rename(ctx context.Context, chatID, userID, title string, at time.Time) (domain.Chat, error) {
	if !validID(chatID) {
		return domain.Chat{}, ErrNotFound
	}
	query := `
		UPDATE chats SET title = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
		RETURNING ` + chatColumns
	chat, err := scanChat(r.pool.QueryRow(ctx, query, title, at, chatID, userID))
	return chat, notFoundOr(err)
}

// Delete elimina el chat y, por cascada, sus mensajes. Un chat ajeno o inexistente es un no-op.
func (r *PgChatRepository) Delete(ctx context.Context, chatID, userID string) error {
	if !validID(chatID) {
		return nil
	}
	const query = `DELETE FROM chats WHERE id = $1 AND user_id = $2`
	if _, err := r.pool.Exec(ctx, query, chatID, userID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

func (r *PgChatRepository) Touch(ctx context.Context, chatID string, at time.Time) error {
	const query = `UPDATE chats SET updated_at = $2 WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, chatID, at); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	return nil
}

func scanChat(row pgx.Row) (domain.Chat, error) {
	var c domain.Chat
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
