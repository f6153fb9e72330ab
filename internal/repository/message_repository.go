package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

// MessageRepository encapsulates message persistence. Messages are append
// only; the single mutation is the bulk is_read flip done by MarkRead.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Message, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
	MarkRead(ctx context.Context, ticketID, excludingSenderID string) (int64, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates the repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return errorutil.NewValidationError(err.Error(), nil)
	}
	if msg.Attachments == nil {
		msg.Attachments = []domain.Attachment{}
	}
	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO messages (ticket_id, sender_id, sender_type, sender_name, content, attachments, is_read)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderID,
		msg.SenderType,
		msg.SenderName,
		msg.Content,
		attachments,
		msg.IsRead,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, sender_id, sender_type, sender_name, content, attachments, is_read, created_at
        FROM messages WHERE ticket_id=$1
        ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE ticket_id=$1`, ticketID).Scan(&total)
	return total, err
}

func (r *messageRepository) MarkRead(ctx context.Context, ticketID, excludingSenderID string) (int64, error) {
	const query = `
        UPDATE messages SET is_read=TRUE
        WHERE ticket_id=$1 AND sender_id<>$2 AND is_read=FALSE`
	cmd, err := r.pool.Exec(ctx, query, ticketID, excludingSenderID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var (
			msg         domain.Message
			attachments []byte
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderID,
			&msg.SenderType,
			&msg.SenderName,
			&msg.Content,
			&attachments,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
				return nil, err
			}
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
