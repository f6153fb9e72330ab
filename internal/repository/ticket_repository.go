package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

// TicketRepository encapsulates ticket persistence. Every id-keyed lookup
// that misses returns a typed not-found: callers racing a deletion is a
// normal outcome, not a fault.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
	AssignAgent(ctx context.Context, id, agentID string) (*domain.Ticket, error)
	RecordMessage(ctx context.Context, id, preview string) error
	SetLastMessage(ctx context.Context, id, preview string) error
	ResetUnread(ctx context.Context, id string) error
	NextTicketNumber(ctx context.Context) (string, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, user_id, agent_id, subject, category, status, priority,
               last_message, unread_count, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return errorutil.NewValidationError(err.Error(), nil)
	}
	if ticket.TicketNumber == "" {
		number, err := r.NextTicketNumber(ctx)
		if err != nil {
			return err
		}
		ticket.TicketNumber = number
	}
	if ticket.Category == "" {
		ticket.Category = domain.CategoryGeneral
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	const query = `
        INSERT INTO tickets (ticket_number, user_id, agent_id, subject, category, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.UserID,
		ticket.AgentID,
		strings.TrimSpace(ticket.Subject),
		ticket.Category,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.UserID,
		&ticket.AgentID,
		&ticket.Subject,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.LastMessage,
		&ticket.UnreadCount,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewTicketNotFound()
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING %s`, ticketColumns)
	return r.scanUpdated(ctx, query, status, id)
}

func (r *ticketRepository) AssignAgent(ctx context.Context, id, agentID string) (*domain.Ticket, error) {
	// Assignment always moves the ticket out of pure open.
	query := fmt.Sprintf(`
        UPDATE tickets SET agent_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING %s`, ticketColumns)
	return r.scanUpdated(ctx, query, agentID, domain.TicketStatusPending, id)
}

func (r *ticketRepository) RecordMessage(ctx context.Context, id, preview string) error {
	const query = `
        UPDATE tickets SET last_message=$1, unread_count=unread_count+1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, domain.MessagePreview(preview), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errorutil.NewTicketNotFound()
	}
	return nil
}

func (r *ticketRepository) SetLastMessage(ctx context.Context, id, preview string) error {
	// Preview refresh without an unread bump, used for system narrations.
	const query = `
        UPDATE tickets SET last_message=$1, updated_at=NOW()
        WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, domain.MessagePreview(preview), id)
	return err
}

func (r *ticketRepository) ResetUnread(ctx context.Context, id string) error {
	const query = `UPDATE tickets SET unread_count=0 WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *ticketRepository) NextTicketNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%06d", seq), nil
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets WHERE user_id=$1
        ORDER BY updated_at DESC LIMIT $2 OFFSET $3`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.UserID,
			&ticket.AgentID,
			&ticket.Subject,
			&ticket.Category,
			&ticket.Status,
			&ticket.Priority,
			&ticket.LastMessage,
			&ticket.UnreadCount,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) scanUpdated(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.UserID,
		&ticket.AgentID,
		&ticket.Subject,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.LastMessage,
		&ticket.UnreadCount,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewTicketNotFound()
		}
		return nil, err
	}
	return &ticket, nil
}
