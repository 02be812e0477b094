package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const uniqueViolation = "23505"

// ErrNotFound is returned when a ticket or user does not exist.
var ErrNotFound = sql.ErrNoRows

// ErrInvalidMutation is returned when a mutation does not append exactly one
// timeline event or rewrites existing history.
var ErrInvalidMutation = errors.New("mutation must append exactly one timeline event")

// ErrDuplicate is returned when creating a ticket whose id already exists.
var ErrDuplicate = errors.New("ticket already exists")

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	OwnerID *string
}

// MutateFunc validates and applies a change to a loaded ticket.
// Returning an error aborts the mutation without writing anything.
type MutateFunc func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	NextID(ctx context.Context, prefix string, at time.Time) (string, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Mutate loads the ticket, applies fn and persists the result as one
	// atomic unit per ticket.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error)
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ticketRepository struct {
	db *sql.DB
}

// NewTicketRepository instantiates a Postgres-backed repository.
func NewTicketRepository(db *sql.DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketSelect = `
        SELECT t.id, t.title, t.description, t.category, t.priority, t.status,
               t.assigned_admin_id, t.assigned_admin_name, t.attachments, t.created_at, t.updated_at,
               u.id, u.name, u.email, u.department, u.role
        FROM tickets t JOIN users u ON u.id = t.created_by`

const timelineSelect = `
        SELECT id, ticket_id, event_type, message, actor_user_id, actor_name, actor_role, detail, created_at
        FROM ticket_timeline_events`

func (r *ticketRepository) NextID(ctx context.Context, prefix string, at time.Time) (string, error) {
	const query = `
        INSERT INTO ticket_sequences (year, last_value) VALUES ($1, 1)
        ON CONFLICT (year) DO UPDATE SET last_value = ticket_sequences.last_value + 1
        RETURNING last_value`
	year := at.UTC().Year()
	var seq int
	if err := r.db.QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		return "", err
	}
	return domain.FormatTicketID(prefix, year, seq), nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, category, priority, status, created_by,
                             assigned_admin_id, assigned_admin_name, attachments, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	attachments, err := encodeAttachments(ticket.Attachments)
	if err != nil {
		return err
	}
	adminID, adminName := assigneeColumns(ticket.AssignedTo)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedBy.ID,
		adminID,
		adminName,
		attachments,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	for i := range ticket.Timeline {
		if err := insertEvent(ctx, tx, ticket.ID, i, ticket.Timeline[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.load(ctx, r.db, ticketSelect+` WHERE t.id=$1`, id)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := ticketSelect
	eventsQuery := timelineSelect
	args := []any{}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		query += fmt.Sprintf(" WHERE t.created_by=$%d", len(args))
		eventsQuery += fmt.Sprintf(" WHERE ticket_id IN (SELECT id FROM tickets WHERE created_by=$%d)", len(args))
	}
	query += " ORDER BY t.created_at DESC, t.id DESC"
	eventsQuery += " ORDER BY ticket_id, position"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	index := map[string]int{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		index[ticket.ID] = len(result)
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	eventRows, err := r.db.QueryContext(ctx, eventsQuery, args...)
	if err != nil {
		return nil, err
	}
	defer eventRows.Close()
	for eventRows.Next() {
		ticketID, event, err := scanEvent(eventRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[ticketID]; ok {
			result[i].Timeline = append(result[i].Timeline, event)
		}
	}
	return result, eventRows.Err()
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error) {
	const update = `
        UPDATE tickets SET status=$1, assigned_admin_id=$2, assigned_admin_name=$3, updated_at=$4
        WHERE id=$5`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := r.load(ctx, tx, ticketSelect+` WHERE t.id=$1 FOR UPDATE OF t`, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := verifyMutation(current, next); err != nil {
		return nil, err
	}

	adminID, adminName := assigneeColumns(next.AssignedTo)
	if _, err := tx.ExecContext(ctx, update, next.Status, adminID, adminName, next.UpdatedAt, next.ID); err != nil {
		return nil, err
	}
	position := len(current.Timeline)
	if err := insertEvent(ctx, tx, next.ID, position, next.Timeline[position]); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func (r *ticketRepository) load(ctx context.Context, q queryer, query, id string) (*domain.Ticket, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	ticket, err := scanTicket(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	eventRows, err := q.QueryContext(ctx, timelineSelect+` WHERE ticket_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer eventRows.Close()
	for eventRows.Next() {
		_, event, err := scanEvent(eventRows)
		if err != nil {
			return nil, err
		}
		ticket.Timeline = append(ticket.Timeline, event)
	}
	return ticket, eventRows.Err()
}

func verifyMutation(before, after *domain.Ticket) error {
	if len(after.Timeline) != len(before.Timeline)+1 {
		return ErrInvalidMutation
	}
	for i := range before.Timeline {
		if after.Timeline[i].ID != before.Timeline[i].ID {
			return ErrInvalidMutation
		}
	}
	if after.ID != before.ID || after.CreatedBy.ID != before.CreatedBy.ID || !after.CreatedAt.Equal(before.CreatedAt) {
		return ErrInvalidMutation
	}
	return nil
}

func insertEvent(ctx context.Context, q queryer, ticketID string, position int, event domain.TimelineEvent) error {
	const query = `
        INSERT INTO ticket_timeline_events (id, ticket_id, position, event_type, message,
                                            actor_user_id, actor_name, actor_role, detail, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	detail, err := domain.MarshalDetail(event.Detail)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query,
		event.ID,
		ticketID,
		position,
		event.Type,
		event.Message,
		event.Actor.UserID,
		event.Actor.Name,
		event.Actor.Role,
		detail,
		event.At,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		adminID     sql.NullString
		adminName   sql.NullString
		attachments []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&adminID,
		&adminName,
		&attachments,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CreatedBy.ID,
		&ticket.CreatedBy.Name,
		&ticket.CreatedBy.Email,
		&ticket.CreatedBy.Department,
		&ticket.CreatedBy.Role,
	); err != nil {
		return nil, err
	}
	if adminID.Valid {
		ticket.AssignedTo = &domain.Assignee{AdminID: adminID.String, Name: adminName.String}
	}
	decoded, err := decodeAttachments(attachments)
	if err != nil {
		return nil, err
	}
	ticket.Attachments = decoded
	return &ticket, nil
}

func scanEvent(row rowScanner) (string, domain.TimelineEvent, error) {
	var (
		ticketID string
		event    domain.TimelineEvent
		detail   []byte
	)
	if err := row.Scan(
		&event.ID,
		&ticketID,
		&event.Type,
		&event.Message,
		&event.Actor.UserID,
		&event.Actor.Name,
		&event.Actor.Role,
		&detail,
		&event.At,
	); err != nil {
		return "", event, err
	}
	decoded, err := domain.UnmarshalDetail(event.Type, detail)
	if err != nil {
		return "", event, err
	}
	event.Detail = decoded
	return ticketID, event, nil
}

type attachmentRecord struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func encodeAttachments(attachments []domain.Attachment) ([]byte, error) {
	records := make([]attachmentRecord, 0, len(attachments))
	for _, a := range attachments {
		records = append(records, attachmentRecord{Name: a.Name, URL: a.URL})
	}
	return json.Marshal(records)
}

func decodeAttachments(raw []byte) ([]domain.Attachment, error) {
	if len(raw) == 0 {
		return []domain.Attachment{}, nil
	}
	var records []attachmentRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	attachments := make([]domain.Attachment, 0, len(records))
	for _, rec := range records {
		attachments = append(attachments, domain.Attachment{Name: rec.Name, URL: rec.URL})
	}
	return attachments, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func assigneeColumns(assignee *domain.Assignee) (any, any) {
	if assignee == nil {
		return nil, nil
	}
	return assignee.AdminID, assignee.Name
}
