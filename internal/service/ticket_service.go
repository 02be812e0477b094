package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/ids"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	policy     domain.TransitionPolicy
	idPrefix   string
	now        func() time.Time
	eventID    func() string
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Policy     domain.TransitionPolicy
	IDPrefix   string
	Clock      func() time.Time
	EventIDs   func() string
}

// TicketListFilter describes listing filters. OwnerID is honored for admins;
// other viewers always list their own tickets.
type TicketListFilter struct {
	OwnerID string
	Query   string
	Status  string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		policy:     deps.Policy,
		idPrefix:   deps.IDPrefix,
		now:        deps.Clock,
		eventID:    deps.EventIDs,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.policy == nil {
		s.policy = domain.PermissivePolicy{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.eventID == nil {
		s.eventID = ids.EventID
	}
	return s
}

// ListTickets returns the tickets visible to viewer, newest first.
func (s *TicketService) ListTickets(ctx context.Context, viewer *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	status := strings.TrimSpace(filter.Status)
	if status != "" && status != domain.StatusFilterAll && !domain.TicketStatus(status).Valid() {
		return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
	}

	var repoFilter repository.TicketFilter
	ownerID := strings.TrimSpace(filter.OwnerID)
	switch {
	case !viewer.IsAdmin():
		if ownerID != "" && ownerID != viewer.ID {
			return nil, apperrors.NewForbidden("employees may only list their own tickets")
		}
		repoFilter.OwnerID = &viewer.ID
	case ownerID != "":
		repoFilter.OwnerID = &ownerID
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	filtered := domain.FilterTickets(tickets, filter.Query, status)
	result := make([]domain.Ticket, 0, len(filtered))
	for i := range filtered {
		result = append(result, *filtered[i].VisibleTo(viewer))
	}
	return result, nil
}

// GetTicket returns a single ticket as viewer may see it.
func (s *TicketService) GetTicket(ctx context.Context, viewer *domain.User, id string) (*domain.Ticket, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	if !domain.CanView(viewer, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket.VisibleTo(viewer), nil
}

// CreateTicket opens a ticket on behalf of creator.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.User, input domain.TicketInput) (*domain.Ticket, error) {
	if creator == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	id, err := s.tickets.NextID(ctx, s.idPrefix, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket, err := domain.NewTicket(id, input, creator, now, s.eventID())
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("ticket id already in use", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.recordLastEvent(ticket)
	s.publishEvent(ctx, ticket, creator, events.EventTicketCreated, events.TicketCreatedPayload{
		Title:    ticket.Title,
		Category: ticket.Category,
		Priority: ticket.Priority,
	})
	return ticket.VisibleTo(creator), nil
}

// AssignTicket assigns the ticket to an existing admin. A blank adminName
// falls back to the directory name of the admin.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.User, id, adminID, adminName string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !domain.CanAssign(actor) {
		return nil, apperrors.NewForbidden("admin role required to assign tickets")
	}
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return nil, apperrors.NewValidationError("adminId required", nil)
	}
	target, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("admin", map[string]any{"adminId": adminID})
		}
		return nil, apperrors.MapError(err)
	}
	if !target.IsAdmin() {
		return nil, apperrors.NewValidationError("assignee must be an admin", map[string]any{"adminId": adminID})
	}
	if strings.TrimSpace(adminName) == "" {
		adminName = target.Name
	}

	ticket, err := s.mutate(ctx, id, func(t *domain.Ticket) error {
		return t.Assign(target.ID, adminName, actor, s.now(), s.eventID())
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, ticket, actor, events.EventTicketAssigned, events.TicketAssignedPayload{
		AdminID:   ticket.AssignedTo.AdminID,
		AdminName: ticket.AssignedTo.Name,
	})
	return ticket.VisibleTo(actor), nil
}

// SetTicketStatus changes the ticket status.
func (s *TicketService) SetTicketStatus(ctx context.Context, actor *domain.User, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	var oldStatus domain.TicketStatus
	ticket, err := s.mutate(ctx, id, func(t *domain.Ticket) error {
		oldStatus = t.Status
		return t.ChangeStatus(status, actor, s.policy, s.now(), s.eventID())
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, ticket, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
	})
	return ticket.VisibleTo(actor), nil
}

// AppendReply adds a public reply or an internal note.
func (s *TicketService) AppendReply(ctx context.Context, actor *domain.User, id, message string, isInternal bool) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.mutate(ctx, id, func(t *domain.Ticket) error {
		return t.AddReply(message, actor, isInternal, s.now(), s.eventID())
	})
	if err != nil {
		return nil, err
	}
	last := ticket.Timeline[len(ticket.Timeline)-1]
	s.publishEvent(ctx, ticket, actor, events.EventTicketReplyAdded, events.TicketReplyAddedPayload{
		Internal:    isInternal,
		BodyPreview: preview(last.Message),
	})
	return ticket.VisibleTo(actor), nil
}

func (s *TicketService) mutate(ctx context.Context, id string, fn repository.MutateFunc) (*domain.Ticket, error) {
	ticket, err := s.tickets.Mutate(ctx, id, fn)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	s.recordLastEvent(ticket)
	return ticket, nil
}

func (s *TicketService) mapRepoError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func (s *TicketService) recordLastEvent(ticket *domain.Ticket) {
	if len(ticket.Timeline) == 0 {
		return
	}
	s.metrics.RecordTimelineEvent(string(ticket.Timeline[len(ticket.Timeline)-1].Type))
}

func (s *TicketService) publishEvent(ctx context.Context, ticket *domain.Ticket, actor *domain.User, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		OwnerID:   ticket.CreatedBy.ID,
		Actor:     events.ActorFromUser(actor),
		Timestamp: ticket.UpdatedAt,
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func preview(message string) string {
	const limit = 80
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + "…"
}
