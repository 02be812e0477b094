package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReplyAdded    EventType = "ticket_reply_added"
)

// AllTypes lists every event type published by the ticket service.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketStatusChanged,
	EventTicketReplyAdded,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services after a ticket change
// was stored.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	OwnerID   string      `json:"owner_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AdminID   string `json:"admin_id"`
	AdminName string `json:"admin_name"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketReplyAddedPayload payload.
type TicketReplyAddedPayload struct {
	Internal    bool   `json:"internal"`
	BodyPreview string `json:"body_preview"`
}

// ActorFromUser snapshots the acting user.
func ActorFromUser(u *domain.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Name: u.Name, Role: u.Role}
}
