package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketInput is what a requester submits when opening a ticket.
type TicketInput struct {
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Attachments []Attachment
}

// Validate checks required fields and enum membership.
func (in TicketInput) Validate() error {
	missing := []string{}
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if !in.Category.Valid() {
		return apperrors.NewValidationError("invalid category", map[string]any{"category": in.Category})
	}
	if !in.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": in.Priority})
	}
	return nil
}

// NewTicket builds a freshly opened ticket with its CREATED event.
func NewTicket(id string, input TicketInput, creator *User, now time.Time, eventID string) (*Ticket, error) {
	if creator == nil {
		return nil, apperrors.NewUnauthorized("creator required")
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("ticket id required", nil)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	ticket := &Ticket{
		ID:          id,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      TicketStatusOpen,
		CreatedBy:   *creator,
		Attachments: append([]Attachment(nil), input.Attachments...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ticket.CreatedBy.PasswordHash = ""
	ticket.append(TimelineEvent{
		ID:      eventID,
		At:      now,
		Type:    EventCreated,
		Message: "Ticket created",
		Actor:   creator.ActorSnapshot(),
	})
	return ticket, nil
}

// ChangeStatus moves the ticket to newStatus and records a STATUS_CHANGED event.
// Setting the current status again still records an event.
func (t *Ticket) ChangeStatus(newStatus TicketStatus, actor *User, policy TransitionPolicy, now time.Time, eventID string) error {
	if !CanChangeStatus(actor) {
		return apperrors.NewForbidden("admin role required to change status")
	}
	if !newStatus.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	if policy == nil {
		policy = PermissivePolicy{}
	}
	oldStatus := t.Status
	if !policy.Allows(oldStatus, newStatus) {
		return apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": oldStatus,
			"to":   newStatus,
		})
	}
	t.Status = newStatus
	t.append(TimelineEvent{
		ID:      eventID,
		At:      now,
		Type:    EventStatusChanged,
		Message: fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus),
		Actor:   actor.ActorSnapshot(),
		Detail:  StatusChangedDetail{From: oldStatus, To: newStatus},
	})
	return nil
}

// Assign sets the assignee, replacing any previous one.
func (t *Ticket) Assign(adminID, adminName string, actor *User, now time.Time, eventID string) error {
	if !CanAssign(actor) {
		return apperrors.NewForbidden("admin role required to assign tickets")
	}
	adminID = strings.TrimSpace(adminID)
	adminName = strings.TrimSpace(adminName)
	if adminID == "" || adminName == "" {
		return apperrors.NewValidationError("adminId and adminName required", nil)
	}
	t.AssignedTo = &Assignee{AdminID: adminID, Name: adminName}
	t.append(TimelineEvent{
		ID:      eventID,
		At:      now,
		Type:    EventAssigned,
		Message: "Assigned to " + adminName,
		Actor:   actor.ActorSnapshot(),
		Detail:  AssignedDetail{AdminID: adminID, AdminName: adminName},
	})
	return nil
}

// AddReply appends a public reply or, for admins, an internal note.
// The status is left untouched.
func (t *Ticket) AddReply(message string, actor *User, isInternal bool, now time.Time, eventID string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("actor required")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return apperrors.NewValidationError("message required", nil)
	}
	if isInternal && !CanPostInternal(actor) {
		return apperrors.NewForbidden("only admins may post internal notes")
	}
	if !CanReply(actor, t) {
		return apperrors.NewForbidden("access denied")
	}
	eventType := EventPublicReply
	if isInternal {
		eventType = EventInternalNote
	}
	t.append(TimelineEvent{
		ID:      eventID,
		At:      now,
		Type:    eventType,
		Message: message,
		Actor:   actor.ActorSnapshot(),
	})
	return nil
}

// VisibleTo returns a copy of the ticket as the viewer is allowed to see it.
// Non-admin viewers never receive INTERNAL_NOTE events.
func (t *Ticket) VisibleTo(viewer *User) *Ticket {
	cp := t.Clone()
	if viewer.IsAdmin() {
		return cp
	}
	visible := make([]TimelineEvent, 0, len(cp.Timeline))
	for _, event := range cp.Timeline {
		if event.Type == EventInternalNote {
			continue
		}
		visible = append(visible, event)
	}
	cp.Timeline = visible
	return cp
}

func (t *Ticket) append(event TimelineEvent) {
	t.Timeline = append(t.Timeline, event)
	t.UpdatedAt = event.At
}

// CanView reports whether u may read the ticket.
func CanView(u *User, t *Ticket) bool {
	if u == nil || t == nil {
		return false
	}
	return u.IsAdmin() || t.CreatedBy.ID == u.ID
}

// CanReply reports whether u may post a public reply on the ticket.
func CanReply(u *User, t *Ticket) bool {
	return CanView(u, t)
}

// CanPostInternal reports whether u may post internal notes.
func CanPostInternal(u *User) bool { return u.IsAdmin() }

// CanAssign reports whether u may assign tickets.
func CanAssign(u *User) bool { return u.IsAdmin() }

// CanChangeStatus reports whether u may change ticket status.
func CanChangeStatus(u *User) bool { return u.IsAdmin() }
