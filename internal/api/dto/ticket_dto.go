package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Attachments []AttachmentDTO       `json:"attachments"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AdminID   string `json:"adminId"`
	AdminName string `json:"adminName"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ReplyRequest payload.
type ReplyRequest struct {
	Message    string `json:"message"`
	IsInternal bool   `json:"isInternal"`
}

// AttachmentDTO is attachment metadata.
type AttachmentDTO struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AssigneeDTO names the admin a ticket is assigned to.
type AssigneeDTO struct {
	AdminID string `json:"adminId"`
	Name    string `json:"name"`
}

// ActorDTO identifies who produced a timeline event.
type ActorDTO struct {
	UserID string      `json:"userId,omitempty"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

// TimelineEventResponse is one entry of the ticket history.
type TimelineEventResponse struct {
	ID      string                   `json:"id"`
	At      time.Time                `json:"at"`
	Type    domain.TimelineEventType `json:"type"`
	Message string                   `json:"message"`
	Actor   ActorDTO                 `json:"actor"`
	Detail  json.RawMessage          `json:"detail,omitempty"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Category    domain.TicketCategory   `json:"category"`
	Priority    domain.TicketPriority   `json:"priority"`
	Status      domain.TicketStatus     `json:"status"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
	CreatedBy   UserResponse            `json:"createdBy"`
	AssignedTo  *AssigneeDTO            `json:"assignedTo"`
	Attachments []AttachmentDTO         `json:"attachments"`
	Timeline    []TimelineEventResponse `json:"timeline"`
}

// ToTicketInput converts the request into domain input.
func (r CreateTicketRequest) ToTicketInput() domain.TicketInput {
	attachments := make([]domain.Attachment, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		attachments = append(attachments, domain.Attachment{Name: a.Name, URL: a.URL})
	}
	return domain.TicketInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Attachments: attachments,
	}
}

// FromTicket converts a ticket already projected for its viewer.
func FromTicket(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CreatedBy:   FromUser(&t.CreatedBy),
		Attachments: make([]AttachmentDTO, 0, len(t.Attachments)),
		Timeline:    make([]TimelineEventResponse, 0, len(t.Timeline)),
	}
	if t.AssignedTo != nil {
		resp.AssignedTo = &AssigneeDTO{AdminID: t.AssignedTo.AdminID, Name: t.AssignedTo.Name}
	}
	for _, a := range t.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentDTO{Name: a.Name, URL: a.URL})
	}
	for _, e := range t.Timeline {
		event := TimelineEventResponse{
			ID:      e.ID,
			At:      e.At,
			Type:    e.Type,
			Message: e.Message,
			Actor:   ActorDTO{UserID: e.Actor.UserID, Name: e.Actor.Name, Role: e.Actor.Role},
		}
		if raw, err := domain.MarshalDetail(e.Detail); err == nil && raw != nil {
			event.Detail = raw
		}
		resp.Timeline = append(resp.Timeline, event)
	}
	return resp
}

// FromTickets converts a listing.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	resp := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, FromTicket(&tickets[i]))
	}
	return resp
}
