package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen           TicketStatus = "Open"
	TicketStatusInProgress     TicketStatus = "In Progress"
	TicketStatusWaitingForUser TicketStatus = "Waiting for User"
	TicketStatusResolved       TicketStatus = "Resolved"
	TicketStatusClosed         TicketStatus = "Closed"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaitingForUser,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// TicketCategory classifies what the request is about.
type TicketCategory string

const (
	TicketCategoryLaptop   TicketCategory = "Laptop"
	TicketCategoryNetwork  TicketCategory = "Network"
	TicketCategorySoftware TicketCategory = "Software"
	TicketCategoryAccess   TicketCategory = "Access"
	TicketCategoryOther    TicketCategory = "Other"
)

// TicketCategories lists every category.
var TicketCategories = []TicketCategory{
	TicketCategoryLaptop,
	TicketCategoryNetwork,
	TicketCategorySoftware,
	TicketCategoryAccess,
	TicketCategoryOther,
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	for _, candidate := range TicketCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Assignee references the administrator working a ticket.
type Assignee struct {
	AdminID string
	Name    string
}

// Attachment is a file reference carried by a ticket.
type Attachment struct {
	Name string
	URL  string
}

// Ticket is the aggregate for helpdesk requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	CreatedBy   User
	AssignedTo  *Assignee
	Attachments []Attachment
	Timeline    []TimelineEvent
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy so callers can mutate it without affecting the source.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		cp.AssignedTo = &assignee
	}
	cp.Attachments = append([]Attachment(nil), t.Attachments...)
	cp.Timeline = append([]TimelineEvent(nil), t.Timeline...)
	return &cp
}

// FormatTicketID renders the human readable identifier, e.g. IT-2026-0123.
func FormatTicketID(prefix string, year, seq int) string {
	if prefix == "" {
		prefix = "IT"
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}
