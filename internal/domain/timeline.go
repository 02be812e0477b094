package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimelineEventType identifies how a timeline entry was produced.
type TimelineEventType string

const (
	EventCreated       TimelineEventType = "CREATED"
	EventAssigned      TimelineEventType = "ASSIGNED"
	EventStatusChanged TimelineEventType = "STATUS_CHANGED"
	EventPublicReply   TimelineEventType = "PUBLIC_REPLY"
	EventInternalNote  TimelineEventType = "INTERNAL_NOTE"
)

// Valid reports whether t is a known event type.
func (t TimelineEventType) Valid() bool {
	switch t {
	case EventCreated, EventAssigned, EventStatusChanged, EventPublicReply, EventInternalNote:
		return true
	}
	return false
}

// Actor is the snapshot of who performed an action.
type Actor struct {
	UserID string
	Name   string
	Role   Role
}

// EventDetail carries the fields specific to one event kind.
// Only the types in this package implement it.
type EventDetail interface {
	eventType() TimelineEventType
}

// AssignedDetail records the admin a ticket was assigned to.
type AssignedDetail struct {
	AdminID   string `json:"adminId"`
	AdminName string `json:"adminName"`
}

func (AssignedDetail) eventType() TimelineEventType { return EventAssigned }

// StatusChangedDetail records both sides of a status change.
type StatusChangedDetail struct {
	From TicketStatus `json:"from"`
	To   TicketStatus `json:"to"`
}

func (StatusChangedDetail) eventType() TimelineEventType { return EventStatusChanged }

// TimelineEvent is an immutable entry of a ticket's audit history.
type TimelineEvent struct {
	ID      string
	At      time.Time
	Type    TimelineEventType
	Message string
	Actor   Actor
	Detail  EventDetail
}

// MarshalDetail encodes detail for storage. Events without detail yield nil.
func MarshalDetail(detail EventDetail) ([]byte, error) {
	if detail == nil {
		return nil, nil
	}
	return json.Marshal(detail)
}

// UnmarshalDetail decodes stored detail according to the event type.
func UnmarshalDetail(eventType TimelineEventType, raw []byte) (EventDetail, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch eventType {
	case EventAssigned:
		var detail AssignedDetail
		if err := json.Unmarshal(raw, &detail); err != nil {
			return nil, fmt.Errorf("decode %s detail: %w", eventType, err)
		}
		return detail, nil
	case EventStatusChanged:
		var detail StatusChangedDetail
		if err := json.Unmarshal(raw, &detail); err != nil {
			return nil, fmt.Errorf("decode %s detail: %w", eventType, err)
		}
		return detail, nil
	default:
		return nil, nil
	}
}
