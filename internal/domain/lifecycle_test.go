package domain

import (
	"fmt"
	"testing"
	"time"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	employee = &User{ID: "u1", Name: "Alice Employee", Email: "alice@corp.com", Role: RoleUser}
	other    = &User{ID: "u2", Name: "Bob Engineer", Email: "bob@corp.com", Role: RoleUser}
	admin    = &User{ID: "a1", Name: "Charlie Admin", Email: "charlie@corp.com", Role: RoleAdmin}
)

type eventIDs struct{ n int }

func (g *eventIDs) next() string {
	g.n++
	return fmt.Sprintf("evt-%d", g.n)
}

func validInput() TicketInput {
	return TicketInput{
		Title:       "VPN broken",
		Description: "Cannot connect from home",
		Category:    TicketCategoryNetwork,
		Priority:    TicketPriorityHigh,
	}
}

func newTestTicket(t *testing.T, ids *eventIDs) *Ticket {
	t.Helper()
	ticket, err := NewTicket("IT-2026-0001", validInput(), employee, time.Unix(1000, 0), ids.next())
	if err != nil {
		t.Fatalf("NewTicket: %v", err)
	}
	return ticket
}

func TestNewTicket(t *testing.T) {
	ids := &eventIDs{}
	now := time.Unix(1000, 0)
	ticket, err := NewTicket("IT-2026-0001", validInput(), employee, now, ids.next())
	if err != nil {
		t.Fatalf("NewTicket: %v", err)
	}
	if ticket.Status != TicketStatusOpen {
		t.Fatalf("status = %q, want Open", ticket.Status)
	}
	if ticket.ID == "" {
		t.Fatal("expected id")
	}
	if ticket.AssignedTo != nil {
		t.Fatalf("expected no assignee, got %+v", ticket.AssignedTo)
	}
	if len(ticket.Timeline) != 1 {
		t.Fatalf("timeline length = %d, want 1", len(ticket.Timeline))
	}
	created := ticket.Timeline[0]
	if created.Type != EventCreated || created.Actor.UserID != employee.ID || created.Actor.Role != RoleUser {
		t.Fatalf("unexpected created event: %+v", created)
	}
	if !ticket.CreatedAt.Equal(now) || !ticket.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not set to now: %v %v", ticket.CreatedAt, ticket.UpdatedAt)
	}
	if ticket.CreatedBy.ID != employee.ID {
		t.Fatalf("createdBy = %q", ticket.CreatedBy.ID)
	}
}

func TestNewTicketValidation(t *testing.T) {
	cases := map[string]func(in *TicketInput){
		"blank title":       func(in *TicketInput) { in.Title = "   " },
		"blank description": func(in *TicketInput) { in.Description = "" },
		"bad category":      func(in *TicketInput) { in.Category = "Printer" },
		"bad priority":      func(in *TicketInput) { in.Priority = "Urgent" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := NewTicket("IT-2026-0001", in, employee, time.Now(), "evt")
			if !apperrors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestChangeStatusEveryStatus(t *testing.T) {
	for _, from := range TicketStatuses {
		for _, to := range TicketStatuses {
			ids := &eventIDs{}
			ticket := newTestTicket(t, ids)
			ticket.Status = from
			before := len(ticket.Timeline)
			now := time.Unix(2000, 0)
			if err := ticket.ChangeStatus(to, admin, PermissivePolicy{}, now, ids.next()); err != nil {
				t.Fatalf("%s -> %s: %v", from, to, err)
			}
			if ticket.Status != to {
				t.Fatalf("status = %q, want %q", ticket.Status, to)
			}
			if len(ticket.Timeline) != before+1 {
				t.Fatalf("%s -> %s: timeline grew by %d", from, to, len(ticket.Timeline)-before)
			}
			last := ticket.Timeline[len(ticket.Timeline)-1]
			want := fmt.Sprintf("Status changed from %s to %s", from, to)
			if last.Type != EventStatusChanged || last.Message != want {
				t.Fatalf("unexpected event %+v", last)
			}
			if detail, ok := last.Detail.(StatusChangedDetail); !ok || detail.From != from || detail.To != to {
				t.Fatalf("unexpected detail %#v", last.Detail)
			}
			if !ticket.UpdatedAt.Equal(now) {
				t.Fatalf("updatedAt not bumped")
			}
		}
	}
}

func TestChangeStatusRejectsWithoutMutation(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)
	snapshot := ticket.Clone()

	if err := ticket.ChangeStatus(TicketStatusResolved, employee, nil, time.Now(), ids.next()); !apperrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := ticket.ChangeStatus("Escalated", admin, nil, time.Now(), ids.next()); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ticket.Status != snapshot.Status || len(ticket.Timeline) != len(snapshot.Timeline) || !ticket.UpdatedAt.Equal(snapshot.UpdatedAt) {
		t.Fatalf("ticket mutated by rejected change: %+v", ticket)
	}
}

func TestAssignLastWriteWins(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)
	if err := ticket.Assign("A1", "Alice", admin, time.Now(), ids.next()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := ticket.Assign("A2", "Bob", admin, time.Now(), ids.next()); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if ticket.AssignedTo == nil || ticket.AssignedTo.AdminID != "A2" || ticket.AssignedTo.Name != "Bob" {
		t.Fatalf("assignedTo = %+v", ticket.AssignedTo)
	}
	assigned := 0
	for _, event := range ticket.Timeline {
		if event.Type == EventAssigned {
			assigned++
		}
	}
	if assigned != 2 {
		t.Fatalf("assigned events = %d, want 2", assigned)
	}
	if ticket.Timeline[len(ticket.Timeline)-1].Message != "Assigned to Bob" {
		t.Fatalf("unexpected message %q", ticket.Timeline[len(ticket.Timeline)-1].Message)
	}
}

func TestAssignRequiresAdmin(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)
	if err := ticket.Assign("A1", "Alice", employee, time.Now(), ids.next()); !apperrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := ticket.Assign("", "Alice", admin, time.Now(), ids.next()); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ticket.AssignedTo != nil || len(ticket.Timeline) != 1 {
		t.Fatalf("ticket mutated: %+v", ticket)
	}
}

func TestEmployeeCannotPostInternalNote(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)
	snapshot := ticket.Clone()
	err := ticket.AddReply("secret", employee, true, time.Now(), ids.next())
	if !apperrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(ticket.Timeline) != len(snapshot.Timeline) || !ticket.UpdatedAt.Equal(snapshot.UpdatedAt) {
		t.Fatal("ticket mutated by rejected note")
	}
}

func TestReplyRules(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)
	ticket.Status = TicketStatusWaitingForUser

	if err := ticket.AddReply("  ", employee, false, time.Now(), ids.next()); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := ticket.AddReply("me too", other, false, time.Now(), ids.next()); !apperrors.IsForbidden(err) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if err := ticket.AddReply(" here is the log ", employee, false, time.Now(), ids.next()); err != nil {
		t.Fatalf("owner reply: %v", err)
	}
	last := ticket.Timeline[len(ticket.Timeline)-1]
	if last.Type != EventPublicReply || last.Message != "here is the log" {
		t.Fatalf("unexpected event %+v", last)
	}
	if ticket.Status != TicketStatusWaitingForUser {
		t.Fatalf("reply changed status to %q", ticket.Status)
	}
}

func TestInternalNoteHiddenFromEmployee(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)
	if err := ticket.AddReply("check AD group", admin, true, time.Now(), ids.next()); err != nil {
		t.Fatalf("note: %v", err)
	}
	if got := ticket.Timeline[len(ticket.Timeline)-1].Type; got != EventInternalNote {
		t.Fatalf("type = %q, want INTERNAL_NOTE", got)
	}

	for _, event := range ticket.VisibleTo(employee).Timeline {
		if event.Type == EventInternalNote {
			t.Fatal("employee view contains internal note")
		}
	}
	if len(ticket.VisibleTo(admin).Timeline) != 2 {
		t.Fatal("admin view should contain the note")
	}
	if len(ticket.Timeline) != 2 {
		t.Fatal("VisibleTo must not modify the source ticket")
	}
}

func TestEndToEndTimelineViews(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)

	view := ticket.VisibleTo(employee)
	if view.Status != TicketStatusOpen || view.AssignedTo != nil {
		t.Fatalf("unexpected initial view %+v", view)
	}

	steps := []func() error{
		func() error { return ticket.Assign(admin.ID, admin.Name, admin, time.Now(), ids.next()) },
		func() error {
			return ticket.ChangeStatus(TicketStatusInProgress, admin, PermissivePolicy{}, time.Now(), ids.next())
		},
		func() error { return ticket.AddReply("looking at AD logs", admin, true, time.Now(), ids.next()) },
		func() error { return ticket.AddReply("please reboot", admin, false, time.Now(), ids.next()) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	employeeView := ticket.VisibleTo(employee)
	if len(employeeView.Timeline) != 4 {
		t.Fatalf("employee timeline length = %d, want 4", len(employeeView.Timeline))
	}
	wantTypes := []TimelineEventType{EventCreated, EventAssigned, EventStatusChanged, EventPublicReply}
	for i, want := range wantTypes {
		if employeeView.Timeline[i].Type != want {
			t.Fatalf("employee event %d = %s, want %s", i, employeeView.Timeline[i].Type, want)
		}
	}
	if got := len(ticket.VisibleTo(admin).Timeline); got != 5 {
		t.Fatalf("admin timeline length = %d, want 5", got)
	}
}

func TestAccessPredicates(t *testing.T) {
	ids := &eventIDs{}
	ticket := newTestTicket(t, ids)
	if !CanView(employee, ticket) || !CanView(admin, ticket) {
		t.Fatal("owner and admin must view")
	}
	if CanView(other, ticket) || CanView(nil, ticket) {
		t.Fatal("other employees must not view")
	}
	if CanPostInternal(employee) || !CanPostInternal(admin) {
		t.Fatal("internal notes are admin only")
	}
	if CanAssign(employee) || CanChangeStatus(employee) {
		t.Fatal("assign/status are admin only")
	}
}

func TestFormatTicketID(t *testing.T) {
	if got := FormatTicketID("IT", 2026, 123); got != "IT-2026-0123" {
		t.Fatalf("got %q", got)
	}
	if got := FormatTicketID("", 2026, 12345); got != "IT-2026-12345" {
		t.Fatalf("got %q", got)
	}
}
