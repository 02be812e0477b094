package fixtures

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func TestDefaultFixture(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(f.Users) != 4 || len(f.Tickets) != 15 {
		t.Fatalf("got %d users and %d tickets", len(f.Users), len(f.Tickets))
	}
	if f.Tickets[0].ID != "IT-2026-100" || f.Tickets[14].ID != "IT-2026-114" {
		t.Fatalf("unexpected ticket ids %s..%s", f.Tickets[0].ID, f.Tickets[14].ID)
	}
	for i, tk := range f.Tickets {
		wantOwner := "u1"
		if i%2 == 1 {
			wantOwner = "u2"
		}
		if tk.CreatedBy != wantOwner {
			t.Fatalf("ticket %s owned by %s, want %s", tk.ID, tk.CreatedBy, wantOwner)
		}
		if (i%3 == 0) != (tk.AssignedTo == "a1") {
			t.Fatalf("ticket %s assignment %q", tk.ID, tk.AssignedTo)
		}
	}
}

func TestParseRejectsInvalidFixtures(t *testing.T) {
	cases := map[string]string{
		"bad role": `
users:
  - {id: u1, name: A, role: root}
`,
		"unknown creator": `
users:
  - {id: u1, name: A, role: user}
tickets:
  - {id: T-1, title: x, description: y, category: Other, priority: Low, createdBy: u9}
`,
		"non admin assignee": `
users:
  - {id: u1, name: A, role: user}
tickets:
  - {id: T-1, title: x, description: y, category: Other, priority: Low, createdBy: u1, assignedTo: u1}
`,
		"bad status": `
users:
  - {id: u1, name: A, role: user}
tickets:
  - {id: T-1, title: x, description: y, category: Other, priority: Low, createdBy: u1, status: Done}
`,
		"not yaml": "users: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestApplyReplaysLifecycle(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	users := repository.NewMemoryUserRepository()
	tickets := repository.NewMemoryTicketRepository()
	loader := &Loader{
		Users:   users,
		Tickets: tickets,
		Hasher:  auth.NewPasswordHasher(4),
		Clock:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	ctx := context.Background()

	res, err := loader.Apply(ctx, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Users != 4 || res.Tickets != 15 || res.SkippedTickets != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	admin, err := users.GetByEmail(ctx, "charlie@corp.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if !auth.NewPasswordHasher(4).Matches(admin.PasswordHash, "helpdesk") {
		t.Fatal("fixture password was not hashed")
	}

	for _, tf := range f.Tickets {
		tk, err := tickets.GetByID(ctx, tf.ID)
		if err != nil {
			t.Fatalf("GetByID %s: %v", tf.ID, err)
		}
		if tk.Timeline[0].Type != domain.EventCreated {
			t.Fatalf("ticket %s does not start with CREATED", tk.ID)
		}
		if tk.Status != tf.Status {
			t.Fatalf("ticket %s status %q, want %q", tk.ID, tk.Status, tf.Status)
		}
		wantEvents := 1
		if tf.AssignedTo != "" {
			wantEvents++
		}
		if tf.Status != domain.TicketStatusOpen {
			wantEvents++
		}
		if len(tk.Timeline) != wantEvents {
			t.Fatalf("ticket %s has %d events, want %d", tk.ID, len(tk.Timeline), wantEvents)
		}
		if !strings.HasPrefix(tk.Description, "This is a generated ticket") {
			t.Fatalf("unexpected description %q", tk.Description)
		}
	}

	listed, err := tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if listed[0].ID != "IT-2026-114" {
		t.Fatalf("newest fixture ticket should list first, got %s", listed[0].ID)
	}

	again, err := loader.Apply(ctx, f)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if again.Tickets != 0 || again.SkippedTickets != 15 {
		t.Fatalf("second apply should skip existing tickets, got %+v", again)
	}
}
