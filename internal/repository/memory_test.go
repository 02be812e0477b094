package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	alice   = domain.User{ID: "u1", Name: "Alice Employee", Email: "alice@corp.com", Department: "Sales", Role: domain.RoleUser}
	bob     = domain.User{ID: "u2", Name: "Bob Engineer", Email: "bob@corp.com", Department: "Engineering", Role: domain.RoleUser}
	charlie = domain.User{ID: "a1", Name: "Charlie Admin", Email: "charlie@corp.com", Department: "IT Support", Role: domain.RoleAdmin}
	diana   = domain.User{ID: "a2", Name: "Diana Admin", Email: "diana@corp.com", Department: "IT Support", Role: domain.RoleAdmin}
)

func seedTicket(t *testing.T, repo TicketRepository, owner domain.User, at time.Time) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	id, err := repo.NextID(ctx, "IT", at)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	ticket, err := domain.NewTicket(id, domain.TicketInput{
		Title:       "Laptop fan noise",
		Description: "Very loud",
		Category:    domain.TicketCategoryLaptop,
		Priority:    domain.TicketPriorityLow,
	}, &owner, at, "evt-"+id)
	if err != nil {
		t.Fatalf("NewTicket: %v", err)
	}
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ticket
}

func TestMemoryNextIDPerYear(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first, _ := repo.NextID(ctx, "IT", at)
	second, _ := repo.NextID(ctx, "IT", at)
	nextYear, _ := repo.NextID(ctx, "IT", at.AddDate(1, 0, 0))

	if first != "IT-2026-0001" || second != "IT-2026-0002" {
		t.Fatalf("unexpected ids %q %q", first, second)
	}
	if nextYear != "IT-2027-0001" {
		t.Fatalf("sequence should restart per year, got %q", nextYear)
	}
}

func TestMemoryCreateRejectsDuplicate(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ticket := seedTicket(t, repo, alice, time.Now())
	if err := repo.Create(context.Background(), ticket); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryListOrderAndOwnerFilter(t *testing.T) {
	repo := NewMemoryTicketRepository()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	oldest := seedTicket(t, repo, alice, base)
	middle := seedTicket(t, repo, bob, base.Add(time.Hour))
	newest := seedTicket(t, repo, alice, base.Add(2*time.Hour))

	all, err := repo.List(context.Background(), TicketFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{newest.ID, middle.ID, oldest.ID}
	if len(all) != len(want) {
		t.Fatalf("got %d tickets", len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, all[i].ID, id)
		}
	}

	owner := alice.ID
	mine, err := repo.List(context.Background(), TicketFilter{OwnerID: &owner})
	if err != nil {
		t.Fatalf("List owner: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != newest.ID || mine[1].ID != oldest.ID {
		t.Fatalf("unexpected owner listing %+v", mine)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ticket := seedTicket(t, repo, alice, time.Now())

	loaded, err := repo.GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	loaded.Status = domain.TicketStatusClosed
	loaded.Timeline[0].Message = "tampered"

	again, _ := repo.GetByID(context.Background(), ticket.ID)
	if again.Status != domain.TicketStatusOpen || again.Timeline[0].Message != "Ticket created" {
		t.Fatalf("stored ticket was modified through a returned copy: %+v", again)
	}
}

func TestMemoryMutate(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ticket := seedTicket(t, repo, alice, time.Now())
	ctx := context.Background()

	updated, err := repo.Mutate(ctx, ticket.ID, func(tk *domain.Ticket) error {
		return tk.ChangeStatus(domain.TicketStatusInProgress, &charlie, nil, time.Now(), "evt-2")
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress || len(updated.Timeline) != 2 {
		t.Fatalf("unexpected result %+v", updated)
	}

	_, err = repo.Mutate(ctx, ticket.ID, func(tk *domain.Ticket) error {
		return tk.AddReply("secret", &alice, true, time.Now(), "evt-3")
	})
	if !apperrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = repo.Mutate(ctx, ticket.ID, func(tk *domain.Ticket) error {
		tk.Status = domain.TicketStatusClosed
		return nil
	})
	if !errors.Is(err, ErrInvalidMutation) {
		t.Fatalf("expected ErrInvalidMutation, got %v", err)
	}

	_, err = repo.Mutate(ctx, ticket.ID, func(tk *domain.Ticket) error {
		tk.Timeline[0].ID = "rewritten"
		return tk.AddReply("hi", &alice, false, time.Now(), "evt-4")
	})
	if !errors.Is(err, ErrInvalidMutation) {
		t.Fatalf("expected ErrInvalidMutation for rewritten history, got %v", err)
	}

	stored, _ := repo.GetByID(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusInProgress || len(stored.Timeline) != 2 {
		t.Fatalf("rejected mutations leaked into the store: %+v", stored)
	}

	if _, err := repo.Mutate(ctx, "IT-1999-0001", func(*domain.Ticket) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryMutateConcurrentAppends(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ticket := seedTicket(t, repo, alice, time.Now())

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Mutate(context.Background(), ticket.ID, func(tk *domain.Ticket) error {
				return tk.AddReply(fmt.Sprintf("reply %d", i), &charlie, false, time.Now(), fmt.Sprintf("evt-r%d", i))
			})
			if err != nil {
				t.Errorf("Mutate %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	stored, _ := repo.GetByID(context.Background(), ticket.ID)
	if len(stored.Timeline) != writers+1 {
		t.Fatalf("timeline length = %d, want %d", len(stored.Timeline), writers+1)
	}
}

func TestMemoryUserDirectory(t *testing.T) {
	repo := NewMemoryUserRepository(alice, bob, diana, charlie)
	ctx := context.Background()

	admin, err := repo.FirstByRole(ctx, domain.RoleAdmin)
	if err != nil || admin.ID != charlie.ID {
		t.Fatalf("FirstByRole admin = %+v, %v", admin, err)
	}
	user, err := repo.FirstByRole(ctx, domain.RoleUser)
	if err != nil || user.ID != alice.ID {
		t.Fatalf("FirstByRole user = %+v, %v", user, err)
	}
	byEmail, err := repo.GetByEmail(ctx, " BOB@corp.com ")
	if err != nil || byEmail.ID != bob.ID {
		t.Fatalf("GetByEmail = %+v, %v", byEmail, err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	renamed := alice
	renamed.Name = "Alice Renamed"
	if err := repo.Upsert(ctx, &renamed); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, _ := repo.GetByID(ctx, alice.ID)
	if got.Name != "Alice Renamed" {
		t.Fatalf("upsert did not replace name: %q", got.Name)
	}
}
