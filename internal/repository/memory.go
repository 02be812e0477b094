package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. It is used when no
// database is configured and in tests.
type MemoryTicketRepository struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	sequences map[int]int
}

// NewMemoryTicketRepository returns an empty in-memory ticket store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets:   map[string]*domain.Ticket{},
		sequences: map[int]int{},
	}
}

func (r *MemoryTicketRepository) NextID(_ context.Context, prefix string, at time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	year := at.UTC().Year()
	r.sequences[year]++
	return domain.FormatTicketID(prefix, year, r.sequences[year]), nil
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return ErrDuplicate
	}
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *MemoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if filter.OwnerID != nil && ticket.CreatedBy.ID != *filter.OwnerID {
			continue
		}
		result = append(result, *ticket.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *MemoryTicketRepository) Mutate(_ context.Context, id string, fn MutateFunc) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := verifyMutation(current, next); err != nil {
		return nil, err
	}
	r.tickets[id] = next
	return next.Clone(), nil
}

// MemoryUserRepository is an in-memory user directory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository returns a directory pre-populated with users.
func NewMemoryUserRepository(users ...domain.User) *MemoryUserRepository {
	repo := &MemoryUserRepository{users: map[string]domain.User{}}
	for i := range users {
		_ = repo.Upsert(context.Background(), &users[i])
	}
	return repo
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range r.users {
		if strings.ToLower(user.Email) == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) FirstByRole(_ context.Context, role domain.Role) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.User
	for _, user := range r.users {
		if user.Role != role {
			continue
		}
		if found == nil || user.ID < found.ID {
			u := user
			found = &u
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *MemoryUserRepository) Upsert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = *user
	return nil
}
