package fixtures

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/ids"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture is a directory of users plus tickets to preload.
type Fixture struct {
	Users   []UserFixture   `yaml:"users"`
	Tickets []TicketFixture `yaml:"tickets"`
}

// UserFixture describes one directory entry. Password is hashed on load.
type UserFixture struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Email      string      `yaml:"email"`
	Department string      `yaml:"department"`
	Role       domain.Role `yaml:"role"`
	Password   string      `yaml:"password"`
}

// TicketFixture describes a ticket. Status and assignment are replayed
// through the lifecycle so the timeline stays consistent.
type TicketFixture struct {
	ID          string                `yaml:"id"`
	Title       string                `yaml:"title"`
	Description string                `yaml:"description"`
	Category    domain.TicketCategory `yaml:"category"`
	Priority    domain.TicketPriority `yaml:"priority"`
	Status      domain.TicketStatus   `yaml:"status"`
	CreatedBy   string                `yaml:"createdBy"`
	AssignedTo  string                `yaml:"assignedTo"`
	Attachments []AttachmentFixture   `yaml:"attachments"`
}

// AttachmentFixture is attachment metadata.
type AttachmentFixture struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Result summarizes what Apply wrote.
type Result struct {
	Users          int
	Tickets        int
	SkippedTickets int
}

// Default returns the bundled demo fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Load reads a fixture file from disk.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML fixture.
func Parse(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	users := make(map[string]domain.Role, len(f.Users))
	for i, u := range f.Users {
		if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("user %d: id and name required", i)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("user %s: invalid role %q", u.ID, u.Role)
		}
		if _, dup := users[u.ID]; dup {
			return fmt.Errorf("user %s: duplicate id", u.ID)
		}
		users[u.ID] = u.Role
	}
	seen := make(map[string]struct{}, len(f.Tickets))
	for i, t := range f.Tickets {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("ticket %d: id required", i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("ticket %s: duplicate id", t.ID)
		}
		seen[t.ID] = struct{}{}
		if _, ok := users[t.CreatedBy]; !ok {
			return fmt.Errorf("ticket %s: unknown creator %q", t.ID, t.CreatedBy)
		}
		if t.AssignedTo != "" && users[t.AssignedTo] != domain.RoleAdmin {
			return fmt.Errorf("ticket %s: assignee %q is not an admin", t.ID, t.AssignedTo)
		}
		if t.Status != "" && !t.Status.Valid() {
			return fmt.Errorf("ticket %s: invalid status %q", t.ID, t.Status)
		}
	}
	return nil
}

// Loader writes fixtures through the repositories.
type Loader struct {
	Users   repository.UserRepository
	Tickets repository.TicketRepository
	Hasher  *auth.PasswordHasher
	Logger  *zap.Logger
	Clock   func() time.Time
}

// Apply upserts the users and creates the tickets that do not exist yet.
// Tickets are spaced one hour apart ending at the current time, in file order.
func (l *Loader) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now().UTC()
	if l.Clock != nil {
		now = l.Clock()
	}

	directory := make(map[string]*domain.User, len(f.Users))
	for _, uf := range f.Users {
		user := &domain.User{
			ID:         uf.ID,
			Name:       uf.Name,
			Email:      uf.Email,
			Department: uf.Department,
			Role:       uf.Role,
			CreatedAt:  now,
		}
		if uf.Password != "" && l.Hasher != nil {
			hash, err := l.Hasher.Hash(uf.Password)
			if err != nil {
				return res, fmt.Errorf("hash password for %s: %w", uf.ID, err)
			}
			user.PasswordHash = hash
		}
		if err := l.Users.Upsert(ctx, user); err != nil {
			return res, fmt.Errorf("upsert user %s: %w", uf.ID, err)
		}
		directory[user.ID] = user
		res.Users++
	}

	for i, tf := range f.Tickets {
		createdAt := now.Add(-time.Duration(len(f.Tickets)-i) * time.Hour)
		ticket, err := buildTicket(tf, directory, createdAt)
		if err != nil {
			return res, err
		}
		if err := l.Tickets.Create(ctx, ticket); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				res.SkippedTickets++
				logger.Debug("fixture ticket already present", zap.String("ticket_id", tf.ID))
				continue
			}
			return res, fmt.Errorf("create ticket %s: %w", tf.ID, err)
		}
		res.Tickets++
	}

	logger.Info("fixture applied",
		zap.Int("users", res.Users),
		zap.Int("tickets", res.Tickets),
		zap.Int("skipped_tickets", res.SkippedTickets))
	return res, nil
}

func buildTicket(tf TicketFixture, directory map[string]*domain.User, createdAt time.Time) (*domain.Ticket, error) {
	creator, ok := directory[tf.CreatedBy]
	if !ok {
		return nil, fmt.Errorf("ticket %s: unknown creator %q", tf.ID, tf.CreatedBy)
	}
	attachments := make([]domain.Attachment, 0, len(tf.Attachments))
	for _, a := range tf.Attachments {
		attachments = append(attachments, domain.Attachment{Name: a.Name, URL: a.URL})
	}
	ticket, err := domain.NewTicket(tf.ID, domain.TicketInput{
		Title:       tf.Title,
		Description: tf.Description,
		Category:    tf.Category,
		Priority:    tf.Priority,
		Attachments: attachments,
	}, creator, createdAt, ids.EventID())
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", tf.ID, err)
	}

	at := createdAt
	if tf.AssignedTo != "" {
		admin := directory[tf.AssignedTo]
		at = at.Add(time.Minute)
		if err := ticket.Assign(admin.ID, admin.Name, admin, at, ids.EventID()); err != nil {
			return nil, fmt.Errorf("ticket %s: %w", tf.ID, err)
		}
	}
	if tf.Status != "" && tf.Status != domain.TicketStatusOpen {
		actor := firstAdmin(directory, tf.AssignedTo)
		if actor == nil {
			return nil, fmt.Errorf("ticket %s: status %q needs an admin in the fixture", tf.ID, tf.Status)
		}
		at = at.Add(time.Minute)
		if err := ticket.ChangeStatus(tf.Status, actor, domain.PermissivePolicy{}, at, ids.EventID()); err != nil {
			return nil, fmt.Errorf("ticket %s: %w", tf.ID, err)
		}
	}
	return ticket, nil
}

func firstAdmin(directory map[string]*domain.User, preferred string) *domain.User {
	if u, ok := directory[preferred]; ok && u.IsAdmin() {
		return u
	}
	var first *domain.User
	for _, u := range directory {
		if u.IsAdmin() && (first == nil || u.ID < first.ID) {
			first = u
		}
	}
	return first
}
