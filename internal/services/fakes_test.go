package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"estateadmin/internal/domain"
)

// In-memory fakes shared by the service tests.

type fakeEstateRepo struct {
	estates  map[string]*domain.Estate
	saveErr  error
	saves    int
	nextID   int
	createFn func(e *domain.Estate)
}

func newFakeEstateRepo(estates ...*domain.Estate) *fakeEstateRepo {
	r := &fakeEstateRepo{estates: make(map[string]*domain.Estate)}
	for _, e := range estates {
		r.estates[e.ID] = e
	}
	return r
}

func (r *fakeEstateRepo) Create(_ context.Context, e *domain.Estate) error {
	r.nextID++
	e.ID = "estate-" + string(rune('0'+r.nextID))
	if r.createFn != nil {
		r.createFn(e)
	}
	r.estates[e.ID] = e
	return nil
}

func (r *fakeEstateRepo) GetByID(_ context.Context, id string) (*domain.Estate, error) {
	e, ok := r.estates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (r *fakeEstateRepo) GetByInviteToken(_ context.Context, token string) (*domain.Estate, error) {
	for _, e := range r.estates {
		if e.FindInviteByToken(token) != nil {
			return e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeEstateRepo) ListByMember(_ context.Context, userID string) ([]*domain.Estate, error) {
	var out []*domain.Estate
	for _, e := range r.estates {
		if domain.ResolveRole(e, userID) != domain.RoleNone {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEstateRepo) Save(_ context.Context, e *domain.Estate) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.estates[e.ID] = e
	return nil
}

// recordingAudit captures every recorded event.
type recordingAudit struct {
	events []*domain.AuditEvent
}

func (a *recordingAudit) Record(_ context.Context, event *domain.AuditEvent) {
	a.events = append(a.events, event)
}

func (a *recordingAudit) kinds() []domain.AuditKind {
	out := make([]domain.AuditKind, len(a.events))
	for i, e := range a.events {
		out[i] = e.Kind
	}
	return out
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	u.ID = "user-" + u.Email
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

type fakeEmailService struct {
	invites  []*domain.InviteEmailData
	welcomes []*domain.WelcomeEmailData
	err      error
}

func (f *fakeEmailService) SendInvite(_ context.Context, data *domain.InviteEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.invites = append(f.invites, data)
	return nil
}

func (f *fakeEmailService) SendWelcome(_ context.Context, data *domain.WelcomeEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.welcomes = append(f.welcomes, data)
	return nil
}

type fakeAuditRepo struct {
	inserted  []*domain.AuditEvent
	insertErr error
	listOut   []*domain.AuditEvent
	listTotal int
}

func (r *fakeAuditRepo) Insert(_ context.Context, event *domain.AuditEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, event)
	return nil
}

func (r *fakeAuditRepo) ListByEstateID(_ context.Context, _ string, _ domain.PaginationParams) ([]*domain.AuditEvent, int, error) {
	return r.listOut, r.listTotal, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBoom = errors.New("boom")

// testEstate builds an estate with an owner and optional collaborators.
func testEstate(id, ownerID string, collaborators ...domain.Collaborator) *domain.Estate {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Estate{
		ID:            id,
		OwnerID:       ownerID,
		Name:          "Estate of J. Doe",
		Collaborators: collaborators,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
