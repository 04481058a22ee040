package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateadmin/internal/domain"
)

var inviteNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type inviteFixture struct {
	svc    *inviteService
	repo   *fakeEstateRepo
	audit  *recordingAudit
	email  *fakeEmailService
	estate *domain.Estate
}

func newInviteFixture(t *testing.T, estate *domain.Estate) *inviteFixture {
	t.Helper()
	repo := newFakeEstateRepo(estate)
	audit := &recordingAudit{}
	email := &fakeEmailService{}
	users := newFakeUserRepo(&domain.User{ID: estate.OwnerID, Email: "owner@example.com", Name: "Olivia Owner"})
	svc := NewInviteService(repo, users, NewGate(), audit, email,
		"https://app.example.com/", discardLogger(), 5*time.Second).(*inviteService)
	svc.now = func() time.Time { return inviteNow }
	return &inviteFixture{svc: svc, repo: repo, audit: audit, email: email, estate: estate}
}

func pendingInvite(token, email string, role domain.Role, createdAt time.Time) domain.Invite {
	return domain.Invite{
		Token:     token,
		Email:     email,
		Role:      role,
		Status:    domain.InviteStatusPending,
		CreatedBy: "owner-1",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(domain.DefaultInviteTTL),
	}
}

func TestInviteService_Create_Fresh(t *testing.T) {
	ctx := context.Background()
	f := newInviteFixture(t, testEstate("estate-1", "owner-1"))

	receipt, err := f.svc.Create(ctx, "estate-1", "owner-1", "owner@example.com", " Bob@X.com ", "VIEWER")
	require.NoError(t, err)

	assert.False(t, receipt.Rotated)
	assert.Equal(t, "bob@x.com", receipt.Invite.Email)
	assert.Equal(t, domain.RoleViewer, receipt.Invite.Role)
	assert.Equal(t, domain.InviteStatusPending, receipt.Invite.Status)
	assert.Equal(t, inviteNow.Add(domain.DefaultInviteTTL), receipt.Invite.ExpiresAt)
	assert.NotEmpty(t, receipt.Invite.Token)
	assert.Equal(t, "https://app.example.com/invites/"+receipt.Invite.Token+"/accept", receipt.InviteURL)

	// Persisted on the estate.
	require.Len(t, f.estate.Invites, 1)
	assert.Equal(t, 1, f.repo.saves)

	// Audited and emailed.
	require.Equal(t, []domain.AuditKind{domain.AuditInviteSent}, f.audit.kinds())
	assert.Equal(t, "bob@x.com", f.audit.events[0].Details["email"])
	assert.Equal(t, false, f.audit.events[0].Details["rotated"])
	require.Len(t, f.email.invites, 1)
	assert.Equal(t, "Olivia Owner", f.email.invites[0].InviterName)
	assert.Equal(t, receipt.InviteURL, f.email.invites[0].InviteURL)
}

func TestInviteService_Create_RotatesPendingInvite(t *testing.T) {
	ctx := context.Background()
	estate := testEstate("estate-1", "owner-1")
	original := pendingInvite("tok-original", "bob@x.com", domain.RoleViewer, inviteNow.Add(-48*time.Hour))
	estate.Invites = []domain.Invite{original}
	f := newInviteFixture(t, estate)

	receipt, err := f.svc.Create(ctx, "estate-1", "owner-1", "owner@example.com", "bob@x.com", "EDITOR")
	require.NoError(t, err)

	assert.True(t, receipt.Rotated)
	assert.Equal(t, domain.RoleViewer, receipt.PreviousRole)
	assert.Equal(t, domain.RoleEditor, receipt.Invite.Role)
	assert.NotEqual(t, "tok-original", receipt.Invite.Token)
	// Rotation keeps the invite's email and original expiry.
	assert.Equal(t, "bob@x.com", receipt.Invite.Email)
	assert.Equal(t, original.ExpiresAt, receipt.Invite.ExpiresAt)
	// No second invite row appears.
	require.Len(t, f.estate.Invites, 1)
	assert.Equal(t, domain.InviteStatusPending, f.estate.Invites[0].Status)

	assert.Equal(t, "VIEWER", f.audit.events[0].Details["previousRole"])
}

func TestInviteService_Create_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		caller string
		email  string
		role   string
		errIs  error
	}{
		{"non-owner caller", "viewer-1", "bob@x.com", "VIEWER", domain.ErrForbidden},
		{"stranger caller", "stranger", "bob@x.com", "VIEWER", domain.ErrForbidden},
		{"missing email", "owner-1", "   ", "VIEWER", domain.ErrInvalidInput},
		{"no at sign", "owner-1", "bobx.com", "VIEWER", domain.ErrInvalidInput},
		{"two at signs", "owner-1", "bob@@x.com", "VIEWER", domain.ErrInvalidInput},
		{"at sign at end", "owner-1", "bob@", "VIEWER", domain.ErrInvalidInput},
		{"owner role not grantable", "owner-1", "bob@x.com", "OWNER", domain.ErrInvalidInput},
		{"unknown role", "owner-1", "bob@x.com", "ADMIN", domain.ErrInvalidInput},
		{"self invite", "owner-1", "Owner@Example.com", "VIEWER", domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estate := testEstate("estate-1", "owner-1",
				domain.Collaborator{UserID: "viewer-1", Role: domain.RoleViewer, AddedAt: inviteNow})
			f := newInviteFixture(t, estate)

			_, err := f.svc.Create(ctx, "estate-1", tt.caller, "owner@example.com", tt.email, tt.role)
			require.ErrorIs(t, err, tt.errIs)
			assert.Empty(t, f.estate.Invites)
			assert.Empty(t, f.audit.events)
		})
	}
}

func TestInviteService_Create_PendingCap(t *testing.T) {
	ctx := context.Background()
	estate := testEstate("estate-1", "owner-1")
	for i := 0; i < domain.MaxPendingInvites; i++ {
		estate.Invites = append(estate.Invites,
			pendingInvite(fmt.Sprintf("tok-%d", i), fmt.Sprintf("u%d@x.com", i), domain.RoleViewer, inviteNow))
	}
	f := newInviteFixture(t, estate)

	_, err := f.svc.Create(ctx, "estate-1", "owner-1", "owner@example.com", "new@x.com", "VIEWER")
	require.ErrorIs(t, err, domain.ErrInviteCapReached)

	// Rotating an existing pending invite is allowed even at the cap.
	receipt, err := f.svc.Create(ctx, "estate-1", "owner-1", "owner@example.com", "u0@x.com", "EDITOR")
	require.NoError(t, err)
	assert.True(t, receipt.Rotated)
	assert.Len(t, f.estate.Invites, domain.MaxPendingInvites)
}

func TestInviteService_Create_ExpiredInviteDoesNotRotate(t *testing.T) {
	ctx := context.Background()
	estate := testEstate("estate-1", "owner-1")
	stale := pendingInvite("tok-stale", "bob@x.com", domain.RoleViewer, inviteNow.Add(-30*24*time.Hour))
	estate.Invites = []domain.Invite{stale}
	f := newInviteFixture(t, estate)

	receipt, err := f.svc.Create(ctx, "estate-1", "owner-1", "owner@example.com", "bob@x.com", "VIEWER")
	require.NoError(t, err)
	assert.False(t, receipt.Rotated)
	assert.Len(t, f.estate.Invites, 2)
}

func TestInviteService_List(t *testing.T) {
	ctx := context.Background()
	estate := testEstate("estate-1", "owner-1",
		domain.Collaborator{UserID: "viewer-1", Role: domain.RoleViewer, AddedAt: inviteNow})
	estate.Invites = []domain.Invite{
		pendingInvite("tok-old", "old@x.com", domain.RoleViewer, inviteNow.Add(-30*24*time.Hour)),
		pendingInvite("tok-new", "new@x.com", domain.RoleEditor, inviteNow.Add(-time.Hour)),
	}
	f := newInviteFixture(t, estate)

	t.Run("owner only", func(t *testing.T) {
		_, err := f.svc.List(ctx, "estate-1", "viewer-1")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing estate", func(t *testing.T) {
		_, err := f.svc.List(ctx, "nope", "owner-1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("lazy expiry and newest first", func(t *testing.T) {
		invites, err := f.svc.List(ctx, "estate-1", "owner-1")
		require.NoError(t, err)
		require.Len(t, invites, 2)
		assert.Equal(t, "tok-new", invites[0].Token)
		assert.Equal(t, domain.InviteStatusPending, invites[0].Status)
		assert.Equal(t, "tok-old", invites[1].Token)
		assert.Equal(t, domain.InviteStatusExpired, invites[1].Status)
		// The flip was persisted.
		assert.Equal(t, domain.InviteStatusExpired, f.estate.FindInviteByToken("tok-old").Status)
		assert.Equal(t, 1, f.repo.saves)
	})
}

func TestInviteService_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("by token, then idempotent", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow)}
		f := newInviteFixture(t, estate)

		receipt, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "tok-1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.RevokeOutcomeRevoked, receipt.Outcome)
		require.NotNil(t, receipt.RevokedAt)
		assert.Equal(t, inviteNow, *receipt.RevokedAt)
		require.Equal(t, []domain.AuditKind{domain.AuditInviteRevoked}, f.audit.kinds())

		// Second revoke reports the same terminal state without re-auditing.
		again, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "tok-1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.RevokeOutcomeRevoked, again.Outcome)
		assert.Equal(t, receipt.RevokedAt, again.RevokedAt)
		assert.Len(t, f.audit.events, 1)
	})

	t.Run("unknown token is a success", func(t *testing.T) {
		f := newInviteFixture(t, testEstate("estate-1", "owner-1"))
		receipt, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "no-such-token", "")
		require.NoError(t, err)
		assert.Equal(t, domain.RevokeOutcomeNotFound, receipt.Outcome)
	})

	t.Run("email fallback finds the pending invite", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow)}
		f := newInviteFixture(t, estate)

		receipt, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "", "Bob@X.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RevokeOutcomeRevoked, receipt.Outcome)
	})

	t.Run("naturally expired flips and persists", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow.Add(-30*24*time.Hour))}
		f := newInviteFixture(t, estate)

		receipt, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "tok-1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.RevokeOutcomeExpired, receipt.Outcome)
		assert.Nil(t, receipt.RevokedAt)
		assert.Equal(t, domain.InviteStatusExpired, f.estate.FindInviteByToken("tok-1").Status)
		assert.Empty(t, f.audit.events)
	})

	t.Run("naturally expired located by email flips and persists", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow.Add(-30*24*time.Hour))}
		f := newInviteFixture(t, estate)

		receipt, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "", "bob@x.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RevokeOutcomeExpired, receipt.Outcome)
		assert.Nil(t, receipt.RevokedAt)
		assert.Equal(t, domain.InviteStatusExpired, f.estate.FindInviteByToken("tok-1").Status)
		assert.Empty(t, f.audit.events)
	})

	t.Run("accepted invite is not revocable", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		inv := pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow)
		inv.Status = domain.InviteStatusAccepted
		estate.Invites = []domain.Invite{inv}
		f := newInviteFixture(t, estate)

		_, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "tok-1", "")
		require.Error(t, err)
		assert.Equal(t, "Invite is accepted", err.Error())
	})

	t.Run("owner only", func(t *testing.T) {
		f := newInviteFixture(t, testEstate("estate-1", "owner-1"))
		_, err := f.svc.Revoke(ctx, "estate-1", "stranger", "tok-1", "")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestInviteService_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("new collaborator", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleEditor, inviteNow)}
		f := newInviteFixture(t, estate)

		receipt, err := f.svc.Accept(ctx, "estate-1", "tok-1", "bob-id", "Bob@X.com")
		require.NoError(t, err)
		assert.Equal(t, "estate-1", receipt.EstateID)
		assert.Equal(t, domain.RoleEditor, receipt.Role)

		col := f.estate.FindCollaborator("bob-id")
		require.NotNil(t, col)
		assert.Equal(t, domain.RoleEditor, col.Role)
		assert.Equal(t, inviteNow, col.AddedAt)

		inv := f.estate.FindInviteByToken("tok-1")
		assert.Equal(t, domain.InviteStatusAccepted, inv.Status)
		assert.Equal(t, "bob-id", inv.AcceptedBy)
		require.NotNil(t, inv.AcceptedAt)

		// Grant event plus the acceptance event.
		require.Equal(t, []domain.AuditKind{domain.AuditCollaboratorAdded, domain.AuditCollaboratorAdded}, f.audit.kinds())
		assert.Equal(t, "link", f.audit.events[1].Details["via"])
	})

	t.Run("existing collaborator role change", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1",
			domain.Collaborator{UserID: "bob-id", Role: domain.RoleViewer, AddedAt: inviteNow})
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleEditor, inviteNow)}
		f := newInviteFixture(t, estate)

		receipt, err := f.svc.Accept(ctx, "estate-1", "tok-1", "bob-id", "bob@x.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEditor, receipt.Role)
		assert.Equal(t, domain.RoleEditor, f.estate.FindCollaborator("bob-id").Role)
		require.Len(t, f.estate.Collaborators, 1)

		require.Equal(t, []domain.AuditKind{domain.AuditRoleChanged, domain.AuditCollaboratorAdded}, f.audit.kinds())
		assert.Equal(t, "VIEWER", f.audit.events[0].Details["previousRole"])
		assert.Equal(t, "EDITOR", f.audit.events[0].Details["newRole"])
		assert.Equal(t, "link", f.audit.events[1].Details["via"])
	})

	t.Run("same role re-accept records only the link event", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1",
			domain.Collaborator{UserID: "bob-id", Role: domain.RoleEditor, AddedAt: inviteNow})
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleEditor, inviteNow)}
		f := newInviteFixture(t, estate)

		_, err := f.svc.Accept(ctx, "estate-1", "tok-1", "bob-id", "bob@x.com")
		require.NoError(t, err)
		require.Equal(t, []domain.AuditKind{domain.AuditCollaboratorAdded}, f.audit.kinds())
	})

	t.Run("email mismatch", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow)}
		f := newInviteFixture(t, estate)

		_, err := f.svc.Accept(ctx, "estate-1", "tok-1", "mallory-id", "mallory@x.com")
		require.ErrorIs(t, err, domain.ErrEmailMismatch)
		assert.Empty(t, f.estate.Collaborators)
		assert.Equal(t, domain.InviteStatusPending, f.estate.Invites[0].Status)
	})

	t.Run("expired invite persists the flip", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow.Add(-30*24*time.Hour))}
		f := newInviteFixture(t, estate)

		_, err := f.svc.Accept(ctx, "estate-1", "tok-1", "bob-id", "bob@x.com")
		require.ErrorIs(t, err, domain.ErrInviteExpired)
		assert.Equal(t, domain.InviteStatusExpired, f.estate.FindInviteByToken("tok-1").Status)
		assert.Equal(t, 1, f.repo.saves)
	})

	t.Run("revoked invite", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		inv := pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow)
		inv.Status = domain.InviteStatusRevoked
		estate.Invites = []domain.Invite{inv}
		f := newInviteFixture(t, estate)

		_, err := f.svc.Accept(ctx, "estate-1", "tok-1", "bob-id", "bob@x.com")
		require.Error(t, err)
		assert.Equal(t, "Invite is revoked", err.Error())
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newInviteFixture(t, testEstate("estate-1", "owner-1"))
		_, err := f.svc.Accept(ctx, "estate-1", "no-such-token", "bob-id", "bob@x.com")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("owner cannot accept", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "owner@example.com", domain.RoleViewer, inviteNow)}
		f := newInviteFixture(t, estate)

		_, err := f.svc.Accept(ctx, "estate-1", "tok-1", "owner-1", "owner@example.com")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, f.estate.Collaborators)
	})

	t.Run("estate-agnostic accept resolves by token", func(t *testing.T) {
		estate := testEstate("estate-1", "owner-1")
		estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow)}
		f := newInviteFixture(t, estate)

		receipt, err := f.svc.Accept(ctx, "", "tok-1", "bob-id", "bob@x.com")
		require.NoError(t, err)
		assert.Equal(t, "estate-1", receipt.EstateID)
	})
}

// Revoked tokens stay revoked: the scenario where an owner revokes while the
// invitee still holds the link.
func TestInviteService_RevokeThenAccept(t *testing.T) {
	ctx := context.Background()
	estate := testEstate("estate-1", "owner-1")
	estate.Invites = []domain.Invite{pendingInvite("tok-1", "bob@x.com", domain.RoleViewer, inviteNow)}
	f := newInviteFixture(t, estate)

	_, err := f.svc.Accept(ctx, "estate-1", "tok-1", "bob-id", "different@x.com")
	require.ErrorIs(t, err, domain.ErrEmailMismatch)

	receipt, err := f.svc.Revoke(ctx, "estate-1", "owner-1", "tok-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RevokeOutcomeRevoked, receipt.Outcome)

	_, err = f.svc.Accept(ctx, "estate-1", "tok-1", "bob-id", "bob@x.com")
	require.Error(t, err)
	assert.Equal(t, "Invite is revoked", err.Error())
}
