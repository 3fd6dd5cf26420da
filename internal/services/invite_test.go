package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inviteRowColumns = []string{
	"id", "email", "role", "permissions", "shop_id", "status", "invited_by", "accepted_by", "created_at", "updated_at",
}

func setupInviteService(t *testing.T) (*InviteService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewInviteService(db), mock
}

func inviteRows(invites ...*models.Invite) *pgxmock.Rows {
	rows := pgxmock.NewRows(inviteRowColumns)
	for _, inv := range invites {
		perms, _ := marshalOverrides(inv.Permissions)
		rows.AddRow(inv.ID, inv.Email, inv.Role, perms, inv.ShopID, inv.Status,
			inv.InvitedBy, inv.AcceptedBy, inv.CreatedAt, inv.UpdatedAt)
	}
	return rows
}

func pendingInvite(email string, role models.Role) *models.Invite {
	now := time.Now()
	return &models.Invite{
		ID:        uuid.New(),
		Email:     email,
		Role:      role,
		Status:    models.InviteStatusPending,
		InvitedBy: "admin-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInviteService_Create_LowercasesEmail(t *testing.T) {
	svc, mock := setupInviteService(t)
	shop := "shop-1"
	inv := pendingInvite("new@shop.com", models.RoleEmployee)
	inv.ShopID = &shop
	inv.Permissions = rbac.Overrides{rbac.ResourceAttendance: rbac.Allowed(false)}

	mock.ExpectQuery(`INSERT INTO invites`).
		WithArgs("new@shop.com", models.RoleEmployee, pgxmock.AnyArg(), &shop, "admin-1").
		WillReturnRows(inviteRows(inv))

	created, err := svc.Create(context.Background(), CreateInviteParams{
		Email:       "  New@Shop.COM ",
		Role:        models.RoleEmployee,
		Permissions: inv.Permissions,
		ShopID:      &shop,
		InvitedBy:   "admin-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "new@shop.com", created.Email)
	_, ok := created.Permissions.Lookup(rbac.ResourceAttendance)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_FindPendingByEmail(t *testing.T) {
	svc, mock := setupInviteService(t)
	inv := pendingInvite("new@shop.com", models.RoleEmployee)

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE LOWER\(email\) = \$1 AND status = 'pending'`).
		WithArgs("new@shop.com").
		WillReturnRows(inviteRows(inv))

	found, err := svc.FindPendingByEmail(context.Background(), "NEW@shop.com")

	require.NoError(t, err)
	assert.Equal(t, inv.ID, found.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_FindPendingByEmail_NotFound(t *testing.T) {
	svc, mock := setupInviteService(t)

	mock.ExpectQuery(`SELECT .+ FROM invites`).
		WithArgs("random@nowhere.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.FindPendingByEmail(context.Background(), "random@nowhere.com")

	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteService_Create_ShopRequired(t *testing.T) {
	svc, mock := setupInviteService(t)
	blank := ""

	for _, role := range []models.Role{"", models.RoleEmployee, models.RoleManager, models.RoleSeniorEmployee} {
		_, err := svc.Create(context.Background(), CreateInviteParams{Email: "x@shop.com", Role: role, InvitedBy: "super-1"})
		assert.ErrorIs(t, err, ErrInviteShopRequired, "role %q", role)
	}
	_, err := svc.Create(context.Background(), CreateInviteParams{Email: "x@shop.com", ShopID: &blank, InvitedBy: "super-1"})
	assert.ErrorIs(t, err, ErrInviteShopRequired)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_AcceptAndCreateProfile(t *testing.T) {
	svc, mock := setupInviteService(t)
	inv := pendingInvite("new@shop.com", models.RoleEmployee)
	p := newInvitedProfile(models.Actor{ID: "actor-9", Email: "new@shop.com"}, inv)
	stored := *p

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE invites SET status = 'accepted'.+WHERE id = \$2 AND status = 'pending'`).
		WithArgs("actor-9", inv.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs(p.ID, p.Email, p.DisplayName, p.AvatarURL, p.Role, p.Status, pgxmock.AnyArg(),
			p.ShopID, true, p.InvitedBy).
		WillReturnRows(profileRows(&stored))
	mock.ExpectCommit()

	created, err := svc.AcceptAndCreateProfile(context.Background(), inv.ID, p)

	require.NoError(t, err)
	assert.True(t, created.NeedsOnboarding)
	assert.Equal(t, models.RoleEmployee, created.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_AcceptAndCreateProfile_LostClaim(t *testing.T) {
	svc, mock := setupInviteService(t)
	inv := pendingInvite("new@shop.com", models.RoleEmployee)
	p := newInvitedProfile(models.Actor{ID: "actor-9", Email: "new@shop.com"}, inv)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE invites SET status = 'accepted'`).
		WithArgs("actor-9", inv.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := svc.AcceptAndCreateProfile(context.Background(), inv.ID, p)

	assert.ErrorIs(t, err, ErrInviteNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_ListPending(t *testing.T) {
	svc, mock := setupInviteService(t)

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE status = 'pending' AND shop_id = \$1`).
		WithArgs("shop-1").
		WillReturnRows(inviteRows(pendingInvite("a@shop.com", models.RoleEmployee)))

	invites, err := svc.ListPending(context.Background(), "shop-1")

	require.NoError(t, err)
	assert.Len(t, invites, 1)

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE status = 'pending' ORDER BY`).
		WillReturnRows(inviteRows(pendingInvite("a@shop.com", models.RoleEmployee), pendingInvite("b@shop.com", models.RoleManager)))

	invites, err = svc.ListPending(context.Background(), models.HeadOffice)

	require.NoError(t, err)
	assert.Len(t, invites, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_Cancel(t *testing.T) {
	svc, mock := setupInviteService(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM invites WHERE id = \$1 AND status = 'pending' AND shop_id = \$2`).
		WithArgs(id, "shop-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, svc.Cancel(context.Background(), id, "shop-1"))

	mock.ExpectExec(`DELETE FROM invites`).
		WithArgs(id, "shop-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, svc.Cancel(context.Background(), id, "shop-2"), ErrInviteNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
