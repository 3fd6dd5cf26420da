package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBootstrapService(t *testing.T) (*BootstrapService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewBootstrapService(db), mock
}

func expectProfileInsert(mock pgxmock.PgxPoolIface, p *models.Profile) *pgxmock.ExpectedQuery {
	return mock.ExpectQuery(`INSERT INTO profiles .+ ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(p.ID, p.Email, p.DisplayName, p.AvatarURL, p.Role, p.Status, pgxmock.AnyArg(),
			p.ShopID, p.NeedsOnboarding, p.InvitedBy)
}

func TestBootstrapService_Get(t *testing.T) {
	svc, mock := setupBootstrapService(t)
	email := "owner@shop.com"
	at := time.Now()

	mock.ExpectQuery(`SELECT initialized, primary_admin_email, initialized_at FROM bootstrap_config`).
		WillReturnRows(pgxmock.NewRows([]string{"initialized", "primary_admin_email", "initialized_at"}).
			AddRow(true, &email, &at))

	cfg, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.True(t, cfg.Initialized)
	require.NotNil(t, cfg.PrimaryAdminEmail)
	assert.Equal(t, email, *cfg.PrimaryAdminEmail)
}

func TestBootstrapService_Get_MissingRowIsUninitialized(t *testing.T) {
	svc, mock := setupBootstrapService(t)

	mock.ExpectQuery(`SELECT initialized`).WillReturnError(pgx.ErrNoRows)

	cfg, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.False(t, cfg.Initialized)
}

func TestBootstrapService_ClaimFirstAdmin(t *testing.T) {
	svc, mock := setupBootstrapService(t)
	p := newBootstrapProfile(models.Actor{ID: "actor-1", Email: "first@shop.com", DisplayName: "First"}, models.RoleAdmin)
	stored := *p
	stored.CreatedAt, stored.UpdatedAt = time.Now(), time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bootstrap_config .+ WHERE id = 'network' AND initialized = FALSE`).
		WithArgs("first@shop.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectProfileInsert(mock, p).WillReturnRows(profileRows(&stored))
	mock.ExpectCommit()

	created, err := svc.ClaimFirstAdmin(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.Equal(t, models.HeadOffice, created.ShopID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapService_ClaimFirstAdmin_AlreadyInitialized(t *testing.T) {
	svc, mock := setupBootstrapService(t)
	p := newBootstrapProfile(models.Actor{ID: "actor-2", Email: "second@shop.com"}, models.RoleAdmin)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bootstrap_config`).
		WithArgs("second@shop.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := svc.ClaimFirstAdmin(context.Background(), p)

	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapService_ClaimFirstAdmin_ProfileExistsRollsBack(t *testing.T) {
	svc, mock := setupBootstrapService(t)
	p := newBootstrapProfile(models.Actor{ID: "actor-1", Email: "first@shop.com"}, models.RoleAdmin)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bootstrap_config`).
		WithArgs("first@shop.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectProfileInsert(mock, p).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.ClaimFirstAdmin(context.Background(), p)

	assert.ErrorIs(t, err, ErrProfileExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapService_CreateSuperAdmin(t *testing.T) {
	svc, mock := setupBootstrapService(t)
	p := newBootstrapProfile(models.Actor{ID: "op-1", Email: "zwash.office@gmail.com"}, models.RoleSuperAdmin)
	stored := *p

	mock.ExpectBegin()
	expectProfileInsert(mock, p).WillReturnRows(profileRows(&stored))
	mock.ExpectExec(`UPDATE bootstrap_config SET initialized = TRUE, primary_admin_email = COALESCE`).
		WithArgs("zwash.office@gmail.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	created, err := svc.CreateSuperAdmin(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, created.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapService_CreateSuperAdmin_BeginFails(t *testing.T) {
	svc, mock := setupBootstrapService(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := svc.CreateSuperAdmin(context.Background(), &models.Profile{ID: "op-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}
