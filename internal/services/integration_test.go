package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/dimitrije/washdesk-api/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type integrationServices struct {
	profiles  *services.ProfileService
	bootstrap *services.BootstrapService
	invites   *services.InviteService
	audit     *services.AuditService
	resolver  *services.ProfileResolver
}

func setupIntegration(t *testing.T, superAdminEmail string) *integrationServices {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := testutil.SetupTestDB(t)
	s := &integrationServices{
		profiles:  services.NewProfileService(tdb.DB),
		bootstrap: services.NewBootstrapService(tdb.DB),
		invites:   services.NewInviteService(tdb.DB),
		audit:     services.NewAuditService(tdb.DB),
	}
	s.resolver = services.NewProfileResolver(s.profiles, s.bootstrap, s.invites, services.ResolverConfig{
		SuperAdminEmail: superAdminEmail,
		Logger:          zerolog.Nop(),
		Audit:           s.audit,
	})
	return s
}

func kindOf(err error) services.ResolveKind {
	var re *services.ResolveError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func TestResolver_Integration_OnlyOneFirstAdmin(t *testing.T) {
	s := setupIntegration(t, "")
	ctx := context.Background()

	const signIns = 6
	var wg sync.WaitGroup
	results := make([]error, signIns)
	for i := 0; i < signIns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.resolver.Resolve(ctx, models.Actor{
				ID:    fmt.Sprintf("google-%d", i),
				Email: fmt.Sprintf("owner%d@sparkle-wash.com", i),
			})
		}(i)
	}
	wg.Wait()

	admins, denied := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			admins++
		case kindOf(err) == services.KindNotInvited:
			denied++
		default:
			t.Fatalf("unexpected resolve error: %v", err)
		}
	}
	assert.Equal(t, 1, admins)
	assert.Equal(t, signIns-1, denied)

	cfg, err := s.bootstrap.Get(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Initialized)
	require.NotNil(t, cfg.PrimaryAdminEmail)

	profiles, err := s.profiles.ListByShop(ctx, models.HeadOffice)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, models.RoleAdmin, profiles[0].Role)
	assert.Equal(t, *cfg.PrimaryAdminEmail, profiles[0].Email)

	entries, err := s.audit.Recent(ctx, models.HeadOffice, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "profile.created", entries[0].Action)
	assert.Equal(t, models.HeadOffice, entries[0].ShopID)

	entries, err = s.audit.Recent(ctx, "shop-9", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolver_Integration_SuperAdminAfterInitialization(t *testing.T) {
	s := setupIntegration(t, "Ops@WashDesk.io")
	ctx := context.Background()

	_, err := s.resolver.Resolve(ctx, models.Actor{ID: "first", Email: "first@sparkle-wash.com"})
	require.NoError(t, err)

	p, err := s.resolver.Resolve(ctx, models.Actor{ID: "ops", Email: "ops@washdesk.io"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, p.Role)
	assert.Equal(t, models.HeadOffice, p.ShopID)

	cfg, err := s.bootstrap.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first@sparkle-wash.com", *cfg.PrimaryAdminEmail, "the primary admin is kept")
}

func TestResolver_Integration_InviteIsConsumedOnce(t *testing.T) {
	s := setupIntegration(t, "")
	ctx := context.Background()

	admin, err := s.resolver.Resolve(ctx, models.Actor{ID: "admin", Email: "admin@sparkle-wash.com"})
	require.NoError(t, err)

	shop := "shop-7"
	inv, err := s.invites.Create(ctx, services.CreateInviteParams{
		Email:       "Washer@Sparkle-Wash.com",
		Role:        models.RoleSeniorEmployee,
		Permissions: rbac.Overrides{rbac.ResourceInvoices: rbac.Scoped(rbac.Actions{View: true})},
		ShopID:      &shop,
		InvitedBy:   admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "washer@sparkle-wash.com", inv.Email)

	p, err := s.resolver.Resolve(ctx, models.Actor{ID: "washer", Email: "washer@sparkle-wash.com", DisplayName: "Washer"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeniorEmployee, p.Role)
	assert.Equal(t, "shop-7", p.ShopID)
	assert.True(t, p.NeedsOnboarding)
	assert.Equal(t, inv.Permissions, p.Permissions)

	pending, err := s.invites.ListPending(ctx, models.HeadOffice)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Resolving again finds the stored profile.
	again, err := s.resolver.Resolve(ctx, models.Actor{ID: "washer", Email: "washer@sparkle-wash.com"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	// Another Google account with the same address has nothing left to claim.
	_, err = s.resolver.Resolve(ctx, models.Actor{ID: "washer-2", Email: "WASHER@sparkle-wash.com"})
	assert.Equal(t, services.KindNotInvited, kindOf(err))
}

func TestProfileService_Integration_OnboardingAndApproval(t *testing.T) {
	s := setupIntegration(t, "")
	ctx := context.Background()

	_, err := s.resolver.Resolve(ctx, models.Actor{ID: "admin", Email: "admin@sparkle-wash.com"})
	require.NoError(t, err)
	_, err = s.invites.Create(ctx, services.CreateInviteParams{Email: "new@sparkle-wash.com", InvitedBy: "admin"})
	require.ErrorIs(t, err, services.ErrInviteShopRequired)
	shop := "admin"
	_, err = s.invites.Create(ctx, services.CreateInviteParams{Email: "new@sparkle-wash.com", ShopID: &shop, InvitedBy: "admin"})
	require.NoError(t, err)
	_, err = s.resolver.Resolve(ctx, models.Actor{ID: "new", Email: "new@sparkle-wash.com"})
	require.NoError(t, err)

	name, phone := "Nina", "+381 64 000 000"
	updated, err := s.profiles.Update(ctx, "new", models.ProfileUpdate{DisplayName: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Nina", updated.DisplayName)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)
	assert.False(t, updated.NeedsOnboarding)
	assert.Equal(t, models.RoleEmployee, updated.Role)
	assert.Equal(t, "admin", updated.ShopID)

	_, err = s.profiles.Update(ctx, "ghost", models.ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, services.ErrProfileNotFound)

	require.NoError(t, s.profiles.SetRoleByEmail(ctx, "NEW@sparkle-wash.com", models.RoleManager, models.StatusPending))
	_, err = s.resolver.Resolve(ctx, models.Actor{ID: "new", Email: "new@sparkle-wash.com"})
	assert.Equal(t, services.KindPendingApproval, kindOf(err))

	err = s.profiles.SetRoleByEmail(ctx, "nobody@sparkle-wash.com", models.RoleManager, models.StatusApproved)
	assert.ErrorIs(t, err, services.ErrProfileNotFound)
}

func TestInviteService_Integration_ShopScoping(t *testing.T) {
	s := setupIntegration(t, "")
	ctx := context.Background()

	shopA, shopB := "shop-a", "shop-b"
	a, err := s.invites.Create(ctx, services.CreateInviteParams{Email: "a@x.com", ShopID: &shopA, InvitedBy: "admin-a"})
	require.NoError(t, err)
	_, err = s.invites.Create(ctx, services.CreateInviteParams{Email: "b@x.com", ShopID: &shopB, InvitedBy: "admin-b"})
	require.NoError(t, err)

	onlyA, err := s.invites.ListPending(ctx, shopA)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "a@x.com", onlyA[0].Email)

	all, err := s.invites.ListPending(ctx, models.HeadOffice)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, s.invites.Cancel(ctx, a.ID, shopB), services.ErrInviteNotFound)
	require.NoError(t, s.invites.Cancel(ctx, a.ID, shopA))
	assert.ErrorIs(t, s.invites.Cancel(ctx, a.ID, shopA), services.ErrInviteNotFound)
}
