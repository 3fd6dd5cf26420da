package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInviteNotFound     = errors.New("invite not found")
	ErrInviteShopRequired = errors.New("invite for a shop-level role needs a shop")
)

const inviteColumns = `id, email, role, permissions, shop_id, status, invited_by, accepted_by, created_at, updated_at`

type InviteService struct {
	db *database.DB
}

func NewInviteService(db *database.DB) *InviteService {
	return &InviteService{db: db}
}

type CreateInviteParams struct {
	Email       string
	Role        models.Role
	Permissions rbac.Overrides
	ShopID      *string
	InvitedBy   string
}

// Create stores a pending invite. Only admin and superadmin invites may
// leave the shop open, since those roles do not join an existing shop.
func (s *InviteService) Create(ctx context.Context, params CreateInviteParams) (*models.Invite, error) {
	if InviteNeedsShop(params.Role) && (params.ShopID == nil || *params.ShopID == "") {
		return nil, ErrInviteShopRequired
	}
	perms, err := marshalOverrides(params.Permissions)
	if err != nil {
		return nil, err
	}

	inv, err := scanInvite(s.db.Pool.QueryRow(ctx, `
		INSERT INTO invites (email, role, permissions, shop_id, invited_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+inviteColumns,
		normalizeEmail(params.Email), params.Role, perms, params.ShopID, params.InvitedBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return inv, nil
}

// InviteNeedsShop reports whether an invite for role must name a shop. An
// empty role means employee.
func InviteNeedsShop(role models.Role) bool {
	return role != models.RoleAdmin && role != models.RoleSuperAdmin
}

// FindPendingByEmail returns the oldest pending invite for email, compared
// case-insensitively.
func (s *InviteService) FindPendingByEmail(ctx context.Context, email string) (*models.Invite, error) {
	inv, err := scanInvite(s.db.Pool.QueryRow(ctx, `
		SELECT `+inviteColumns+`
		FROM invites
		WHERE LOWER(email) = $1 AND status = 'pending'
		ORDER BY created_at
		LIMIT 1
	`, normalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invite: %w", err)
	}
	return inv, nil
}

// AcceptAndCreateProfile moves the invite from pending to accepted and
// inserts p in one transaction. If another sign-in consumed the invite first
// it returns ErrInviteNotFound and writes nothing.
func (s *InviteService) AcceptAndCreateProfile(ctx context.Context, inviteID uuid.UUID, p *models.Profile) (*models.Profile, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE invites SET status = 'accepted', accepted_by = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`, p.ID, inviteID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInviteNotFound
	}

	created, err := insertProfile(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// ListPending lists pending invites of a shop; the head office sees all.
func (s *InviteService) ListPending(ctx context.Context, shopID string) ([]models.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE status = 'pending'`
	args := []any{}
	if shopID != models.HeadOffice {
		query += ` AND shop_id = $1`
		args = append(args, shopID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	return invites, rows.Err()
}

// Cancel deletes a pending invite. Outside the head office the invite must
// belong to shopID.
func (s *InviteService) Cancel(ctx context.Context, inviteID uuid.UUID, shopID string) error {
	query := `DELETE FROM invites WHERE id = $1 AND status = 'pending'`
	args := []any{inviteID}
	if shopID != models.HeadOffice {
		query += ` AND shop_id = $2`
		args = append(args, shopID)
	}

	tag, err := s.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to cancel invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func scanInvite(row pgx.Row) (*models.Invite, error) {
	var inv models.Invite
	var perms []byte
	if err := row.Scan(
		&inv.ID, &inv.Email, &inv.Role, &perms, &inv.ShopID, &inv.Status,
		&inv.InvitedBy, &inv.AcceptedBy, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	overrides, err := unmarshalOverrides(perms)
	if err != nil {
		return nil, err
	}
	inv.Permissions = overrides
	return &inv, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
