package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

const profileColumns = `id, email, display_name, avatar_url, phone, role, status, permissions,
		shop_id, needs_onboarding, invited_by, created_at, updated_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type ProfileService struct {
	db *database.DB
}

func NewProfileService(db *database.DB) *ProfileService {
	return &ProfileService{db: db}
}

func (s *ProfileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(s.db.Pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Update merges the non-nil fields of u into the stored profile and clears
// the onboarding flag.
func (s *ProfileService) Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	p, err := scanProfile(s.db.Pool.QueryRow(ctx, `
		UPDATE profiles SET
			display_name = COALESCE($1, display_name),
			phone = COALESCE($2, phone),
			avatar_url = COALESCE($3, avatar_url),
			needs_onboarding = FALSE,
			updated_at = NOW()
		WHERE id = $4
		RETURNING `+profileColumns,
		u.DisplayName, u.Phone, u.AvatarURL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) ListByShop(ctx context.Context, shopID string) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	args := []any{}
	if shopID != models.HeadOffice {
		query += ` WHERE shop_id = $1`
		args = append(args, shopID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// SetRoleByEmail changes role and status of the profile with the given email.
// It returns ErrProfileNotFound when no row matched.
func (s *ProfileService) SetRoleByEmail(ctx context.Context, email string, role models.Role, status models.ProfileStatus) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE profiles SET role = $1, status = $2, updated_at = NOW()
		WHERE LOWER(email) = $3
	`, role, status, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("failed to update profile role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// insertProfile creates p unless a profile with the same id exists, in which
// case it returns ErrProfileExists.
func insertProfile(ctx context.Context, q querier, p *models.Profile) (*models.Profile, error) {
	perms, err := marshalOverrides(p.Permissions)
	if err != nil {
		return nil, err
	}

	created, err := scanProfile(q.QueryRow(ctx, `
		INSERT INTO profiles (id, email, display_name, avatar_url, role, status, permissions,
			shop_id, needs_onboarding, invited_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+profileColumns,
		p.ID, p.Email, p.DisplayName, p.AvatarURL, p.Role, p.Status, perms,
		p.ShopID, p.NeedsOnboarding, p.InvitedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return created, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var perms []byte
	if err := row.Scan(
		&p.ID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Phone, &p.Role, &p.Status, &perms,
		&p.ShopID, &p.NeedsOnboarding, &p.InvitedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	overrides, err := unmarshalOverrides(perms)
	if err != nil {
		return nil, err
	}
	p.Permissions = overrides
	return &p, nil
}

func marshalOverrides(o rbac.Overrides) ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to encode permissions: %w", err)
	}
	return b, nil
}

func unmarshalOverrides(b []byte) (rbac.Overrides, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var o rbac.Overrides
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}
	return o, nil
}
