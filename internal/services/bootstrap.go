package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/jackc/pgx/v5"
)

var ErrAlreadyInitialized = errors.New("network already initialized")

// BootstrapService owns the singleton network bootstrap flag and the
// profile writes that must happen together with it.
type BootstrapService struct {
	db *database.DB
}

func NewBootstrapService(db *database.DB) *BootstrapService {
	return &BootstrapService{db: db}
}

func (s *BootstrapService) Get(ctx context.Context) (*models.BootstrapConfig, error) {
	var cfg models.BootstrapConfig
	err := s.db.Pool.QueryRow(ctx, `
		SELECT initialized, primary_admin_email, initialized_at
		FROM bootstrap_config WHERE id = 'network'
	`).Scan(&cfg.Initialized, &cfg.PrimaryAdminEmail, &cfg.InitializedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Migrations seed the row; a missing row means a fresh network.
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bootstrap config: %w", err)
	}
	return &cfg, nil
}

// ClaimFirstAdmin claims the uninitialized network for p and inserts p in
// the same transaction. Only one caller can win the claim; the others get
// ErrAlreadyInitialized and nothing is written.
func (s *BootstrapService) ClaimFirstAdmin(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE bootstrap_config
		SET initialized = TRUE, primary_admin_email = $1, initialized_at = NOW()
		WHERE id = 'network' AND initialized = FALSE
	`, p.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to claim bootstrap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyInitialized
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

// CreateSuperAdmin inserts the operator profile and marks the network
// initialized. An earlier primary admin email is kept.
func (s *BootstrapService) CreateSuperAdmin(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := insertProfile(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE bootstrap_config
		SET initialized = TRUE,
			primary_admin_email = COALESCE(primary_admin_email, $1),
			initialized_at = COALESCE(initialized_at, NOW())
		WHERE id = 'network'
	`, p.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to mark network initialized: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}
