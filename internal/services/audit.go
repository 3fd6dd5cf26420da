package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/models"
)

type AuditService struct {
	db *database.DB
}

func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO audit_log (actor_id, email, action, detail, shop_id)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ActorID, entry.Email, entry.Action, entry.Detail, entry.ShopID)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries of shopID. Head office reads every shop.
func (s *AuditService) Recent(ctx context.Context, shopID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, actor_id, email, action, detail, shop_id, created_at FROM audit_log`
	args := []any{limit}
	if shopID != models.HeadOffice {
		query += ` WHERE shop_id = $2`
		args = append(args, shopID)
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Email, &e.Action, &e.Detail, &e.ShopID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
