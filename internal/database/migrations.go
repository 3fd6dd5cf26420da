package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	// id is the authentication provider's subject, not generated here
	`CREATE TABLE IF NOT EXISTS profiles (
		id VARCHAR(255) PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		avatar_url VARCHAR(500),
		phone VARCHAR(50),
		role VARCHAR(50) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'approved',
		permissions JSONB,
		shop_id VARCHAR(255) NOT NULL,
		needs_onboarding BOOLEAN NOT NULL DEFAULT FALSE,
		invited_by VARCHAR(255),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS invites (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT '',
		permissions JSONB,
		shop_id VARCHAR(255),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		invited_by VARCHAR(255) NOT NULL,
		accepted_by VARCHAR(255),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Singleton row, id is always 'network'
	`CREATE TABLE IF NOT EXISTS bootstrap_config (
		id VARCHAR(20) PRIMARY KEY,
		initialized BOOLEAN NOT NULL DEFAULT FALSE,
		primary_admin_email VARCHAR(255),
		initialized_at TIMESTAMP WITH TIME ZONE
	)`,
	`INSERT INTO bootstrap_config (id, initialized) VALUES ('network', FALSE) ON CONFLICT (id) DO NOTHING`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		actor_id VARCHAR(255),
		email VARCHAR(255) NOT NULL DEFAULT '',
		action VARCHAR(100) NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		shop_id VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`ALTER TABLE audit_log ADD COLUMN IF NOT EXISTS shop_id VARCHAR(255) NOT NULL DEFAULT ''`,

	`CREATE INDEX IF NOT EXISTS idx_profiles_shop_id ON profiles(shop_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invites_email_status ON invites(LOWER(email), status)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_shop_id ON audit_log(shop_id, created_at DESC)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
