package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dimitrije/washdesk-api/internal/config"
	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/dimitrije/washdesk-api/pkg/logger"
)

func main() {
	if len(os.Args) < 3 || len(os.Args) > 4 {
		fmt.Println("Usage: set-role <email> <role> [approved|pending|rejected]")
		os.Exit(1)
	}

	log := logger.New(logger.Options{ServiceName: "set-role", Console: true})

	email := os.Args[1]
	role, err := models.ParseRole(os.Args[2])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid role")
	}
	status := models.StatusApproved
	if len(os.Args) == 4 {
		if status, err = models.ParseProfileStatus(os.Args[3]); err != nil {
			log.Fatal().Err(err).Msg("invalid status")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := services.NewProfileService(db).SetRoleByEmail(ctx, email, role, status); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			log.Fatal().Str("email", email).Msg("no profile found; the user must sign in once first")
		}
		log.Fatal().Err(err).Msg("failed to update profile")
	}

	fmt.Printf("Set %s to %s (%s)\n", email, role, status)
}
