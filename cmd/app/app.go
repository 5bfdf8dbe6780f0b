package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vietanh2810/rally-api/internal/api"
	"github.com/vietanh2810/rally-api/internal/config"
	"github.com/vietanh2810/rally-api/internal/db"
	"github.com/vietanh2810/rally-api/internal/logger"
	"github.com/vietanh2810/rally-api/internal/payment"
	"github.com/vietanh2810/rally-api/internal/storage"
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway := payment.NewStripeGateway(conf.Stripe)
	if err = gateway.Initialize(ctx); err != nil {
		if !errors.Is(err, payment.ErrNotConfigured) {
			return fmt.Errorf("failed to initialize payment gateway -> %w", err)
		}
		zap.L().Warn("stripe secret key missing, paid registrations are disabled")
	}
	defer gateway.Dispose()

	var uploader storage.Uploader
	firebaseUploader, err := storage.NewFirebaseUploader(ctx, conf.Firebase)
	switch {
	case err == nil:
		uploader = firebaseUploader
	case errors.Is(err, storage.ErrNotConfigured):
		zap.L().Warn("firebase storage bucket missing, media uploads are disabled")
	default:
		return fmt.Errorf("failed to initialize media storage -> %w", err)
	}

	s := api.NewServer(conf, postgresDB, gateway, uploader)
	go s.Hub.Run(ctx)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}
