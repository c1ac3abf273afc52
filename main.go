package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"altwatch/internal/config"
	"altwatch/internal/httpapi"
	"altwatch/internal/keyring"
	"altwatch/internal/logger"
	"altwatch/internal/messaging"
	"altwatch/internal/repository"
	"altwatch/internal/service"
)

func runMigrations(db *pgxpool.Pool, log *zap.Logger) error {
	log.Info("Running database migrations")

	migrationsDir := "migrations"
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		log.Info("Running migration", zap.String("file", filename))

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		_, err = db.Exec(context.Background(), string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		log.Info("Migration completed", zap.String("file", filename))
	}

	log.Info("All migrations completed successfully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting alt-account verification gateway")

	db, err := pgxpool.New(context.Background(), cfg.DatabaseDSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to database")

	if err := runMigrations(db, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	notifier, err := messaging.NewNATSNotifier(cfg.NATS.URL, cfg.Verify.NotifySubject, log)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer notifier.Close()

	keys, err := keyring.New(cfg.Verify.RotationInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize key rotation", zap.Error(err))
	}

	rotationCtx, stopRotation := context.WithCancel(context.Background())
	defer stopRotation()
	go keys.Run(rotationCtx)

	fingerprintRepo := repository.NewFingerprintRepository(db, log)
	verificationService := service.NewVerificationService(
		fingerprintRepo, notifier, keys,
		cfg.Verify.PublicURL, cfg.Verify.Provenance, log)

	// Локальная трассировка исходящих событий классификации
	err = notifier.SubscribeToClassifications(context.Background(), func(msg *messaging.ClassificationMessage) {
		log.Info("Classification event delivered",
			zap.String("type", msg.Type),
			zap.String("user_id", msg.UserID))
	})
	if err != nil {
		log.Error("Failed to subscribe to classifications", zap.Error(err))
	}

	handlers := httpapi.NewHandlers(verificationService, log)
	router := httpapi.NewRouter(handlers, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting server", zap.String("address", addr))

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	stopRotation()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
