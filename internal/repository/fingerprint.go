package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type FingerprintRepository interface {
	HasAccount(ctx context.Context, userID string) (bool, error)
	FingerprintByAccount(ctx context.Context, userID string) (string, error)
	FindByFingerprint(ctx context.Context, fingerprint string) ([]string, error)
	Insert(ctx context.Context, userID string, fingerprint string) error
}

type fingerprintRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewFingerprintRepository(db *pgxpool.Pool, logger *zap.Logger) FingerprintRepository {
	return &fingerprintRepository{
		db:     db,
		logger: logger,
	}
}

func (r *fingerprintRepository) HasAccount(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM account_fingerprints WHERE user_id = $1)`

	var exists bool
	err := r.db.QueryRow(ctx, query, userID).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check account", zap.Error(err), zap.String("user_id", userID))
		return false, fmt.Errorf("failed to check account: %w", err)
	}

	return exists, nil
}

// FingerprintByAccount возвращает пустую строку, если аккаунт не зарегистрирован.
func (r *fingerprintRepository) FingerprintByAccount(ctx context.Context, userID string) (string, error) {
	query := `SELECT fingerprint FROM account_fingerprints WHERE user_id = $1`

	var fp string
	err := r.db.QueryRow(ctx, query, userID).Scan(&fp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		r.logger.Error("failed to get fingerprint", zap.Error(err), zap.String("user_id", userID))
		return "", fmt.Errorf("failed to get fingerprint: %w", err)
	}

	return fp, nil
}

func (r *fingerprintRepository) FindByFingerprint(ctx context.Context, fingerprint string) ([]string, error) {
	// Порядок вставки сохраняется сортировкой по серийному идентификатору
	query := `
		SELECT user_id
		FROM account_fingerprints
		WHERE fingerprint = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, fingerprint)
	if err != nil {
		r.logger.Error("failed to find accounts by fingerprint", zap.Error(err))
		return nil, fmt.Errorf("failed to find accounts by fingerprint: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			r.logger.Error("failed to scan account", zap.Error(err))
			continue
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts by fingerprint: %w", err)
	}

	return userIDs, nil
}

func (r *fingerprintRepository) Insert(ctx context.Context, userID string, fingerprint string) error {
	query := `INSERT INTO account_fingerprints (user_id, fingerprint) VALUES ($1, $2)`

	_, err := r.db.Exec(ctx, query, userID, fingerprint)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRegistered
		}
		r.logger.Error("failed to insert fingerprint", zap.Error(err), zap.String("user_id", userID))
		return fmt.Errorf("failed to insert fingerprint: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
