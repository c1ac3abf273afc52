package keyring

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const tokenBytes = 16

// Keyring хранит пару секретных ключей: текущий и предыдущий.
// Обе версии принимаются при погашении ссылки, поэтому выданная
// ссылка живёт от одного до двух интервалов ротации.
type Keyring struct {
	mu       sync.RWMutex
	current  string
	previous string

	interval time.Duration
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger) (*Keyring, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate initial secret: %w", err)
	}

	return &Keyring{
		current:  token,
		previous: token,
		interval: interval,
		logger:   logger,
	}, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Current возвращает действующий секрет для выдачи новых ссылок.
func (k *Keyring) Current() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current
}

// IsValid принимает текущий либо предыдущий секрет, ничего больше.
func (k *Keyring) IsValid(token string) bool {
	if token == "" {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return token == k.current || token == k.previous
}

// Rotate сдвигает пару: предыдущим становится текущий секрет,
// текущим — свежесгенерированный.
func (k *Keyring) Rotate() error {
	token, err := newToken()
	if err != nil {
		return fmt.Errorf("failed to rotate secret: %w", err)
	}

	k.mu.Lock()
	k.previous = k.current
	k.current = token
	k.mu.Unlock()

	k.logger.Debug("secret key rotated")
	return nil
}

// Run ротирует ключи по таймеру до отмены контекста.
func (k *Keyring) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := k.Rotate(); err != nil {
				k.logger.Error("failed to rotate secret key", zap.Error(err))
			}
		}
	}
}
