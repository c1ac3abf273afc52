package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"altwatch/internal/fingerprint"
	"altwatch/internal/keyring"
	"altwatch/internal/messaging"
	"altwatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrCrawlerProbe    = errors.New("link preview crawler probe")
	ErrForbidden       = errors.New("key invalid, expired or wrong provenance")
	ErrAlreadyVerified = errors.New("account already verified")
)

// Сигнатуры краулеров предпросмотра ссылок: их запросы не должны
// ни регистрировать отпечаток, ни порождать событие классификации.
var crawlerSignatures = []string{
	"Discordbot",
	"Slackbot",
	"TelegramBot",
	"WhatsApp",
}

// Classification — вердикт погашения: первая верификация или дубль.
type Classification struct {
	EventID      string
	Type         string
	UserID       string
	Matches      []string
	Notification string
}

// Message отдаёт человекочитаемый итог погашения.
func (c *Classification) Message() string {
	if c.Type == messaging.TypeDouble {
		return "Registration successful. However, " + c.Notification
	}
	return "Registration successful."
}

type VerificationService interface {
	CurrentKey() string
	IssueLink(ctx context.Context, userID string) (string, error)
	Redeem(ctx context.Context, encodedUserID, key, provenance, clientAddr, userAgent string) (*Classification, error)
	IsVerified(ctx context.Context, encodedUserID string) (bool, error)
	FindDuplicates(ctx context.Context, userID string) ([]string, error)
}

type verificationService struct {
	repo       repository.FingerprintRepository
	notifier   messaging.Notifier
	keys       *keyring.Keyring
	publicURL  string
	provenance string
	logger     *zap.Logger
}

func NewVerificationService(
	repo repository.FingerprintRepository,
	notifier messaging.Notifier,
	keys *keyring.Keyring,
	publicURL string,
	provenance string,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		repo:       repo,
		notifier:   notifier,
		keys:       keys,
		publicURL:  strings.TrimRight(publicURL, "/"),
		provenance: provenance,
		logger:     logger,
	}
}

// CurrentKey возвращает только действующий секрет, предыдущий не раскрывается.
func (s *verificationService) CurrentKey() string {
	return s.keys.Current()
}

func (s *verificationService) IssueLink(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidUserID
	}

	exists, err := s.repo.HasAccount(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to check account: %w", err)
	}
	if exists {
		return "", ErrAlreadyVerified
	}

	params := url.Values{}
	params.Set("userId", base64.StdEncoding.EncodeToString([]byte(userID)))
	params.Set("key", s.keys.Current())
	params.Set("from", s.provenance)

	link := fmt.Sprintf("%s/collect?%s", s.publicURL, params.Encode())
	s.logger.Info("verification link issued", zap.String("user_id", userID))
	return link, nil
}

func (s *verificationService) Redeem(ctx context.Context, encodedUserID, key, provenance, clientAddr, userAgent string) (*Classification, error) {
	userID, err := decodeUserID(encodedUserID)
	if err != nil {
		return nil, err
	}

	if isCrawler(userAgent) {
		s.logger.Info("ignoring link preview probe",
			zap.String("user_id", userID),
			zap.String("user_agent", userAgent))
		return nil, ErrCrawlerProbe
	}

	// Секрет и источник проверяются вместе: валидный ключ из чужого
	// канала выдачи всё равно отклоняется
	if !s.keys.IsValid(key) || provenance != s.provenance {
		s.logger.Info("redemption rejected", zap.String("user_id", userID))
		return nil, ErrForbidden
	}

	exists, err := s.repo.HasAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if exists {
		s.logger.Info("account already verified", zap.String("user_id", userID))
		return nil, ErrAlreadyVerified
	}

	fp := fingerprint.Hash(clientAddr)

	// Снимок совпадений берётся до вставки, чтобы новый аккаунт
	// не попал в собственный список дублей
	matches, err := s.repo.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to scan fingerprint matches: %w", err)
	}

	// Запись сохраняется и при найденных дублях, иначе поиск
	// по аккаунту перестаёт их видеть
	if err := s.repo.Insert(ctx, userID, fp); err != nil {
		if errors.Is(err, repository.ErrAlreadyRegistered) {
			return nil, ErrAlreadyVerified
		}
		return nil, fmt.Errorf("failed to record fingerprint: %w", err)
	}

	classification := s.classify(userID, matches)
	s.logger.Info("redemption classified",
		zap.String("event_id", classification.EventID),
		zap.String("type", classification.Type),
		zap.String("user_id", userID),
		zap.Int("matches", len(matches)))

	s.emit(classification)
	return classification, nil
}

func (s *verificationService) IsVerified(ctx context.Context, encodedUserID string) (bool, error) {
	userID, err := decodeUserID(encodedUserID)
	if err != nil {
		return false, err
	}

	exists, err := s.repo.HasAccount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

func (s *verificationService) FindDuplicates(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	fp, err := s.repo.FingerprintByAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	if fp == "" {
		return nil, nil
	}

	accounts, err := s.repo.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to scan fingerprint matches: %w", err)
	}
	return accounts, nil
}

func (s *verificationService) classify(userID string, matches []string) *Classification {
	classification := &Classification{
		EventID: uuid.New().String(),
		UserID:  userID,
		Matches: matches,
	}

	if len(matches) == 0 {
		classification.Type = messaging.TypeVerified
		return classification
	}

	classification.Type = messaging.TypeDouble
	if len(matches) == 1 {
		classification.Notification = fmt.Sprintf("<@%s> is an alt of <@%s>.", userID, matches[0])
	} else {
		others := make([]string, len(matches))
		for i, id := range matches {
			others[i] = fmt.Sprintf("<@%s> (%s)", id, id)
		}
		classification.Notification = fmt.Sprintf(
			"<@%s> is an alt of <@%s>.\nThe following accounts also belong to them:\n%s",
			userID, matches[0], strings.Join(others, "\n"))
	}
	return classification
}

// emit доставляет событие без ожидания: сбой доставки не откатывает погашение
func (s *verificationService) emit(classification *Classification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var err error
		if classification.Type == messaging.TypeDouble {
			err = s.notifier.PublishDuplicate(ctx, classification.UserID, classification.Notification)
		} else {
			err = s.notifier.PublishVerified(ctx, classification.UserID)
		}
		if err != nil {
			s.logger.Error("failed to deliver classification",
				zap.Error(err),
				zap.String("event_id", classification.EventID),
				zap.String("user_id", classification.UserID))
		}
	}()
}

func decodeUserID(encoded string) (string, error) {
	if encoded == "" {
		return "", ErrInvalidUserID
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) == 0 {
		return "", ErrInvalidUserID
	}
	return string(decoded), nil
}

func isCrawler(userAgent string) bool {
	for _, signature := range crawlerSignatures {
		if strings.Contains(userAgent, signature) {
			return true
		}
	}
	return false
}
