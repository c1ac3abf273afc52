package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	TypeVerified = "verified"
	TypeDouble   = "double"
)

// ClassificationMessage — двухвариантное сообщение для консьюмера-бота:
// первое прохождение верификации либо обнаруженный дубль.
type ClassificationMessage struct {
	Type         string `json:"type"`
	UserID       string `json:"userId"`
	Notification string `json:"notification,omitempty"`
}

type Notifier interface {
	PublishVerified(ctx context.Context, userID string) error
	PublishDuplicate(ctx context.Context, userID string, notification string) error
	SubscribeToClassifications(ctx context.Context, handler func(*ClassificationMessage)) error
	Close()
}

type natsNotifier struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATSNotifier(url string, subject string, logger *zap.Logger) (Notifier, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", url), zap.String("subject", subject))
	return &natsNotifier{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

func (n *natsNotifier) PublishVerified(ctx context.Context, userID string) error {
	return n.publish(&ClassificationMessage{
		Type:   TypeVerified,
		UserID: userID,
	})
}

func (n *natsNotifier) PublishDuplicate(ctx context.Context, userID string, notification string) error {
	return n.publish(&ClassificationMessage{
		Type:         TypeDouble,
		UserID:       userID,
		Notification: notification,
	})
}

func (n *natsNotifier) publish(msg *ClassificationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("failed to marshal classification", zap.Error(err))
		return fmt.Errorf("failed to marshal classification: %w", err)
	}

	err = n.conn.Publish(n.subject, data)
	if err != nil {
		n.logger.Error("failed to publish classification", zap.Error(err), zap.String("user_id", msg.UserID))
		return fmt.Errorf("failed to publish classification: %w", err)
	}

	n.logger.Info("classification published",
		zap.String("type", msg.Type),
		zap.String("user_id", msg.UserID))
	return nil
}

func (n *natsNotifier) SubscribeToClassifications(ctx context.Context, handler func(*ClassificationMessage)) error {
	_, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		var classification ClassificationMessage
		if err := json.Unmarshal(msg.Data, &classification); err != nil {
			n.logger.Error("failed to unmarshal classification message", zap.Error(err))
			return
		}

		handler(&classification)
		n.logger.Debug("classification message processed",
			zap.String("type", classification.Type),
			zap.String("user_id", classification.UserID))
	})

	if err != nil {
		n.logger.Error("failed to subscribe to classifications", zap.Error(err))
		return fmt.Errorf("failed to subscribe to classifications: %w", err)
	}

	n.logger.Info("subscribed to classification messages")
	return nil
}

func (n *natsNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
		n.logger.Info("NATS connection closed")
	}
}
