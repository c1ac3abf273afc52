package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Интерфейс для nats.Conn
type natsConnection interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// Mock для nats.Conn
type mockNATSConn struct {
	publishFunc   func(subj string, data []byte) error
	subscribeFunc func(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	closeFunc     func()
}

func (m *mockNATSConn) Publish(subj string, data []byte) error {
	if m.publishFunc != nil {
		return m.publishFunc(subj, data)
	}
	return nil
}

func (m *mockNATSConn) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	if m.subscribeFunc != nil {
		return m.subscribeFunc(subj, cb)
	}
	return &nats.Subscription{}, nil
}

func (m *mockNATSConn) Close() {
	if m.closeFunc != nil {
		m.closeFunc()
	}
}

// Тестовая версия natsNotifier для использования с моками
type testNotifier struct {
	conn    natsConnection
	subject string
	logger  *zap.Logger
}

func (n *testNotifier) publish(msg *ClassificationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}

	err = n.conn.Publish(n.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish classification: %w", err)
	}

	return nil
}

func (n *testNotifier) PublishVerified(ctx context.Context, userID string) error {
	return n.publish(&ClassificationMessage{Type: TypeVerified, UserID: userID})
}

func (n *testNotifier) PublishDuplicate(ctx context.Context, userID string, notification string) error {
	return n.publish(&ClassificationMessage{Type: TypeDouble, UserID: userID, Notification: notification})
}

func TestPublishVerified(t *testing.T) {
	var captured []byte
	var capturedSubject string

	notifier := &testNotifier{
		conn: &mockNATSConn{
			publishFunc: func(subj string, data []byte) error {
				capturedSubject = subj
				captured = data
				return nil
			},
		},
		subject: "verification.classified",
		logger:  zaptest.NewLogger(t),
	}

	if err := notifier.PublishVerified(context.Background(), "42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if capturedSubject != "verification.classified" {
		t.Errorf("expected subject 'verification.classified', but got '%s'", capturedSubject)
	}

	var msg ClassificationMessage
	if err := json.Unmarshal(captured, &msg); err != nil {
		t.Fatalf("failed to unmarshal published message: %v", err)
	}
	if msg.Type != TypeVerified {
		t.Errorf("expected type '%s', but got '%s'", TypeVerified, msg.Type)
	}
	if msg.UserID != "42" {
		t.Errorf("expected userId '42', but got '%s'", msg.UserID)
	}
	if msg.Notification != "" {
		t.Errorf("expected empty notification, but got '%s'", msg.Notification)
	}
}

func TestPublishDuplicate(t *testing.T) {
	var captured []byte

	notifier := &testNotifier{
		conn: &mockNATSConn{
			publishFunc: func(subj string, data []byte) error {
				captured = data
				return nil
			},
		},
		subject: "verification.classified",
		logger:  zaptest.NewLogger(t),
	}

	notification := "<@43> is an alt of <@42>."
	if err := notifier.PublishDuplicate(context.Background(), "43", notification); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var msg ClassificationMessage
	if err := json.Unmarshal(captured, &msg); err != nil {
		t.Fatalf("failed to unmarshal published message: %v", err)
	}
	if msg.Type != TypeDouble {
		t.Errorf("expected type '%s', but got '%s'", TypeDouble, msg.Type)
	}
	if msg.UserID != "43" {
		t.Errorf("expected userId '43', but got '%s'", msg.UserID)
	}
	if msg.Notification != notification {
		t.Errorf("expected notification '%s', but got '%s'", notification, msg.Notification)
	}
}

func TestPublishError(t *testing.T) {
	notifier := &testNotifier{
		conn: &mockNATSConn{
			publishFunc: func(subj string, data []byte) error {
				return errors.New("nats connection failed")
			},
		},
		subject: "verification.classified",
		logger:  zaptest.NewLogger(t),
	}

	err := notifier.PublishVerified(context.Background(), "42")
	if err == nil {
		t.Fatal("expected error, but got nil")
	}
}

func TestClassificationMessageWireFormat(t *testing.T) {
	tests := []struct {
		name     string
		msg      ClassificationMessage
		expected string
	}{
		{
			name:     "verified_omits_notification",
			msg:      ClassificationMessage{Type: TypeVerified, UserID: "42"},
			expected: `{"type":"verified","userId":"42"}`,
		},
		{
			name:     "double_carries_notification",
			msg:      ClassificationMessage{Type: TypeDouble, UserID: "43", Notification: "<@43> is an alt of <@42>."},
			expected: `{"type":"double","userId":"43","notification":"<@43> is an alt of <@42>."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("expected %s, but got %s", tt.expected, string(data))
			}
		})
	}
}
