package push

import (
	"context"
	"time"

	"go.uber.org/zap"

	"telecare-backend/pkg/logger"
)

// Provider defines the interface for sending push notifications
type Provider interface {
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
}

// SendResult contains the result of a push notification send operation.
// Per-token failures are aggregated rather than aborting the batch.
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	Errors        []error
}

// Notification represents a push notification
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	ImageURL string            `json:"image_url,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"` // high, normal
	Sound    string            `json:"sound,omitempty"`
	Badge    *int              `json:"badge,omitempty"`

	// DataOnly suppresses the visible notification so the client app
	// handles delivery itself (used for incoming-call wakeups)
	DataOnly bool `json:"data_only,omitempty"`
	// TTL bounds how long the transport may hold an undelivered message.
	// Call notifications use the ringing window; a call alert delivered
	// after the caller gave up is worse than none.
	TTL *time.Duration `json:"ttl,omitempty"`
	// APNsPushType selects the apns-push-type header (e.g. "voip")
	APNsPushType string `json:"apns_push_type,omitempty"`
}

// MockProvider is a mock implementation for development/testing.
// It records each batch so tests can assert on chunking behavior.
type MockProvider struct {
	BatchSizes []int
	// FailPerBatch marks this many deliveries per batch as failed
	FailPerBatch int
}

// Send implements the Provider interface
func (m *MockProvider) Send(_ context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	m.BatchSizes = append(m.BatchSizes, len(tokens))

	logger.Debug("MockProvider: sending notification",
		zap.String("title", notification.Title),
		zap.Int("token_count", len(tokens)))

	failures := m.FailPerBatch
	if failures > len(tokens) {
		failures = len(tokens)
	}

	return &SendResult{
		SuccessCount: len(tokens) - failures,
		FailureCount: failures,
	}, nil
}
