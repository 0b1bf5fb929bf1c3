package push

import (
	"context"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"go.uber.org/zap"

	"telecare-backend/pkg/logger"
)

// APNsProvider implements Provider for the Apple Push Notification Service.
// Used for deployments that deliver directly to iOS instead of bridging
// through FCM.
type APNsProvider struct {
	client   *apns2.Client
	bundleID string
}

// APNsConfig contains configuration for the APNs provider (token-based auth)
type APNsConfig struct {
	KeyPath    string // Path to .p8 private key file
	KeyID      string // 10-character Key ID from the Apple Developer Portal
	TeamID     string // 10-character Team ID
	BundleID   string // App bundle ID
	Production bool   // Use production endpoint instead of sandbox
}

// NewAPNsProvider creates a new APNs provider
func NewAPNsProvider(config *APNsConfig) (*APNsProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("APNs config is required")
	}
	if config.BundleID == "" {
		return nil, fmt.Errorf("BundleID is required")
	}
	if config.KeyPath == "" || config.KeyID == "" || config.TeamID == "" {
		return nil, fmt.Errorf("KeyPath, KeyID and TeamID are required")
	}

	authKey, err := token.AuthKeyFromFile(config.KeyPath)
	if err != nil {
		logger.Error("Failed to load APNs key file",
			zap.Error(err),
			zap.String("key_id", config.KeyID))
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   config.KeyID,
		TeamID:  config.TeamID,
	})
	if config.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	logger.Info("APNs provider initialized",
		zap.String("bundle_id", config.BundleID),
		zap.Bool("production", config.Production))

	return &APNsProvider{
		client:   client,
		bundleID: config.BundleID,
	}, nil
}

// Send implements the Provider interface. APNs has no multicast; tokens are
// sent one at a time and failures aggregated.
func (a *APNsProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	if a.client == nil {
		return nil, fmt.Errorf("APNs client is not initialized")
	}

	result := &SendResult{}

	for _, deviceToken := range tokens {
		note := a.buildNotification(notification, deviceToken)

		resp, err := a.client.PushWithContext(ctx, note)
		if err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, err)
			continue
		}

		if resp.Sent() {
			result.SuccessCount++
			continue
		}

		result.FailureCount++
		result.Errors = append(result.Errors, fmt.Errorf("apns rejected: %s", resp.Reason))
		if resp.Reason == apns2.ReasonUnregistered || resp.Reason == apns2.ReasonBadDeviceToken {
			result.InvalidTokens = append(result.InvalidTokens, deviceToken)
		}
	}

	logger.Debug("APNs batch sent",
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failure_count", result.FailureCount))

	return result, nil
}

// buildNotification constructs an APNs notification
func (a *APNsProvider) buildNotification(n *Notification, deviceToken string) *apns2.Notification {
	p := payload.NewPayload()

	if n.DataOnly {
		p.ContentAvailable()
	} else {
		p.AlertTitle(n.Title).AlertBody(n.Body)
	}
	if n.Sound != "" {
		p.Sound(n.Sound)
	}
	if n.Badge != nil {
		p.Badge(*n.Badge)
	}
	for k, v := range n.Data {
		p.Custom(k, v)
	}

	note := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.bundleID,
		Payload:     p,
	}

	if n.Priority == "high" {
		note.Priority = apns2.PriorityHigh
	}
	if n.APNsPushType != "" {
		note.PushType = apns2.EPushType(n.APNsPushType)
	}
	if n.TTL != nil {
		note.Expiration = time.Now().Add(*n.TTL)
	}

	return note
}
