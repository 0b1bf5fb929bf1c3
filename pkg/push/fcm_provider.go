package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"go.uber.org/zap"

	"telecare-backend/pkg/logger"
)

// FCMProvider implements Provider using Firebase Cloud Messaging
type FCMProvider struct {
	app *firebase.App
}

// FCMConfig contains configuration for the FCM provider
type FCMConfig struct {
	CredentialsPath string // Path to service account JSON file
	CredentialsJSON []byte // Service account JSON content (alternative to file path)
	ProjectID       string // Firebase Project ID
}

// NewFCMProvider creates a new FCM provider
func NewFCMProvider(config *FCMConfig) (*FCMProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("FCM config is required")
	}

	var opts []option.ClientOption

	if len(config.CredentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(config.CredentialsJSON))
	} else if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		return nil, fmt.Errorf("either CredentialsPath or CredentialsJSON must be provided")
	}

	ctx := context.Background()

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: config.ProjectID,
	}, opts...)
	if err != nil {
		logger.Error("Failed to initialize Firebase app",
			zap.Error(err),
			zap.String("project_id", config.ProjectID))
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	logger.Info("FCM provider initialized",
		zap.String("project_id", config.ProjectID))

	return &FCMProvider{app: app}, nil
}

// Send implements the Provider interface. Tokens are sent as one multicast
// dispatch; callers are responsible for keeping batches within the
// transport's 500-address cap.
func (f *FCMProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	if f.app == nil {
		return nil, fmt.Errorf("FCM app is not initialized")
	}

	if len(tokens) == 0 {
		return &SendResult{}, nil
	}

	client, err := f.app.Messaging(ctx)
	if err != nil {
		logger.Error("Failed to get messaging client", zap.Error(err))
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	message := f.buildMulticastMessage(notification, tokens)

	response, err := client.SendEachForMulticast(ctx, message)
	if err != nil {
		logger.Error("Failed to send FCM multicast",
			zap.Int("token_count", len(tokens)),
			zap.Error(err))
		return &SendResult{
			FailureCount: len(tokens),
			Errors:       []error{err},
		}, err
	}

	result := &SendResult{
		SuccessCount: response.SuccessCount,
		FailureCount: response.FailureCount,
	}

	for i, resp := range response.Responses {
		if resp.Success || resp.Error == nil {
			continue
		}
		result.Errors = append(result.Errors, resp.Error)
		if messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error) {
			if i < len(tokens) {
				result.InvalidTokens = append(result.InvalidTokens, tokens[i])
			}
		}
	}

	logger.Debug("FCM multicast sent",
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failure_count", result.FailureCount),
		zap.Int("invalid_tokens", len(result.InvalidTokens)))

	return result, nil
}

// buildMulticastMessage constructs the platform-specific FCM message
func (f *FCMProvider) buildMulticastMessage(n *Notification, tokens []string) *messaging.MulticastMessage {
	data := make(map[string]string, len(n.Data))
	for k, v := range n.Data {
		data[k] = v
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
	}

	androidConfig := &messaging.AndroidConfig{}
	if n.Priority != "" {
		androidConfig.Priority = n.Priority
	}
	if n.TTL != nil {
		ttl := *n.TTL
		androidConfig.TTL = &ttl
	}

	apnsHeaders := map[string]string{}
	if n.Priority == "high" {
		apnsHeaders["apns-priority"] = "10"
	}
	if n.APNsPushType != "" {
		apnsHeaders["apns-push-type"] = n.APNsPushType
	}

	aps := &messaging.Aps{}
	if n.Sound != "" {
		aps.Sound = n.Sound
	}
	if n.Badge != nil {
		aps.Badge = n.Badge
	}

	if n.DataOnly {
		// No visible notification; the client wakes on the data payload
		aps.ContentAvailable = true
	} else {
		notification := &messaging.Notification{
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.ImageURL,
		}
		message.Notification = notification

		androidConfig.Notification = &messaging.AndroidNotification{
			Title:                 n.Title,
			Body:                  n.Body,
			ChannelID:             "high_importance_channel",
			DefaultSound:          true,
			DefaultVibrateTimings: true,
		}
		aps.Alert = &messaging.ApsAlert{
			Title: n.Title,
			Body:  n.Body,
		}
	}

	message.Android = androidConfig
	message.APNS = &messaging.APNSConfig{
		Headers: apnsHeaders,
		Payload: &messaging.APNSPayload{Aps: aps},
	}

	return message
}
