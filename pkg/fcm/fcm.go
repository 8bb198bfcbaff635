package fcm

import (
	"context"
	"fmt"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
)

// MaxMulticastTokens is the FCM limit for a single multicast request.
const MaxMulticastTokens = 500

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a new FCM client from the shared Firebase app
func NewClient(ctx context.Context, app *fb.App) (*Client, error) {
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Info().Str("component", "fcm").Msg("Client initialized successfully")
	return &Client{
		messagingClient: messagingClient,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title    string
	Body     string
	ImageURL string            // Optional notification image
	Data     map[string]string // Custom data payload
	// Click action
	ClickAction string // URL to open when notification is clicked
}

// SendResult is the gateway's answer for one token of a multicast.
type SendResult struct {
	MessageID string
	Err       error
}

// Send sends a push notification to a specific device token and returns the
// gateway message id.
func (c *Client) Send(ctx context.Context, token string, notification NotificationData) (string, error) {
	message := buildMessage(notification)
	message.Token = token

	id, err := c.messagingClient.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to send FCM message: %w", err)
	}
	return id, nil
}

// SendMulticast sends one notification to up to MaxMulticastTokens tokens.
// Per-token failures are reported in the results, not as the returned error.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, notification NotificationData) ([]SendResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("multicast supports at most %d tokens, got %d", MaxMulticastTokens, len(tokens))
	}

	single := buildMessage(notification)
	message := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: single.Notification,
		Data:         single.Data,
		Webpush:      single.Webpush,
		Android:      single.Android,
		APNS:         single.APNS,
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	log.Debug().Str("component", "fcm").
		Int("success", response.SuccessCount).
		Int("failure", response.FailureCount).
		Msg("Multicast sent")

	results := make([]SendResult, len(tokens))
	for i, resp := range response.Responses {
		if i >= len(results) {
			break
		}
		if resp.Success {
			results[i] = SendResult{MessageID: resp.MessageID}
		} else {
			results[i] = SendResult{Err: resp.Error}
		}
	}
	return results, nil
}

func buildMessage(notification NotificationData) *messaging.Message {
	data := notification.Data
	if notification.ClickAction != "" {
		data = make(map[string]string, len(notification.Data)+1)
		for k, v := range notification.Data {
			data[k] = v
		}
		data["click_action"] = notification.ClickAction
	}

	return &messaging.Message{
		Notification: &messaging.Notification{
			Title:    notification.Title,
			Body:     notification.Body,
			ImageURL: notification.ImageURL,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: notification.Title,
				Body:  notification.Body,
				Icon:  "/icon-192.svg",
			},
		},
	}
}
