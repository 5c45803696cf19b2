package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// PushSender delivers a rendered notification to a device channel.
type PushSender interface {
	Push(ctx context.Context, n *Notification) error
}

// Topic is the FCM topic a user's devices subscribe to.
func Topic(userID uuid.UUID) string {
	return "user-" + userID.String()
}

// FCMSender publishes to Firebase Cloud Messaging topics.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender authenticates with a service-account JSON file.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Push(ctx context.Context, n *Notification) error {
	_, err := s.client.Send(ctx, fcmMessage(n))
	if err != nil {
		return fmt.Errorf("send fcm message: %w", err)
	}
	return nil
}

func fcmMessage(n *Notification) *messaging.Message {
	return &messaging.Message{
		Topic: Topic(n.RecipientID),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: map[string]string{
			"notification_id": n.ID.String(),
			"kind":            n.Kind,
		},
	}
}
