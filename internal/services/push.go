// Package services holds the FCM delivery path for nudges and completion
// notices. Delivery transport correctness is out of scope for the engine:
// a failed push is logged and dropped, never retried, and never affects the
// ledger or the nudge record that triggered it.
package services

import (
	"context"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/models"
)

// PushService wraps the FCM messaging client. A nil client means push is
// unconfigured (dev mode) and every send becomes a no-op.
type PushService struct {
	client *messaging.Client
}

// Global push service instance
var Push *PushService

// InitPush wires up Firebase Cloud Messaging from a service-account file.
// Every failure path degrades to the no-op service instead of erroring out:
// an engine without push is fully functional, just quieter.
func InitPush(serviceAccountPath string) error {
	Push = &PushService{}

	if serviceAccountPath == "" {
		log.Println("FCM: no service account configured, push disabled")
		return nil
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		log.Printf("FCM: firebase init failed, push disabled: %v", err)
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("FCM: messaging client failed, push disabled: %v", err)
		return nil
	}

	Push.client = client
	log.Println("FCM: push enabled")
	return nil
}

// fcmToken looks up the recipient's registered device token. Empty when the
// user never registered a device or logged out of it.
func fcmToken(userID uuid.UUID) string {
	var user models.User
	if err := database.DB.Select("fcm_token").First(&user, userID).Error; err != nil {
		return ""
	}
	return user.FCMToken
}

// SendToUser pushes a notification to one member's device. Used for nudges
// ("X is cheering you on") and group events; no-op without a configured
// client or a registered token.
func (p *PushService) SendToUser(userID uuid.UUID, title, body string, data map[string]string) {
	if p.client == nil {
		return
	}

	token := fcmToken(userID)
	if token == "" {
		return
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := p.client.Send(context.Background(), msg); err != nil {
		log.Printf("FCM: send to %s failed: %v", userID, err)
	}
}
