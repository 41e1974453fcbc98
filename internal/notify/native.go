package notify

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// NativeClient sends browser push through FCM for devices whose platform
// supports it natively.
type NativeClient struct {
	msg    *messaging.Client
	logger *zap.Logger
}

func NewNativeClient(ctx context.Context, credentialsFile string, logger *zap.Logger) (*NativeClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &NativeClient{msg: client, logger: logger}, nil
}

func (c *NativeClient) Send(ctx context.Context, sub NativeSubscription, p Payload) error {
	m := &messaging.Message{
		Token: sub.Token,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Icon:  p.Icon,
				Badge: p.Badge,
			},
			FCMOptions: &messaging.WebpushFCMOptions{
				Link: p.URL,
			},
		},
		Data: map[string]string{"url": p.URL, "kind": string(p.Kind)},
	}
	_, err := c.msg.Send(ctx, m)
	return err
}

// Gone reports the gateway's "this endpoint is permanently gone" signal,
// the trigger for deleting the stored subscription.
func (c *NativeClient) Gone(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err)
}
