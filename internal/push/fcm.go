package push

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// FCMGateway delivers notifications through Firebase Cloud Messaging.
// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS or
// the ambient service account). Initialization is lazy and the outcome is
// cached, so a misconfigured deployment fails fast on every dispatch
// instead of retrying the SDK setup per token.
type FCMGateway struct {
	mu      sync.Mutex
	client  *messaging.Client
	initErr error
	inited  bool
}

// NewFCMGateway creates a new FCM gateway. No credentials are touched until
// the first dispatch.
func NewFCMGateway() *FCMGateway {
	return &FCMGateway{}
}

// Ready initializes the Firebase messaging client on first use.
func (g *FCMGateway) Ready(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inited {
		return g.initErr
	}
	g.inited = true

	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		g.initErr = fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		return g.initErr
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		g.initErr = fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		return g.initErr
	}

	g.client = client
	return nil
}

// Send delivers one notification to one device token.
func (g *FCMGateway) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if err := g.Ready(ctx); err != nil {
		return err
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	_, err := g.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			return fmt.Errorf("%w: %v", ErrTokenNotRegistered, err)
		}
		return err
	}

	return nil
}

// Ensure FCMGateway implements Gateway interface.
var _ Gateway = (*FCMGateway)(nil)
