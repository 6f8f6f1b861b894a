// Package push delivers notifications to registered devices through an
// external push gateway, fanning one logical notification out to many
// device tokens and absorbing per-token failures into aggregate counts.
package push

import (
	"context"
	"errors"
)

// Gateway errors.
var (
	// ErrGatewayUnavailable is returned when the gateway cannot be
	// initialized (missing or invalid credentials, unreachable service).
	ErrGatewayUnavailable = errors.New("push gateway unavailable")

	// ErrTokenNotRegistered is returned when the gateway reports that a
	// token no longer maps to an installed app instance.
	ErrTokenNotRegistered = errors.New("token not registered")
)

// Gateway is the external push delivery capability. It is called once per
// token; no batch primitive is assumed.
type Gateway interface {
	// Ready reports whether the gateway can deliver, initializing it on
	// first use. A non-nil error means every send in the current dispatch
	// would fail.
	Ready(ctx context.Context) error

	// Send delivers one notification to one device token.
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}
