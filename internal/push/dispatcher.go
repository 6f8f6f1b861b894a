package push

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDeliveryTimeout bounds one gateway send so an unresponsive
// gateway call cannot stall the whole batch.
const DefaultDeliveryTimeout = 10 * time.Second

// Result holds the aggregate outcome of one dispatch. Success plus Failure
// always equals the number of tokens attempted.
type Result struct {
	Success int
	Failure int
}

// TokenResolver resolves users to their active device tokens.
// Implemented by the device registry service.
type TokenResolver interface {
	ActiveTokens(ctx context.Context, userIDs []string) ([]string, error)
	DeactivateToken(ctx context.Context, token string) error
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Gateway Gateway
	Devices TokenResolver
	Logger  zerolog.Logger

	// DeliveryTimeout bounds each per-token gateway call.
	// Default: DefaultDeliveryTimeout
	DeliveryTimeout time.Duration
}

// Dispatcher fans one notification out to a set of device tokens.
// Deliveries are one gateway call per token so a single expired or
// malformed token cannot poison the rest of the batch.
type Dispatcher struct {
	gateway Gateway
	devices TokenResolver
	logger  zerolog.Logger
	timeout time.Duration
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}

	return &Dispatcher{
		gateway: cfg.Gateway,
		devices: cfg.Devices,
		logger:  cfg.Logger,
		timeout: timeout,
	}
}

// SendToTokens delivers one notification to each token. Per-token delivery
// errors are logged and counted, never propagated; the returned error covers
// only a malformed notification payload. An empty token set returns {0,0}
// without contacting the gateway.
func (d *Dispatcher) SendToTokens(ctx context.Context, tokens []string, note *Notification) (*Result, error) {
	data, err := FlattenData(note.Data)
	if err != nil {
		return nil, err
	}

	if len(tokens) == 0 {
		return &Result{}, nil
	}

	// A gateway that cannot initialize fails the whole batch. Logged once
	// here rather than once per token.
	if err := d.gateway.Ready(ctx); err != nil {
		d.logger.Error().
			Err(err).
			Int("tokens", len(tokens)).
			Str("title", note.Title).
			Msg("Push gateway unavailable, batch failed")
		return &Result{Failure: len(tokens)}, nil
	}

	var (
		mu     sync.Mutex
		result Result
		wg     sync.WaitGroup
	)

	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			err := d.gateway.Send(sendCtx, token, note.Title, note.Body, data)
			if err != nil {
				mu.Lock()
				result.Failure++
				mu.Unlock()

				d.logger.Warn().
					Err(err).
					Str("token", RedactToken(token)).
					Str("title", note.Title).
					Msg("Push delivery failed")

				// Tokens the gateway no longer recognizes are retired so
				// later dispatches stop attempting them.
				if errors.Is(err, ErrTokenNotRegistered) && d.devices != nil {
					if derr := d.devices.DeactivateToken(ctx, token); derr != nil {
						d.logger.Warn().
							Err(derr).
							Str("token", RedactToken(token)).
							Msg("Failed to deactivate unregistered token")
					}
				}
				return
			}

			mu.Lock()
			result.Success++
			mu.Unlock()
		}(token)
	}

	wg.Wait()
	return &result, nil
}

// SendToUsers resolves each user's active tokens, unions them, and delegates
// to SendToTokens. Users without active devices contribute zero attempts.
func (d *Dispatcher) SendToUsers(ctx context.Context, userIDs []string, note *Notification) (*Result, error) {
	var tokens []string
	seen := make(map[string]bool)

	for _, userID := range userIDs {
		userTokens, err := d.devices.ActiveTokens(ctx, []string{userID})
		if err != nil {
			return nil, err
		}

		if len(userTokens) == 0 {
			d.logger.Info().
				Str("user_id", userID).
				Str("title", note.Title).
				Msg("No active device for user, skipping")
			continue
		}

		for _, token := range userTokens {
			if !seen[token] {
				seen[token] = true
				tokens = append(tokens, token)
			}
		}
	}

	return d.SendToTokens(ctx, tokens, note)
}

// RedactToken truncates a device token for logging. Full tokens are
// delivery credentials and must never reach the logs.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
