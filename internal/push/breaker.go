package push

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned for sends attempted while the breaker is open.
var ErrCircuitOpen = errors.New("push circuit breaker is open")

// BreakerConfig holds circuit breaker settings for the push gateway.
type BreakerConfig struct {
	// Name identifies the breaker for logging/metrics.
	Name string

	// MaxRequests is the maximum number of sends allowed in half-open state.
	// Default: 1
	MaxRequests uint32

	// Timeout is the period of open state before switching to half-open.
	// Default: 60 seconds
	Timeout time.Duration

	// ReadyToTrip determines when to trip the breaker.
	// If nil, trips at 50% failure rate with 5+ sends.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called when the breaker state changes.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultBreakerConfig returns sensible defaults for the push breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: defaultReadyToTrip,
	}
}

func defaultReadyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// BreakerGateway wraps a Gateway with a circuit breaker so a dead push
// backend stops consuming a delivery-timeout per token. Sends rejected by
// an open breaker count as failures like any other delivery error.
type BreakerGateway struct {
	gateway Gateway
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerGateway wraps the given gateway with a circuit breaker.
func NewBreakerGateway(gateway Gateway, cfg BreakerConfig) *BreakerGateway {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = defaultReadyToTrip
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}

	return &BreakerGateway{
		gateway: gateway,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Ready reports gateway readiness. Readiness probes bypass the breaker;
// only delivery attempts feed it.
func (g *BreakerGateway) Ready(ctx context.Context) error {
	return g.gateway.Ready(ctx)
}

// Send delivers one notification through the breaker.
func (g *BreakerGateway) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.gateway.Send(ctx, token, title, body, data)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// Ensure BreakerGateway implements Gateway interface.
var _ Gateway = (*BreakerGateway)(nil)
