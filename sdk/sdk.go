// Package sdk is the host-facing surface of citystream: a lifecycle façade
// per account plus a registry for routing consumer replies to the right
// live stream.
package sdk

import (
	"context"

	"github.com/openclawcity/citystream/internal/config"
	"github.com/openclawcity/citystream/internal/stream"
	"github.com/openclawcity/citystream/pkg/types"
)

// Service wraps one account's stream client behind a thin start/stop and
// introspection surface. It holds no state of its own beyond delegation.
type Service struct {
	account string
	client  *stream.Client
}

// New builds a service for the configured account. The stream is not
// opened until Connect.
func New(cfg *config.Config, hooks types.Hooks) *Service {
	return &Service{
		account: cfg.AccountID,
		client: stream.New(stream.Config{
			URL:       cfg.ServerURL,
			AccountID: cfg.AccountID,
			Token:     cfg.Token,
			Backoff: stream.BackoffConfig{
				Base: cfg.BackoffBase,
				Max:  cfg.BackoffMax,
			},
			KeepAliveInterval: cfg.KeepAliveInterval,
		}, hooks),
	}
}

// Account returns the account identity this service streams for.
func (s *Service) Account() string { return s.account }

// Connect opens the stream and blocks until connected, stopped, or ctx is
// canceled. It is idempotent: connecting an already-connected service
// returns immediately.
func (s *Service) Connect(ctx context.Context) error {
	return s.client.Connect(ctx)
}

// Stop terminates the stream permanently. Idempotent.
func (s *Service) Stop() { s.client.Stop() }

// Done is closed once the service has stopped for good.
func (s *Service) Done() <-chan struct{} { return s.client.Done() }

// SendReply relays a consumer reply when a connection is live, dropping it
// silently otherwise.
func (s *Service) SendReply(r types.Reply) { s.client.SendReply(r) }

// State returns the current connection state.
func (s *Service) State() types.State { return s.client.State() }

// LastAckSeq returns the acknowledgment watermark.
func (s *Service) LastAckSeq() int64 { return s.client.LastAckSeq() }

// Paused reports whether the server currently suppresses event delivery.
func (s *Service) Paused() bool { return s.client.Paused() }
