// Package notifier drives the orchestrator from the outside: a fixed-interval
// poll ticker plus an optional push channel, both funnelling into the same
// fetch entry point.
package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"webmail_client/core/domain"
	"webmail_client/core/port/in"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChannelState is the push channel lifecycle state.
type ChannelState int32

const (
	ChannelIdle ChannelState = iota
	ChannelConnected
	ChannelReconnecting
	// ChannelFailed is terminal: the max-attempts ceiling was hit and the
	// channel will not retry again. Polling keeps running.
	ChannelFailed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelConnected:
		return "connected"
	case ChannelReconnecting:
		return "reconnecting"
	case ChannelFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds notifier settings.
type Config struct {
	PollInterval time.Duration
	PushChannel  string // pub/sub channel name; "" disables push
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	MaxRetries   int // 0 retries forever
}

// Notifier owns the poll ticker and push subscription lifecycles.
type Notifier struct {
	mailbox in.Mailbox
	client  *redis.Client
	cfg     Config
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pushState int32 // atomic ChannelState
}

// New creates a notifier. A nil redis client or empty channel name disables
// the push side; polling always runs.
func New(mailbox in.Mailbox, client *redis.Client, cfg Config, log zerolog.Logger) *Notifier {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 60 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		mailbox: mailbox,
		client:  client,
		cfg:     cfg,
		log:     log.With().Str("component", "notifier").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the poll loop and, when configured, the push loop.
func (n *Notifier) Start() {
	n.wg.Add(1)
	go n.runPoll()

	if n.client != nil && n.cfg.PushChannel != "" {
		n.wg.Add(1)
		go n.runPush()
	}
	n.log.Info().Dur("poll_interval", n.cfg.PollInterval).Msg("notifier started")
}

// Stop shuts both loops down and waits for them.
func (n *Notifier) Stop() {
	n.cancel()
	n.wg.Wait()
	n.log.Info().Msg("notifier stopped")
}

// PushState returns the push channel state.
func (n *Notifier) PushState() ChannelState {
	return ChannelState(atomic.LoadInt32(&n.pushState))
}

func (n *Notifier) setPushState(s ChannelState) {
	atomic.StoreInt32(&n.pushState, int32(s))
}

func (n *Notifier) runPoll() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			if err := n.mailbox.Refresh(n.ctx, domain.TriggerPoll); err != nil {
				n.log.Warn().Err(err).Msg("poll refresh failed")
			}
		}
	}
}

// runPush maintains the push subscription with capped exponential backoff.
// The attempt counter resets once a subscription is confirmed; when a
// max-attempts ceiling is configured and hit, the channel goes terminal
// instead of retrying forever.
func (n *Notifier) runPush() {
	defer n.wg.Done()

	attempts := 0
	backoff := n.cfg.MinBackoff

	for {
		if n.ctx.Err() != nil {
			return
		}

		connected, err := n.consume()
		if n.ctx.Err() != nil {
			return
		}
		if connected {
			attempts = 0
			backoff = n.cfg.MinBackoff
		}

		attempts++
		if n.cfg.MaxRetries > 0 && attempts > n.cfg.MaxRetries {
			n.setPushState(ChannelFailed)
			n.log.Error().Err(err).Int("attempts", attempts-1).
				Msg("push channel gave up after max reconnect attempts")
			return
		}

		n.setPushState(ChannelReconnecting)
		n.log.Warn().Err(err).Dur("backoff", backoff).Msg("push channel disconnected, reconnecting")

		select {
		case <-n.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > n.cfg.MaxBackoff {
			backoff = n.cfg.MaxBackoff
		}
	}
}

// consume subscribes and pumps push events into the orchestrator until the
// subscription breaks. Returns whether the subscription was ever confirmed.
func (n *Notifier) consume() (bool, error) {
	ps := n.client.Subscribe(n.ctx, n.cfg.PushChannel)
	defer ps.Close()

	if _, err := ps.Receive(n.ctx); err != nil {
		return false, err
	}
	n.setPushState(ChannelConnected)
	n.log.Info().Str("channel", n.cfg.PushChannel).Msg("push channel connected")

	for {
		// Payload content beyond "something changed" is not relied upon.
		_, err := ps.ReceiveMessage(n.ctx)
		if err != nil {
			return true, err
		}
		if err := n.mailbox.Refresh(n.ctx, domain.TriggerPush); err != nil {
			n.log.Warn().Err(err).Msg("push-triggered refresh failed")
		}
	}
}
