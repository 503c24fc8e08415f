// Package stream maintains the persistent, authenticated event stream
// between one account and the city server.
//
// A Client owns the socket lifecycle: dial, handshake, welcome, event
// dispatch and acknowledgment, keep-alive probing, and reconnection with
// jittered exponential backoff. All mutable state is guarded by a single
// mutex; transports are generation-tagged so callbacks from a superseded
// socket can never mutate current state.
package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/openclawcity/citystream/internal/normalize"
	"github.com/openclawcity/citystream/internal/wire"
	"github.com/openclawcity/citystream/pkg/logger"
	"github.com/openclawcity/citystream/pkg/types"
)

// Config configures a stream client.
type Config struct {
	// URL is the WebSocket endpoint of the city server.
	URL string
	// AccountID identifies the account this stream serves.
	AccountID string
	// Token is the account's secret credential.
	Token string
	// Backoff bounds the reconnect schedule.
	Backoff BackoffConfig
	// KeepAliveInterval is the period between liveness probes.
	KeepAliveInterval time.Duration
	// DialTimeout bounds transport establishment.
	DialTimeout time.Duration
	// WriteTimeout bounds individual frame writes.
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Backoff.Base <= 0 {
		c.Backoff.Base = time.Second
	}
	if c.Backoff.Max <= 0 {
		c.Backoff.Max = 30 * time.Second
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = 30 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// connectWaiter is the single-use completion handle for an in-flight
// Connect. It is settled by exactly one of: welcome received, pre-welcome
// error received, or Stop.
type connectWaiter struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newConnectWaiter() *connectWaiter {
	return &connectWaiter{done: make(chan struct{})}
}

func (w *connectWaiter) settle(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

func (w *connectWaiter) settled() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Client is the session state machine for one account's stream.
type Client struct {
	cfg   Config
	hooks types.Hooks
	log   zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	state   types.State
	conn    *websocket.Conn
	gen     int
	stopped bool
	paused  bool

	attempts           int
	reconnectScheduled bool
	reconnectTimer     *time.Timer

	lastAckSeq    int64
	keepaliveStop chan struct{}
	waiter        *connectWaiter
	done          chan struct{}

	// writeMu serializes frame writes; gorilla permits one writer at a time.
	writeMu sync.Mutex
}

// New creates a stream client. It does not open a transport; call Connect.
func New(cfg Config, hooks types.Hooks) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:   cfg,
		hooks: hooks,
		log:   logger.WithComponent("stream").With().Str("account", cfg.AccountID).Logger(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		state: types.StateDisconnected,
		done:  make(chan struct{}),
	}
}

// Connect opens the stream and blocks until a welcome is received, Stop is
// called, or ctx is canceled. Canceling ctx abandons the wait only; the
// state machine keeps reconnecting until Stop.
func (c *Client) Connect(ctx context.Context) error {
	var notify []func()
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.state == types.StateConnected {
		c.mu.Unlock()
		return nil
	}
	w := c.waiter
	if w == nil || w.settled() {
		w = newConnectWaiter()
		c.waiter = w
	}
	c.startLocked(&notify)
	c.mu.Unlock()
	runAll(notify)

	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLocked begins a connection attempt if none is in flight or pending.
func (c *Client) startLocked(notify *[]func()) {
	if c.stopped || c.state != types.StateDisconnected || c.reconnectScheduled {
		return
	}
	c.setStateLocked(types.StateConnecting, notify)
	c.gen++
	gen := c.gen
	go c.dial(gen)
}

// Stop terminates the stream permanently. It is idempotent, cancels all
// timers, settles any in-flight Connect with ErrStopped, and closes the
// transport. No reconnect occurs after Stop.
func (c *Client) Stop() {
	c.shutdown(ErrStopped, nil)
}

// shutdown latches the stopped flag and tears everything down. info, when
// non-nil, is delivered to the error hook.
func (c *Client) shutdown(cause error, info *types.ErrorInfo) {
	var notify []func()
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectScheduled = false
	c.stopKeepAliveLocked()
	if c.waiter != nil {
		c.waiter.settle(cause)
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.setStateLocked(types.StateDisconnected, &notify)
	close(c.done)
	c.mu.Unlock()

	if info != nil {
		if h := c.hooks.OnError; h != nil {
			h(*info)
		}
	}
	runAll(notify)
}

// Done is closed once the client has stopped for good.
func (c *Client) Done() <-chan struct{} { return c.done }

// State returns the current connection state.
func (c *Client) State() types.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastAckSeq returns the acknowledgment watermark.
func (c *Client) LastAckSeq() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAckSeq
}

// Paused reports whether the server currently suppresses event delivery.
func (c *Client) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stopped reports whether the client has been permanently stopped.
func (c *Client) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// SendReply writes a consumer reply if a connection is currently live.
// Replies are not queued: when disconnected the reply is dropped, by
// contract with the server's own redelivery semantics.
func (c *Client) SendReply(r types.Reply) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == types.StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		c.log.Debug().Str("action", r.Action).Msg("dropping reply while disconnected")
		return
	}
	if err := c.writeFrame(conn, wire.NewReply(r)); err != nil {
		c.log.Warn().Err(err).Str("action", r.Action).Msg("reply write failed")
	}
}

// dial establishes the transport for generation gen and performs the
// handshake. Credential preflight failures are terminal; transport
// failures schedule a reconnect.
func (c *Client) dial(gen int) {
	if credentialExpired(c.cfg.Token) {
		c.log.Error().Msg("credential already expired, not dialing")
		c.shutdown(ErrAuthFailed, &types.ErrorInfo{
			Reason:  wire.ReasonAuthFailed,
			Message: "credential expired before connect",
		})
		return
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, resp, err := dialer.Dial(c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("dial failed")
		c.transportGone(gen)
		return
	}

	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	lastAck := c.lastAckSeq
	c.mu.Unlock()

	// Handshake: fresh hello when no watermark exists, resume otherwise so
	// the server replays only events past lastAck.
	var handshake any
	if lastAck > 0 {
		handshake = wire.NewResume(c.cfg.AccountID, c.cfg.Token, lastAck)
	} else {
		handshake = wire.NewHello(c.cfg.AccountID, c.cfg.Token)
	}
	if err := c.writeFrame(conn, handshake); err != nil {
		c.log.Warn().Err(err).Msg("handshake write failed")
		c.transportClosed(gen, err)
		return
	}

	go c.readLoop(conn, gen)
}

// readLoop consumes inbound frames until the transport fails. Malformed
// frames are dropped by the codec and never reach the state machine.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.transportClosed(gen, err)
			return
		}
		frame, ok := wire.Decode(data)
		if !ok {
			continue
		}
		c.handleFrame(gen, frame)
	}
}

func (c *Client) handleFrame(gen int, frame wire.Inbound) {
	switch f := frame.(type) {
	case *wire.Welcome:
		c.handleWelcome(gen, f)
	case *wire.Event:
		// Fire-and-forget so a slow consumer never stalls frame parsing or
		// liveness probing. dispatchEvent owns its own completion and always
		// acks.
		go c.dispatchEvent(gen, *f)
	case *wire.Result:
		c.log.Debug().Bool("success", f.Success).Str("error", f.Error).Msg("reply result")
	case *wire.ErrorFrame:
		c.handleErrorFrame(gen, f)
	case *wire.Paused:
		c.setPaused(true)
	case *wire.Resumed:
		c.setPaused(false)
	}
}

func (c *Client) setPaused(paused bool) {
	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()
	c.log.Info().Bool("paused", paused).Msg("pause state changed")
}

func (c *Client) handleWelcome(gen int, w *wire.Welcome) {
	var notify []func()
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(types.StateConnected, &notify)
	c.attempts = 0
	c.paused = w.Paused
	conn := c.conn
	c.startKeepAliveLocked(gen, conn)
	waiter := c.waiter
	c.mu.Unlock()
	runAll(notify)
	if waiter != nil {
		waiter.settle(nil)
	}

	c.log.Info().Str("location", w.Location).Int("backlog", len(w.Backlog)).Msg("welcome received")
	if h := c.hooks.OnWelcome; h != nil {
		h(types.WelcomeInfo{Location: w.Location, Paused: w.Paused, BacklogSize: len(w.Backlog)})
	}
	if len(w.Backlog) > 0 {
		go c.drainBacklog(gen, w.Backlog)
	}
}

// drainBacklog dispatches replayed events strictly in ascending sequence
// order, each fully acknowledged before the next begins.
func (c *Client) drainBacklog(gen int, backlog []wire.Event) {
	for i := range backlog {
		if c.Stopped() {
			return
		}
		c.dispatchEvent(gen, backlog[i])
	}
}

// dispatchEvent normalizes and delivers one event, then acknowledges it.
// The acknowledgment is sent regardless of consumer outcome: the server is
// the single source of truth for redelivery, and a poison event must not
// stall the stream forever.
func (c *Client) dispatchEvent(gen int, ev wire.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Int64("seq", ev.Seq).Msg("consumer panicked on event")
		}
		c.sendAck(gen, ev.Seq)
	}()

	env := normalize.Normalize(c.cfg.AccountID, &ev, time.Now())
	if h := c.hooks.OnEvent; h != nil {
		if err := h(env); err != nil {
			c.log.Warn().Err(err).Int64("seq", ev.Seq).Msg("consumer rejected event")
		}
	}
}

// sendAck advances the watermark (monotonic max, so racing dispatches can
// never regress it) and writes an ack frame when a transport is live. An
// ack lost while disconnected is recovered by the server's resume replay.
func (c *Client) sendAck(gen int, seq int64) {
	c.mu.Lock()
	if seq > c.lastAckSeq {
		c.lastAckSeq = seq
	}
	conn := c.conn
	live := c.state == types.StateConnected && gen == c.gen && conn != nil
	c.mu.Unlock()
	if !live {
		return
	}
	if err := c.writeFrame(conn, wire.NewAck(seq)); err != nil {
		c.log.Debug().Err(err).Int64("seq", seq).Msg("ack write failed")
	}
}

func (c *Client) handleErrorFrame(gen int, f *wire.ErrorFrame) {
	c.log.Warn().Str("reason", f.Reason).Str("message", f.Message).Msg("server error frame")
	if h := c.hooks.OnError; h != nil {
		h(types.ErrorInfo{Reason: f.Reason, Message: f.Message, RetryAfter: f.RetryAfter})
	}

	switch f.Reason {
	case wire.ReasonAuthFailed:
		// Retrying with the same credential fails identically; stop for good.
		c.shutdown(ErrAuthFailed, nil)
		return
	case wire.ReasonRateLimited:
		if f.RetryAfter > 0 {
			c.scheduleRateLimitedRetry(gen, f)
			return
		}
	}

	// Any other reason is non-fatal here; the transport-close handler still
	// governs reconnection. A pre-welcome error must not leave Connect
	// hanging though.
	c.rejectPendingConnect(fmt.Errorf("%w: %s", ErrServerRejected, f.Reason))
}

func (c *Client) scheduleRateLimitedRetry(gen int, f *wire.ErrorFrame) {
	delay := time.Duration(f.RetryAfter * float64(time.Second))
	var notify []func()
	c.mu.Lock()
	if c.stopped || gen != c.gen || c.state == types.StateConnected {
		c.mu.Unlock()
		return
	}
	// The server may keep the rejected transport open. It is useless during
	// the cooldown, so tear it down now; bumping the generation detaches its
	// read loop, and the retry dials fresh from DISCONNECTED.
	c.stopKeepAliveLocked()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.gen++
	c.setStateLocked(types.StateDisconnected, &notify)
	// Honor the server's cooldown exactly, replacing any pending backoff.
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectScheduled = true
	c.reconnectTimer = time.AfterFunc(delay, c.reconnect)
	c.mu.Unlock()
	runAll(notify)
	c.log.Info().Dur("retryAfter", delay).Msg("rate limited, deferring reconnect")

	c.rejectPendingConnect(fmt.Errorf("%w: %s", ErrServerRejected, f.Reason))
}

// rejectPendingConnect settles the in-flight Connect, if any, when a
// pre-welcome error arrives. Once connected it is a no-op.
func (c *Client) rejectPendingConnect(err error) {
	c.mu.Lock()
	w := c.waiter
	connected := c.state == types.StateConnected
	c.mu.Unlock()
	if connected || w == nil {
		return
	}
	w.settle(err)
}

// transportGone handles a dial that never produced a transport.
func (c *Client) transportGone(gen int) {
	var notify []func()
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(types.StateDisconnected, &notify)
	if !c.reconnectScheduled {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()
	runAll(notify)
}

// transportClosed handles the failure of an established transport. Error
// and close conditions funnel through the single read-loop exit, and the
// generation guard makes a second invocation for the same transport a
// no-op, so exactly one reconnect is scheduled per failure.
func (c *Client) transportClosed(gen int, err error) {
	var notify []func()
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.stopKeepAliveLocked()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.stopped {
		c.mu.Unlock()
		return
	}

	switch closeCode(err) {
	case wire.CloseSuperseded:
		// Another instance owns the session; reconnecting would fight it.
		c.mu.Unlock()
		c.log.Info().Msg("session superseded, stopping")
		c.shutdown(ErrSuperseded, nil)
		return
	case wire.CloseAuthFailed:
		c.mu.Unlock()
		c.shutdown(ErrAuthFailed, &types.ErrorInfo{Reason: wire.ReasonAuthFailed})
		return
	}

	c.setStateLocked(types.StateDisconnected, &notify)
	if !c.reconnectScheduled {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()
	runAll(notify)
	c.log.Warn().Err(err).Msg("transport closed")
}

// scheduleReconnectLocked arms the reconnect timer using the current
// attempt counter, then increments it. The reconnectScheduled guard
// prevents two concurrent timers; it is cleared exactly when the new
// attempt begins.
func (c *Client) scheduleReconnectLocked() {
	delay := Delay(c.cfg.Backoff, c.attempts, c.rng)
	c.attempts++
	c.reconnectScheduled = true
	c.reconnectTimer = time.AfterFunc(delay, c.reconnect)
	c.log.Info().Dur("delay", delay).Int("attempt", c.attempts).Msg("reconnect scheduled")
}

func (c *Client) reconnect() {
	var notify []func()
	c.mu.Lock()
	c.reconnectScheduled = false
	c.reconnectTimer = nil
	if c.stopped || c.state != types.StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(types.StateConnecting, &notify)
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	runAll(notify)
	go c.dial(gen)
}

func (c *Client) writeFrame(conn *websocket.Conn, frame any) error {
	data, err := wire.Encode(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) setStateLocked(st types.State, notify *[]func()) {
	if c.state == st {
		return
	}
	c.state = st
	if h := c.hooks.OnStateChange; h != nil {
		*notify = append(*notify, func() { h(st) })
	}
}

func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
