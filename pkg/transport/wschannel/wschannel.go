// Package wschannel carries the editor's outbound scripts and the content
// surface's inbound events over one websocket connection.
//
// Every message is a JSON frame. The host sends eval frames and the
// surface answers each with a result frame carrying the same id. The
// surface sends event frames on its own.
package wschannel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/dispatcher"
)

// Frame types
const (
	FrameEval   = "eval"
	FrameResult = "result"
	FrameEvent  = "event"
)

// Frame is one websocket message
type Frame struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Script  string          `json:"script,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Settings controls timeouts and buffering
type Settings struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	SendBufferSize int
}

// DefaultSettings returns the settings used when none are given
func DefaultSettings() *Settings {
	return &Settings{
		WriteTimeout:   5 * time.Second,
		PingInterval:   30 * time.Second,
		SendBufferSize: 64,
	}
}

// Option configures a Channel
type Option func(*Channel)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger.Named("wschannel")
		}
	}
}

// WithSettings replaces the default settings
func WithSettings(settings *Settings) Option {
	return func(c *Channel) {
		if settings != nil {
			c.settings = settings
		}
	}
}

// WithSink delivers inbound events from the first frame on
func WithSink(sink func(payload string)) Option {
	return func(c *Channel) { c.sink = sink }
}

// WithEvaluator answers eval frames from the peer. The surface end of a
// connection uses it.
func WithEvaluator(evaluator dispatcher.Channel) Option {
	return func(c *Channel) { c.evaluator = evaluator }
}

// Channel is one end of a connection. It implements dispatcher.Channel.
type Channel struct {
	ws        *websocket.Conn
	settings  *Settings
	logger    *zap.Logger
	evaluator dispatcher.Channel

	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte
	done   chan struct{}

	sinkMu sync.RWMutex
	sink   func(payload string)

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]func(any, error)
	closed  bool
}

// New takes over ws and starts its reader and writer
func New(ctx context.Context, ws *websocket.Conn, opts ...Option) *Channel {
	cancelCtx, cancel := context.WithCancel(ctx)
	c := &Channel{
		ws:       ws,
		settings: DefaultSettings(),
		logger:   zap.NewNop(),
		ctx:      cancelCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		pending:  make(map[uint64]func(any, error)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.send = make(chan []byte, c.settings.SendBufferSize)

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		c.read()
	}()
	go c.write()
	go func() {
		<-c.ctx.Done()
		c.shutdown()
		<-readerDone
		close(c.done)
	}()
	return c
}

// Dial connects to a websocket endpoint
func Dial(ctx context.Context, url string, opts ...Option) (*Channel, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return New(ctx, ws, opts...), nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Accept upgrades an HTTP request to a channel
func Accept(ctx context.Context, w http.ResponseWriter, r *http.Request, opts ...Option) (*Channel, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	return New(ctx, ws, opts...), nil
}

// Attach sets where inbound events go
func (c *Channel) Attach(sink func(payload string)) {
	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()
	c.sink = sink
}

// Evaluate sends script to the peer and completes done with its answer.
// Calls still waiting when the channel closes complete with
// dispatcher.ErrClosed.
func (c *Channel) Evaluate(script string, done func(result any, err error)) {
	if done == nil {
		done = func(any, error) {}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		done(nil, dispatcher.ErrClosed)
		return
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = done
	c.mu.Unlock()

	if err := c.enqueue(Frame{Type: FrameEval, ID: id, Script: script}); err != nil {
		c.complete(id, nil, err)
	}
}

// Emit sends an inbound event to the peer. A payload that is a JSON
// object travels as the object, anything else as a JSON string.
func (c *Channel) Emit(payload string) {
	raw := json.RawMessage(payload)
	if len(payload) == 0 || payload[0] != '{' || !json.Valid(raw) {
		data, err := json.Marshal(payload)
		if err != nil {
			c.logger.Warn("failed to encode event", zap.Error(err))
			return
		}
		raw = data
	}
	if err := c.enqueue(Frame{Type: FrameEvent, Payload: raw}); err != nil {
		c.logger.Debug("event dropped", zap.Error(err))
	}
}

// Pending returns the number of evaluations waiting for an answer
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Done is closed once the connection is gone
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close ends the connection and fails every waiting evaluation
func (c *Channel) Close() {
	c.cancel()
	<-c.done
}

func (c *Channel) enqueue(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", frame.Type, err)
	}
	select {
	case <-c.ctx.Done():
		return dispatcher.ErrClosed
	case c.send <- data:
		return nil
	}
}

func (c *Channel) complete(id uint64, result any, err error) {
	c.mu.Lock()
	done, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("result for unknown call dropped", zap.Uint64("id", id))
		return
	}
	done(result, err)
}

func (c *Channel) shutdown() {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint64]func(any, error))
	c.mu.Unlock()

	deadline := time.Now().Add(c.settings.WriteTimeout)
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteControl(websocket.CloseMessage, message, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug("close frame not sent", zap.Error(err))
	}
	c.ws.Close()

	for _, done := range pending {
		done(nil, dispatcher.ErrClosed)
	}
}

func (c *Channel) write() {
	defer c.cancel()

	ping := time.NewTicker(c.settings.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Info("write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(c.settings.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Info("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Channel) read() {
	defer c.cancel()

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("read failed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug("non-text message dropped", zap.Int("type", messageType))
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("malformed frame dropped", zap.Error(err))
			continue
		}
		c.handle(frame)
	}
}

func (c *Channel) handle(frame Frame) {
	switch frame.Type {
	case FrameResult:
		result, err := decodeResult(frame)
		c.complete(frame.ID, result, err)
	case FrameEvent:
		c.deliver(eventPayload(frame.Payload))
	case FrameEval:
		c.answer(frame)
	default:
		c.logger.Warn("unknown frame dropped", zap.String("type", frame.Type))
	}
}

func decodeResult(frame Frame) (any, error) {
	if frame.Error != "" {
		return nil, errors.New(frame.Error)
	}
	if len(frame.Result) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(frame.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return result, nil
}

// eventPayload unquotes JSON strings and keeps objects as their JSON text
func eventPayload(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (c *Channel) deliver(payload string) {
	c.sinkMu.RLock()
	sink := c.sink
	c.sinkMu.RUnlock()

	if sink == nil {
		c.logger.Warn("event dropped, no sink attached", zap.String("payload", payload))
		return
	}
	sink(payload)
}

func (c *Channel) answer(frame Frame) {
	if c.evaluator == nil {
		c.reply(Frame{Type: FrameResult, ID: frame.ID, Error: "peer does not evaluate scripts"})
		return
	}
	c.evaluator.Evaluate(frame.Script, func(result any, err error) {
		reply := Frame{Type: FrameResult, ID: frame.ID}
		if err != nil {
			reply.Error = err.Error()
		} else if result != nil {
			data, err := json.Marshal(result)
			if err != nil {
				reply.Error = fmt.Sprintf("unencodable result: %v", err)
			} else {
				reply.Result = data
			}
		}
		c.reply(reply)
	})
}

func (c *Channel) reply(frame Frame) {
	if err := c.enqueue(frame); err != nil {
		c.logger.Debug("result dropped", zap.Uint64("id", frame.ID), zap.Error(err))
	}
}
