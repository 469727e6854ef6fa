package scnet

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	apperrors "kbweb/pkg/errors"
	"kbweb/pkg/observability"
)

const (
	// Time allowed to write a message to the Graph Service
	writeWait = 10 * time.Second

	// Keepalive ping period
	pingPeriod = 30 * time.Second

	// Maximum message size accepted from the Graph Service
	maxMessageSize = 64 * 1024 * 1024
)

// ErrClosed is returned for requests issued after the connection ended
var ErrClosed = stderrors.New("graph service connection closed")

// Config holds Graph Service connection settings
type Config struct {
	URL            string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	Breaker        BreakerConfig
}

// BreakerConfig tunes the circuit breaker in front of the connection
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns defaults for a local Graph Service
func DefaultConfig() Config {
	return Config{
		URL:            "ws://localhost:8090/ws_json",
		DialTimeout:    10 * time.Second,
		RequestTimeout: 30 * time.Second,
		Breaker: BreakerConfig{
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
	}
}

// Client is one websocket session with the Graph Service. Requests may be
// issued concurrently; replies are matched by id.
type Client struct {
	cfg     Config
	conn    *websocket.Conn
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Collector
	logger  *zap.Logger

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan *message
	subs    map[int64]*subscription
	err     error

	done chan struct{}
}

// Dial connects to the Graph Service and starts the read loop
func Dial(ctx context.Context, cfg Config, metrics *observability.Collector, logger *zap.Logger) (*Client, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.DialTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to connect to graph service", err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		metrics: metrics,
		logger:  logger.With(zap.String("graphService", cfg.URL)),
		pending: make(map[int64]chan *message),
		subs:    make(map[int64]*subscription),
		done:    make(chan struct{}),
	}
	c.breaker = newBreaker(cfg.Breaker, metrics, c.logger)

	go c.readLoop()
	go c.keepalive()

	c.logger.Info("Connected to graph service")
	return c, nil
}

func newBreaker(cfg BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-service",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerState(int(to))
		},
		// a failed reply is the service answering and a cancelled caller says
		// nothing about it; only transport failures count
		IsSuccessful: func(err error) bool {
			return err == nil || apperrors.IsProtocol(err) || stderrors.Is(err, context.Canceled)
		},
	})
}

// Call sends one request and decodes the reply payload into out (when non-nil)
func (c *Client) Call(ctx context.Context, requestType string, payload, out interface{}) (err error) {
	ctx, span := observability.StartSpan(ctx, "scnet."+requestType, attribute.String("graph.request_type", requestType))
	start := time.Now()
	defer func() {
		c.metrics.RecordGraphRequest(requestType, time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, requestType, payload, out)
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewUnavailableError("graph service").WithCause(err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, requestType string, payload, out interface{}) error {
	id := c.nextID.Add(1)
	reply := make(chan *message, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return apperrors.NewNetworkError("graph service unavailable", c.err)
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(request{ID: id, Type: requestType, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", requestType, err)
	}
	if err := c.write(data); err != nil {
		return apperrors.NewNetworkError("failed to send graph service request", err)
	}

	timeout := time.NewTimer(c.cfg.RequestTimeout)
	defer timeout.Stop()

	var msg *message
	select {
	case msg = <-reply:
	case <-timeout.C:
		return apperrors.NewTimeoutError("graph service " + requestType)
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperrors.NewTimeoutError("graph service " + requestType)
		}
		return ctx.Err()
	case <-c.done:
		return apperrors.NewNetworkError("graph service connection lost", c.Err())
	}

	if !msg.Status {
		return apperrors.NewProtocolError(requestType, errorText(msg.Errors))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return apperrors.NewProtocolError(requestType, "malformed payload: "+err.Error())
	}
	return nil
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop routes replies to waiting requests and events to subscriptions
func (c *Client) readLoop() {
	var readErr error
	defer func() {
		c.shutdown(readErr)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			readErr = err
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Error("Graph service read error", zap.Error(err))
			}
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Dropping malformed graph service message", zap.Error(err))
			continue
		}

		if msg.Event {
			c.dispatchEvent(&msg)
			continue
		}

		c.mu.Lock()
		reply, ok := c.pending[msg.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("Reply for unknown request", zap.Int64("id", msg.ID))
			continue
		}
		select {
		case reply <- &msg:
		default:
			c.logger.Warn("Duplicate reply", zap.Int64("id", msg.ID))
		}
	}
}

func (c *Client) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("Failed to send ping", zap.Error(err))
			}
		case <-c.done:
			return
		}
	}
}

// shutdown fails pending requests and closes every subscription
func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return
	}
	if cause == nil {
		cause = ErrClosed
	}
	c.err = cause
	subs := c.subs
	c.subs = make(map[int64]*subscription)
	c.mu.Unlock()

	close(c.done)
	for _, sub := range subs {
		sub.close()
	}
	c.logger.Info("Graph service connection closed", zap.Error(cause))
}

// Done is closed when the connection has ended
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is open
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Ping checks the connection is still open
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// Close ends the session
func (c *Client) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	closeErr := c.conn.Close()
	<-c.done
	if err != nil && !stderrors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return closeErr
}
