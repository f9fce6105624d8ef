package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"golang.org/x/sync/singleflight"

	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
)

// Config controls dialing, framing and send retries.
type Config struct {
	Address                string
	DialTimeout            time.Duration
	WriteTimeout           time.Duration
	ReconnectInterval      time.Duration
	MaxFrameSize           int
	RetryMaxAttempts       int
	RetryInitialDelay      time.Duration
	RetryBackoffMultiplier float64
	BreakerThreshold       int
	BreakerTimeout         time.Duration
}

func (c Config) normalized() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = time.Second
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = 3
	}
	if c.RetryInitialDelay <= 0 {
		c.RetryInitialDelay = 50 * time.Millisecond
	}
	if c.RetryBackoffMultiplier < 1 {
		c.RetryBackoffMultiplier = 2.0
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 10 * time.Second
	}
	return c
}

// Handler receives every frame read from the provider, in arrival order.
type Handler func(ctx context.Context, frame []byte)

// Client is a reconnecting, length-prefixed TCP connection to the provider.
// Reads run in Run; Send may be called from any goroutine.
type Client struct {
	cfg     Config
	handler Handler

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	writeMu sync.Mutex
	dials   singleflight.Group

	retrier retry.Retry[struct{}]
	breaker circuitbreaker.CircuitBreaker[struct{}]
}

// NewClient creates a client for cfg.Address. handler may be nil for a
// send-only client.
func NewClient(cfg Config, handler Handler) *Client {
	cfg = cfg.normalized()
	threshold := uint32(cfg.BreakerThreshold) // #nosec G115 -- normalized to a small positive value

	return &Client{
		cfg:     cfg,
		handler: handler,
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   cfg.RetryMaxAttempts,
			InitialDelay:  cfg.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    cfg.RetryBackoffMultiplier,
			// An oversized payload fails the same way on every attempt.
			NonRetryableErrors: []error{ErrFrameTooLarge},
		}),
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.BreakerTimeout,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
}

// Run keeps a connection open and hands every received frame to the handler.
// It redials after ReconnectInterval when the connection drops and returns
// when ctx is cancelled. The connection stays usable for Send until Close.
func (c *Client) Run(ctx context.Context) error {
	slog.Info("[Transport] Starting", "address", c.cfg.Address)

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("[Transport] Dial failed", "address", c.cfg.Address, "error", err)
		} else {
			c.readLoop(ctx, conn)
		}

		select {
		case <-ctx.Done():
			slog.Info("[Transport] Stopping (context cancelled)")
			return nil
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	r := bufio.NewReader(conn)
	for {
		frame, err := ReadFrame(r, c.cfg.MaxFrameSize)
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.SetReadDeadline(time.Time{})
				return
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Warn("[Transport] Read failed, reconnecting", "error", err)
			}
			c.drop(conn)
			return
		}
		if c.handler != nil {
			c.handler(ctx, frame)
		}
	}
}

// Send writes one frame, redialing and retrying with exponential backoff.
// Failures after the last attempt, or while the breaker is open, wrap
// ErrTransportUnavailable.
func (c *Client) Send(ctx context.Context, payload []byte) error {
	_, err := c.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return c.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.sendOnce(ctx, payload)
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrTransportUnavailable, err)
	}
	return nil
}

func (c *Client) sendOnce(ctx context.Context, payload []byte) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.drop(conn)
		return err
	}
	if err := WriteFrame(conn, payload, c.cfg.MaxFrameSize); err != nil {
		if !errors.Is(err, ErrFrameTooLarge) {
			c.drop(conn)
		}
		return err
	}
	return nil
}

// connect returns the current connection or dials a new one. Concurrent
// callers share a single dial.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, net.ErrClosed
	}
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	v, err, _ := c.dials.Do("dial", func() (interface{}, error) {
		c.mu.Lock()
		if c.conn != nil {
			conn := c.conn
			c.mu.Unlock()
			return conn, nil
		}
		c.mu.Unlock()

		d := net.Dialer{Timeout: c.cfg.DialTimeout}
		conn, err := d.DialContext(ctx, "tcp", c.cfg.Address)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			conn.Close()
			return nil, net.ErrClosed
		}
		c.conn = conn
		slog.Info("[Transport] Connected", "address", c.cfg.Address)
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(net.Conn), nil
}

// drop closes conn if it is still the current connection.
func (c *Client) drop(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Ping reports ErrTransportUnavailable when no connection is open.
func (c *Client) Ping(_ context.Context) error {
	if !c.Connected() {
		return fmt.Errorf("%w: not connected to %s", coreerrors.ErrTransportUnavailable, c.cfg.Address)
	}
	return nil
}

// BreakerState returns the state of the send circuit breaker.
func (c *Client) BreakerState() string {
	return fmt.Sprint(c.breaker.State())
}

// Close closes the connection and stops further dials.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
