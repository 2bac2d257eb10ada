package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/errors"
	"github.com/harunnryd/seiri/internal/event"
	"github.com/harunnryd/seiri/internal/logger"
	"github.com/harunnryd/seiri/internal/pipeline"
)

type RuntimeConfig struct {
	ConnectTimeout time.Duration
	BackoffMin     time.Duration
	BackoffMax     time.Duration
	MaxRetries     int
}

// Applier consumes decoded events. Satisfied by *pipeline.Pipeline.
type Applier interface {
	Apply(ctx context.Context, evt *event.Event) []pipeline.Outcome
}

// Client tails the server's event endpoint and feeds each decoded event
// into the pipeline. Framing is SSE with an NDJSON fallback: any line
// that is itself a JSON object counts as one delivery. The transport is
// at-least-once and possibly reordered; the pipeline owns correctness.
type Client struct {
	endpoint   string
	apply      Applier
	httpClient *http.Client

	backoffMin time.Duration
	backoffMax time.Duration
	maxRetries int

	mu          sync.RWMutex
	connected   bool
	received    uint64
	applied     uint64
	lastEventAt time.Time
}

type Stats struct {
	Connected   bool      `json:"connected"`
	Received    uint64    `json:"received"`
	Applied     uint64    `json:"applied"`
	LastEventAt time.Time `json:"last_event_at"`
}

func NewClient(endpoint string, apply Applier, runtimeCfg RuntimeConfig) *Client {
	if runtimeCfg.ConnectTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultStreamConnectTimeout)
		if err == nil {
			runtimeCfg.ConnectTimeout = d
		}
	}
	if runtimeCfg.BackoffMin <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultStreamBackoffMin)
		if err == nil {
			runtimeCfg.BackoffMin = d
		}
	}
	if runtimeCfg.BackoffMax <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultStreamBackoffMax)
		if err == nil {
			runtimeCfg.BackoffMax = d
		}
	}

	return &Client{
		endpoint: endpoint,
		apply:    apply,
		httpClient: &http.Client{
			// No overall timeout: the stream is long-lived. Dial and
			// header timeouts come from the connect timeout.
			Transport: &http.Transport{
				ResponseHeaderTimeout: runtimeCfg.ConnectTimeout,
			},
		},
		backoffMin: runtimeCfg.BackoffMin,
		backoffMax: runtimeCfg.BackoffMax,
		maxRetries: runtimeCfg.MaxRetries,
	}
}

// Run connects and consumes until the context is cancelled. Transient
// failures reconnect with capped exponential backoff; a non-retryable
// failure ends the run.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.backoffMin
	attempts := 0

	for {
		connCtx := logger.WithConnID(ctx, event.NewID())

		err := c.consumeOnce(connCtx)
		if c.isConnected() {
			// The connection was established before it failed; start
			// the backoff schedule over.
			backoff = c.backoffMin
			attempts = 0
		}
		c.setConnected(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		mapped := errors.MapError(err)
		if !errors.IsRetryable(mapped) {
			return errors.Wrap(mapped, "stream terminated")
		}

		attempts++
		if c.maxRetries > 0 && attempts >= c.maxRetries {
			return errors.Wrap(mapped, fmt.Sprintf("stream gave up after %d attempts", attempts))
		}

		slog.Warn("Stream disconnected, reconnecting",
			"endpoint", c.endpoint,
			"attempt", attempts,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.backoffMax {
			backoff = c.backoffMax
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return errors.InvalidInput("build stream request: " + err.Error())
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transient("connect event stream: " + err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return errors.Transient(fmt.Sprintf("event stream returned status %d", resp.StatusCode))
	}

	c.setConnected(true)
	slog.Info("Event stream connected", "endpoint", c.endpoint, "conn_id", logger.GetConnID(ctx))

	// The scanner blocks in Read; closing the body on cancellation is
	// the only way to unblock it.
	connCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(connCtx)
	g.Go(func() error {
		<-gctx.Done()
		resp.Body.Close()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return c.consume(gctx, resp.Body)
	})
	return g.Wait()
}

func (c *Client) consume(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if data.Len() > 0 {
				c.dispatch(ctx, data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"), strings.HasPrefix(line, "event:"),
			strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"):
			// SSE framing we do not act on.
		case strings.HasPrefix(strings.TrimSpace(line), "{"):
			// NDJSON fallback: one object per line.
			c.dispatch(ctx, line)
		}
	}

	if data.Len() > 0 {
		c.dispatch(ctx, data.String())
	}

	if err := scanner.Err(); err != nil {
		return errors.Transient("read event stream: " + err.Error())
	}
	return errors.Transient("event stream closed by server")
}

func (c *Client) dispatch(ctx context.Context, payload string) {
	var evt event.Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		slog.Warn("Discarding undecodable stream payload", "error", err)
		return
	}
	if evt.EventID == "" {
		// Without a server id the event cannot be deduplicated across
		// deliveries; a synthesized id at least keeps it traceable.
		evt.EventID = event.NewID()
		slog.Debug("Synthesized event id", "type", evt.Type, "event_id", evt.EventID)
	}

	c.mu.Lock()
	c.received++
	c.lastEventAt = time.Now()
	c.mu.Unlock()

	outcomes := c.apply.Apply(ctx, &evt)

	c.mu.Lock()
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			c.applied++
		}
	}
	c.mu.Unlock()
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

func (c *Client) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Connected:   c.connected,
		Received:    c.received,
		Applied:     c.applied,
		LastEventAt: c.lastEventAt,
	}
}

func (c *Client) Health(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return errors.Transient("event stream not connected")
	}
	return nil
}
