package service

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"trade_exec/pkg/logger"
)

const writeWait = 5 * time.Second

// Health is the slice of the health state the stream reports into.
type Health interface {
	SetFeedConnected(v bool)
	TouchQuote(t time.Time)
}

type StreamConfig struct {
	URL            string        // combined-stream endpoint, e.g. wss://host/stream
	Symbols        []string      // fixed set subscribed at connect time
	ConnMaxAge     time.Duration // proactive recycle; the server enforces a ceiling anyway
	ReconnectDelay time.Duration // fixed backoff after a failed/broken connection
	PingInterval   time.Duration // client-initiated pings
	ReadTimeout    time.Duration // no traffic for this long means the connection is dead
}

func (c *StreamConfig) applyDefaults() {
	if c.ConnMaxAge <= 0 {
		c.ConnMaxAge = 24 * time.Hour
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 60 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 75 * time.Second
	}
}

// Stream feeds the quote cache from the venue's bookTicker websocket,
// reconnecting forever until stopped.
type Stream struct {
	cfg    StreamConfig
	cache  *Cache
	health Health
	dialer *websocket.Dialer

	cancel context.CancelFunc
	done   chan struct{}
}

func NewStream(cfg StreamConfig, cache *Cache, health Health) *Stream {
	cfg.applyDefaults()
	return &Stream{
		cfg:    cfg,
		cache:  cache,
		health: health,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Start launches the connection loop in the background.
func (s *Stream) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.run(ctx)
	}()
}

// Stop tears the loop down and waits for it to exit.
func (s *Stream) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Stream) streamURL() string {
	parts := make([]string, 0, len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		parts = append(parts, strings.ToLower(sym)+"@bookTicker")
	}
	sep := "?streams="
	if strings.Contains(s.cfg.URL, "?") {
		sep = "&streams="
	}
	return s.cfg.URL + sep + strings.Join(parts, "/")
}

func (s *Stream) run(ctx context.Context) {
	url := s.streamURL()
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := s.dialer.DialContext(ctx, url, nil)
		if err != nil {
			logger.Error("market data dial failed: %v", err)
			s.health.SetFeedConnected(false)
			sleepCtx(ctx, s.cfg.ReconnectDelay)
			continue
		}

		recycled := s.serve(ctx, conn)
		s.health.SetFeedConnected(false)
		if ctx.Err() != nil {
			return
		}
		if recycled {
			// planned teardown: redial immediately
			continue
		}
		sleepCtx(ctx, s.cfg.ReconnectDelay)
	}
}

// serve pumps one connection until it dies or ages out. Returns true when
// the teardown was the proactive max-age recycle.
func (s *Stream) serve(ctx context.Context, conn *websocket.Conn) bool {
	defer conn.Close()

	connectedAt := time.Now()
	extend := func() { _ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)) }
	extend()

	// server pings are answered in kind and count as traffic
	conn.SetPingHandler(func(payload string) error {
		extend()
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(writeWait))
	})
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	s.health.SetFeedConnected(true)
	logger.Info("market data stream connected: %d symbols", len(s.cfg.Symbols))

	stopPing := make(chan struct{})
	defer close(stopPing)

	go func() {
		ping := time.NewTicker(s.cfg.PingInterval)
		defer ping.Stop()
		recycle := time.NewTimer(s.cfg.ConnMaxAge)
		defer recycle.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-recycle.C:
				logger.Info("market data connection reached max age, recycling")
				_ = conn.Close()
				return
			case <-ping.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			if time.Since(connectedAt) >= s.cfg.ConnMaxAge {
				return true
			}
			logger.Error("market data read failed: %v", err)
			return false
		}
		extend()
		s.handleMessage(msg)
	}
}

func (s *Stream) handleMessage(msg []byte) {
	q, err := parseQuote(msg)
	if err != nil {
		logger.Debug("market data frame skipped: %v", err)
		return
	}
	if !s.cache.Put(q) {
		logger.Debug("dropped non-positive quote for %s: bid=%s ask=%s", q.Symbol, q.Bid, q.Ask)
		return
	}
	s.health.TouchQuote(q.ObservedAt)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
