package service

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"trade_exec/pkg/logger"
)

// ListenerConfig is the inbound transport wiring.
type ListenerConfig struct {
	URL     string
	Subject string
	Queue   string // empty means no queue group
	Name    string // connection name shown on the NATS server
}

// Listener owns the NATS subscription feeding the handler. Each message is
// handled on its own goroutine so a slow fan-out never blocks the next
// delivery.
type Listener struct {
	cfg ListenerConfig
	h   *Handler

	nc     *nats.Conn
	sub    *nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

func NewListener(cfg ListenerConfig, h *Handler) *Listener {
	return &Listener{cfg: cfg, h: h}
}

func (l *Listener) Start() error {
	logger.Info("connecting to NATS at %s", l.cfg.URL)
	nc, err := nats.Connect(l.cfg.URL,
		nats.Name(l.cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return err
	}
	l.nc = nc
	l.ctx, l.cancel = context.WithCancel(context.Background())

	cb := func(msg *nats.Msg) {
		logger.Debug("received message on %q: %d bytes", msg.Subject, len(msg.Data))
		go l.h.Handle(l.ctx, msg.Data)
	}
	if l.cfg.Queue != "" {
		l.sub, err = nc.QueueSubscribe(l.cfg.Subject, l.cfg.Queue, cb)
	} else {
		l.sub, err = nc.Subscribe(l.cfg.Subject, cb)
	}
	if err != nil {
		nc.Close()
		return err
	}

	logger.Info("listening for commands on %q (queue %q)", l.cfg.Subject, l.cfg.Queue)
	return nil
}

// Stop drains the subscription so nothing new is delivered, then cuts the
// context in-flight commands run under.
func (l *Listener) Stop() {
	if l.sub != nil {
		if err := l.sub.Drain(); err != nil {
			logger.Error("draining command subscription: %v", err)
		}
	}
	if l.nc != nil {
		l.nc.Close()
	}
	if l.cancel != nil {
		l.cancel()
	}
	logger.Info("command listener stopped")
}
