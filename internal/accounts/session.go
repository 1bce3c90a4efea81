package accounts

import (
	"trade_exec/internal/chase"
	"trade_exec/internal/models"
	"trade_exec/internal/trade"
	"trade_exec/internal/venue"
)

// Session is one account's live connection to the venue plus the workers
// bound to it. Sessions are cached by the pool and shared across commands;
// everything inside is safe for concurrent use.
type Session struct {
	cfg         models.AccountConfig
	fingerprint string

	venue  venue.Client
	chaser *chase.Controller
	orch   *trade.Orchestrator
}

func (s *Session) ID() string { return s.cfg.ID }

// Config is the account configuration the session was built from.
func (s *Session) Config() models.AccountConfig { return s.cfg }

// Venue exposes the raw venue client for direct operations.
func (s *Session) Venue() venue.Client { return s.venue }

// Chaser exposes the account's retrying order controller.
func (s *Session) Chaser() *chase.Controller { return s.chaser }

// Orchestrator exposes the account's trade lifecycle runner.
func (s *Session) Orchestrator() *trade.Orchestrator { return s.orch }

func (s *Session) close() error {
	return s.venue.Close()
}
