// Package accounts fans work out across independent account sessions: one
// goroutine per account, failures isolated per account, results in input
// order.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"trade_exec/internal/chase"
	"trade_exec/internal/models"
	"trade_exec/internal/trade"
	"trade_exec/internal/venue"
	"trade_exec/pkg/logger"
)

// Result carries one account's outcome from a fan-out. Never mutated after
// the fan-out returns.
type Result[T any] struct {
	AccountID string
	Value     T
	Err       error
}

func (r Result[T]) Success() bool { return r.Err == nil }

// CacheStats describes the session cache.
type CacheStats struct {
	Sessions int
	Hits     int64
	Misses   int64
}

// Pool owns the session cache and the concurrency budget for fan-outs.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*Session // account id + ":" + credentials fingerprint

	board    chase.Board
	venueCfg venue.Config
	chaseCfg chase.Config
	tradeCfg trade.Config
	rec      trade.Recorder
	sem      *semaphore.Weighted

	hits   atomic.Int64
	misses atomic.Int64
}

func NewPool(board chase.Board, venueCfg venue.Config, chaseCfg chase.Config, tradeCfg trade.Config, rec trade.Recorder, maxParallel int64) *Pool {
	if maxParallel <= 0 {
		maxParallel = 16
	}
	return &Pool{
		sessions: map[string]*Session{},
		board:    board,
		venueCfg: venueCfg,
		chaseCfg: chaseCfg,
		tradeCfg: tradeCfg,
		rec:      rec,
		sem:      semaphore.NewWeighted(maxParallel),
	}
}

// Execute runs fn once per account concurrently. The i-th result always
// belongs to the i-th account; one account's failure (or panic) never
// cancels or delays the others. The only way Execute itself fails is a
// roster that lists the same account twice.
func Execute[T any](ctx context.Context, p *Pool, cfgs []models.AccountConfig, fn func(ctx context.Context, s *Session) (T, error)) ([]Result[T], error) {
	seen := make(map[string]struct{}, len(cfgs))
	for _, cfg := range cfgs {
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("account %q listed twice in one fan-out", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
	}

	results := make([]Result[T], len(cfgs))
	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		results[i].AccountID = cfg.ID
		wg.Add(1)
		go func(i int, cfg models.AccountConfig) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("account %s: fan-out panic: %v", cfg.ID, r)
					results[i].Err = fmt.Errorf("panic: %v", r)
				}
			}()

			if err := p.sem.Acquire(ctx, 1); err != nil {
				results[i].Err = err
				return
			}
			defer p.sem.Release(1)

			s, err := p.session(cfg)
			if err != nil {
				results[i].Err = err
				return
			}
			v, err := fn(ctx, s)
			results[i].Value = v
			results[i].Err = err
		}(i, cfg)
	}
	wg.Wait()
	return results, nil
}

// session returns the cached session for the account, building one when the
// account is new or its credentials rotated. Lookup and insert happen under
// one lock so two concurrent callers cannot race a duplicate session into
// existence.
func (p *Pool) session(cfg models.AccountConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fp := cfg.Fingerprint()
	key := cfg.ID + ":" + fp

	p.mu.Lock()
	if s, ok := p.sessions[key]; ok {
		p.mu.Unlock()
		p.hits.Add(1)
		return s, nil
	}

	// credential rotation: drop any session for the same account built from
	// other credentials
	var stale []*Session
	for k, s := range p.sessions {
		if s.cfg.ID == cfg.ID {
			stale = append(stale, s)
			delete(p.sessions, k)
		}
	}

	s := p.build(cfg, fp)
	p.sessions[key] = s
	p.mu.Unlock()

	p.misses.Add(1)
	for _, old := range stale {
		logger.Info("account %s: credentials rotated, closing stale session", cfg.ID)
		if err := old.close(); err != nil {
			logger.Error("account %s: closing stale session: %v", cfg.ID, err)
		}
	}
	return s, nil
}

func (p *Pool) build(cfg models.AccountConfig, fp string) *Session {
	var client venue.Client
	if cfg.Simulation {
		client = venue.NewPaper(cfg.ID, p.boardQuote)
	} else {
		client = venue.NewFutures(p.venueCfg, cfg.APIKey, cfg.APISecret)
	}

	chaser := chase.NewController(client, p.board, p.chaseCfg)
	return &Session{
		cfg:         cfg,
		fingerprint: fp,
		venue:       client,
		chaser:      chaser,
		orch:        trade.NewOrchestrator(cfg.ID, client, chaser, p.rec, p.tradeCfg),
	}
}

func (p *Pool) boardQuote(symbol string) (models.QuoteSnapshot, bool) {
	if p.board == nil {
		return models.QuoteSnapshot{}, false
	}
	return p.board.Get(symbol)
}

// Prewarm builds sessions for the whole roster ahead of the first command.
func (p *Pool) Prewarm(cfgs []models.AccountConfig) {
	for _, cfg := range cfgs {
		if _, err := p.session(cfg); err != nil {
			logger.Error("account %s: prewarm failed: %v", cfg.ID, err)
		}
	}
	st := p.Stats()
	logger.Info("session pool warmed: %d sessions", st.Sessions)
}

func (p *Pool) Stats() CacheStats {
	p.mu.Lock()
	n := len(p.sessions)
	p.mu.Unlock()
	return CacheStats{Sessions: n, Hits: p.hits.Load(), Misses: p.misses.Load()}
}

// Close closes every cached session, collecting failures instead of
// stopping at the first one.
func (p *Pool) Close() error {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.sessions = map[string]*Session{}
	p.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %s: %w", s.cfg.ID, err))
		}
	}
	return errors.Join(errs...)
}
