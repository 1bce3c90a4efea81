// Package service parses inbound commands and routes them onto the account
// pool. One message in, one fan-out and one operator summary out.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"trade_exec/internal/accounts"
	"trade_exec/internal/chase"
	"trade_exec/internal/helper"
	"trade_exec/internal/models"
	healthsvc "trade_exec/internal/modules/health/service"
	"trade_exec/internal/notify"
	"trade_exec/internal/trade"
	"trade_exec/pkg/logger"
)

// Executor is the slice of the account pool the dispatcher drives.
type Executor interface {
	OpenTrades(ctx context.Context, cfgs []models.AccountConfig, req trade.Request) ([]accounts.Result[*models.Trade], error)
	PlaceOrders(ctx context.Context, cfgs []models.AccountConfig, reqs []models.OrderRequest) ([]accounts.Result[models.OrderLeg], error)
	PlaceBBOOrders(ctx context.Context, cfgs []models.AccountConfig, req chase.Request) ([]accounts.Result[models.OrderLeg], error)
	ClosePositions(ctx context.Context, cfgs []models.AccountConfig, symbol string, ticksDistance int) ([]accounts.Result[[]models.OrderLeg], error)
}

// Roster is the registry slice the dispatcher reads: the fallback account
// list and the symbol allow-list.
type Roster interface {
	Accounts() []models.AccountConfig
	SymbolAllowed(symbol string) bool
}

type Handler struct {
	exec   Executor
	roster Roster
	n      notify.Notifier
	state  *healthsvc.State
}

func NewHandler(exec Executor, roster Roster, n notify.Notifier, state *healthsvc.State) *Handler {
	return &Handler{exec: exec, roster: roster, n: n, state: state}
}

// Handle runs one raw message to completion. It never returns an error: a
// bad message is dropped with a warning and the next message is unaffected.
func (h *Handler) Handle(ctx context.Context, data []byte) {
	cmd, err := ParseCommand(data)
	if err != nil {
		logger.Warn("[CMD] dropping message: %v", err)
		return
	}
	h.state.TouchCommand(time.Now())

	if cmd.Kind == KindHeartbeat {
		logger.Debug("[CMD] heartbeat: status=%q message=%q", cmd.Heartbeat.Status, cmd.Heartbeat.Message)
		return
	}

	symbol := cmd.Symbol()
	if !h.roster.SymbolAllowed(symbol) {
		logger.Debug("[CMD] skipping %s for %s: symbol not allowed", cmd.Kind, symbol)
		return
	}

	cfgs := cmd.Accounts
	if len(cfgs) == 0 {
		cfgs = h.roster.Accounts()
	}
	if len(cfgs) == 0 {
		logger.Warn("[CMD] dropping %s for %s: no accounts on the message and none in the registry", cmd.Kind, symbol)
		return
	}
	for i, cfg := range cfgs {
		logger.Debug("[CMD] account %d/%d: id=%s key=%s qty=%s sim=%v",
			i+1, len(cfgs), cfg.ID, helper.MaskKey(cfg.APIKey), cfg.Quantity, cfg.Simulation)
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "command."+string(cmd.Kind))
	span.SetTag("command.type", string(cmd.Kind))
	span.SetTag("command.symbol", symbol)
	span.SetTag("command.accounts", len(cfgs))
	defer span.Finish()

	switch cmd.Kind {
	case KindTrade:
		h.handleTrade(ctx, cmd.Trade, cfgs)
	case KindOrder:
		h.handleOrder(ctx, cmd.Order, cfgs)
	case KindClose:
		h.handleClose(ctx, cmd.Close, cfgs)
	}
}

func (h *Handler) handleTrade(ctx context.Context, tc *TradeCommand, cfgs []models.AccountConfig) {
	logger.Info("[CMD] trade %s %s across %d accounts (tp=%v sl=%v ticks=%d)",
		tc.Side, tc.Symbol, len(cfgs), tc.TPPercent, tc.SLPercent, tc.TicksDistance)

	results, err := h.exec.OpenTrades(ctx, cfgs, trade.Request{
		Symbol:        tc.Symbol,
		Side:          tc.Side,
		Quantity:      tc.Quantity,
		TPPercent:     tc.TPPercent,
		SLPercent:     tc.SLPercent,
		TicksDistance: tc.TicksDistance,
	})
	if err != nil {
		logger.Error("[CMD] trade %s refused: %v", tc.Symbol, err)
		h.n.Sendf("⚠️ trade %s %s refused: %v", tc.Side, tc.Symbol, err)
		return
	}

	var ok, failed int
	var lines []string
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			lines = append(lines, fmt.Sprintf("⚠️ %s: %v", res.AccountID, res.Err))
			logger.Error("[CMD] trade failed for %s: %v", res.AccountID, res.Err)
		case res.Value != nil && res.Value.Status == models.TradeStatusCancelled:
			failed++
			lines = append(lines, fmt.Sprintf("⚠️ %s: entry gave up (%s)", res.AccountID, res.Value.Status))
			logger.Warn("[CMD] trade for %s gave up before filling", res.AccountID)
		default:
			ok++
			logger.Info("[CMD] trade ok for %s: id=%s status=%s", res.AccountID, res.Value.ID, res.Value.Status)
		}
	}
	h.summary(fmt.Sprintf("trade %s %s", strings.ToLower(string(tc.Side)), tc.Symbol), ok, failed, lines)
}

func (h *Handler) handleOrder(ctx context.Context, oc *OrderCommand, cfgs []models.AccountConfig) {
	logger.Info("[CMD] %s order %s %s across %d accounts", oc.Type, oc.Side, oc.Symbol, len(cfgs))

	var results []accounts.Result[models.OrderLeg]
	var err error
	if oc.Type == "bbo" {
		results, err = h.exec.PlaceBBOOrders(ctx, cfgs, chase.Request{
			Symbol:        oc.Symbol,
			Side:          oc.Side,
			Quantity:      oc.Quantity,
			ReduceOnly:    oc.ReduceOnly,
			Price:         oc.Price,
			TicksDistance: oc.TicksDistance,
		})
	} else {
		req := models.OrderRequest{
			Symbol:        oc.Symbol,
			Side:          oc.Side,
			Type:          models.OrderTypeMarket,
			Quantity:      oc.Quantity,
			ReduceOnly:    oc.ReduceOnly,
			ClientOrderID: oc.ClientOrderID,
		}
		if oc.Type == "limit" {
			req.Type = models.OrderTypeLimit
			req.Price = oc.Price
			req.TimeInForce = oc.TimeInForce
		}
		results, err = h.exec.PlaceOrders(ctx, cfgs, []models.OrderRequest{req})
	}
	if err != nil {
		logger.Error("[CMD] order %s refused: %v", oc.Symbol, err)
		h.n.Sendf("⚠️ %s order %s refused: %v", oc.Type, oc.Symbol, err)
		return
	}

	var ok, failed int
	var lines []string
	for _, res := range results {
		if res.Err != nil {
			failed++
			lines = append(lines, fmt.Sprintf("⚠️ %s: %v", res.AccountID, res.Err))
			logger.Error("[CMD] order failed for %s: %v", res.AccountID, res.Err)
			continue
		}
		ok++
		logger.Info("[CMD] order ok for %s: id=%d status=%s", res.AccountID, res.Value.OrderID, res.Value.Status)
	}
	h.summary(fmt.Sprintf("%s order %s %s", oc.Type, strings.ToLower(string(oc.Side)), oc.Symbol), ok, failed, lines)
}

func (h *Handler) handleClose(ctx context.Context, cc *CloseCommand, cfgs []models.AccountConfig) {
	logger.Info("[CMD] close %s across %d accounts", cc.Symbol, len(cfgs))

	results, err := h.exec.ClosePositions(ctx, cfgs, cc.Symbol, cc.TicksDistance)
	if err != nil {
		logger.Error("[CMD] close %s refused: %v", cc.Symbol, err)
		h.n.Sendf("⚠️ close %s refused: %v", cc.Symbol, err)
		return
	}

	var ok, failed, flattened int
	var lines []string
	for _, res := range results {
		if res.Err != nil {
			failed++
			lines = append(lines, fmt.Sprintf("⚠️ %s: %v", res.AccountID, res.Err))
			logger.Error("[CMD] close failed for %s: %v", res.AccountID, res.Err)
			continue
		}
		ok++
		flattened += len(res.Value)
	}
	h.summary(fmt.Sprintf("close %s (%d positions flattened)", cc.Symbol, flattened), ok, failed, lines)
}

// summary pushes one operator message per command: a one-line result plus a
// line per failed account.
func (h *Handler) summary(what string, ok, failed int, lines []string) {
	head := "✅"
	if failed > 0 {
		head = "⚠️"
	}
	msg := fmt.Sprintf("%s %s: %d ok, %d failed", head, what, ok, failed)
	if len(lines) > 0 {
		msg += "\n" + strings.Join(lines, "\n")
	}
	h.n.Send(msg)
	logger.Info("[CMD] %s: %d ok, %d failed", what, ok, failed)
}
