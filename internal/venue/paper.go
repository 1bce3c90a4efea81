package venue

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"trade_exec/internal/models"
	"trade_exec/pkg/logger"
)

// QuoteFunc lets the paper venue price market fills off the live cache
// without importing it.
type QuoteFunc func(symbol string) (models.QuoteSnapshot, bool)

// Paper is the dry-run venue used for accounts flagged simulation: orders are
// acknowledged and tracked locally, nothing reaches the wire. Maker limits
// fill instantly at their requested price; trigger legs rest forever.
type Paper struct {
	accountID string
	quotes    QuoteFunc

	mu        sync.Mutex
	nextID    int64
	orders    map[int64]models.OrderLeg
	positions map[string]decimal.Decimal
	specs     map[string]models.TickSpec
}

func NewPaper(accountID string, quotes QuoteFunc) *Paper {
	return &Paper{
		accountID: accountID,
		quotes:    quotes,
		orders:    make(map[int64]models.OrderLeg),
		positions: make(map[string]decimal.Decimal),
		specs:     make(map[string]models.TickSpec),
	}
}

// SetSpec overrides the default grid for a symbol (tests, exotic ticks).
func (p *Paper) SetSpec(spec models.TickSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.specs[spec.Symbol] = spec
}

func (p *Paper) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderLeg, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	leg := models.OrderLeg{
		OrderID:        p.nextID,
		ClientOrderID:  req.ClientOrderID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Type:           req.Type,
		RequestedPrice: req.Price,
		Size:           req.Quantity,
		Status:         models.OrderStatusNew,
		PlacedAt:       time.Now().UTC(),
	}

	switch req.Type {
	case models.OrderTypeMarket:
		px := req.Price
		if q, ok := p.quotes(req.Symbol); ok && q.Valid() {
			if req.Side == models.SideBuy {
				px = q.Ask
			} else {
				px = q.Bid
			}
		}
		if !px.IsPositive() {
			return models.OrderLeg{}, errors.Errorf("paper venue: no quote to fill market %s", req.Symbol)
		}
		p.fillLocked(&leg, px)
	case models.OrderTypeLimit:
		p.fillLocked(&leg, req.Price)
	case models.OrderTypeStopMarket:
		// trigger leg: rests until cancelled, never fires locally
	}

	p.orders[leg.OrderID] = leg
	logger.Info("paper venue [%s]: %s %s %s qty=%s px=%s -> %s",
		p.accountID, req.Side, req.Type, req.Symbol, req.Quantity, req.Price, leg.Status)
	return leg, nil
}

func (p *Paper) fillLocked(leg *models.OrderLeg, px decimal.Decimal) {
	leg.Status = models.OrderStatusFilled
	leg.AvgFillPrice = px
	leg.ExecutedQty = leg.Size
	leg.FilledAt = time.Now().UTC()

	delta := leg.Size
	if leg.Side == models.SideSell {
		delta = delta.Neg()
	}
	p.positions[leg.Symbol] = p.positions[leg.Symbol].Add(delta)
}

func (p *Paper) GetOrder(ctx context.Context, symbol string, orderID int64) (models.OrderLeg, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	leg, ok := p.orders[orderID]
	if !ok || leg.Symbol != symbol {
		return models.OrderLeg{}, ErrOrderNotFound
	}
	return leg, nil
}

func (p *Paper) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	leg, ok := p.orders[orderID]
	if !ok || leg.Symbol != symbol || !leg.Status.Open() {
		// same answer the real venue gives for an already-filled order
		return ErrOrderNotFound
	}
	leg.Status = models.OrderStatusCanceled
	p.orders[orderID] = leg
	return nil
}

func (p *Paper) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, leg := range p.orders {
		if leg.Symbol == symbol && leg.Status.Open() {
			leg.Status = models.OrderStatusCanceled
			p.orders[id] = leg
		}
	}
	return nil
}

func (p *Paper) SymbolSpec(ctx context.Context, symbol string) (models.TickSpec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if spec, ok := p.specs[symbol]; ok {
		return spec, nil
	}
	return models.TickSpec{
		Symbol:         symbol,
		TickSize:       decimal.New(1, -2),
		StepSize:       decimal.New(1, -3),
		PricePrecision: 2,
		QtyPrecision:   3,
	}, nil
}

func (p *Paper) BookTicker(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	if q, ok := p.quotes(symbol); ok && q.Valid() {
		return q, nil
	}
	return models.QuoteSnapshot{}, errors.Errorf("paper venue: no quote for %s", symbol)
}

func (p *Paper) AccountInfo(ctx context.Context) (models.AccountInfo, error) {
	bal := decimal.NewFromInt(10_000)
	return models.AccountInfo{
		TotalWalletBalance: bal,
		AvailableBalance:   bal,
		Assets: []models.AssetBalance{
			{Asset: "USDT", WalletBalance: bal, AvailableBalance: bal},
		},
	}, nil
}

func (p *Paper) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []models.Position
	for sym, amt := range p.positions {
		if amt.IsZero() || (symbol != "" && sym != symbol) {
			continue
		}
		pos := models.Position{Symbol: sym, Amount: amt}
		if q, ok := p.quotes(sym); ok {
			pos.MarkPrice = q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
		}
		out = append(out, pos)
	}
	return out, nil
}

func (p *Paper) Close() error { return nil }
