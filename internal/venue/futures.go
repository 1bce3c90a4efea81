package venue

import (
	"context"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"trade_exec/internal/models"
	"trade_exec/internal/pricing"
	"trade_exec/pkg/logger"
)

// Futures adapts the binance-futures-compatible REST API to Client. One
// instance per credential pair; the symbol-spec cache is filled lazily or by
// WarmSpecs at startup.
type Futures struct {
	api *futures.Client

	mu     sync.Mutex
	specs  map[string]models.TickSpec
	loaded bool
}

func NewFutures(cfg Config, apiKey, apiSecret string) *Futures {
	api := futures.NewClient(apiKey, apiSecret)
	if cfg.BaseURL != "" {
		api.BaseURL = cfg.BaseURL
	}
	return &Futures{
		api:   api,
		specs: make(map[string]models.TickSpec),
	}
}

func (f *Futures) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderLeg, error) {
	spec, err := f.SymbolSpec(ctx, req.Symbol)
	if err != nil {
		return models.OrderLeg{}, err
	}

	svc := f.api.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderType(req.Type))

	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	if req.ClosePosition {
		// close-on-trigger: the venue flattens whatever is open, quantity
		// and reduceOnly must not be sent alongside
		svc = svc.ClosePosition(true)
	} else {
		svc = svc.Quantity(fmtQty(req.Quantity, spec))
		if req.ReduceOnly {
			svc = svc.ReduceOnly(true)
		}
	}

	switch req.Type {
	case models.OrderTypeLimit:
		tif := req.TimeInForce
		if tif == "" {
			tif = models.TimeInForceGTC
		}
		svc = svc.Price(pricing.Format(req.Price, spec.TickSize)).
			TimeInForce(futures.TimeInForceType(tif))
	case models.OrderTypeStopMarket:
		svc = svc.StopPrice(pricing.Format(req.StopPrice, spec.TickSize))
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return models.OrderLeg{}, errors.Wrapf(mapAPIError(err), "place %s %s %s", req.Side, req.Type, req.Symbol)
	}

	return models.OrderLeg{
		OrderID:        res.OrderID,
		ClientOrderID:  res.ClientOrderID,
		Symbol:         res.Symbol,
		Side:           req.Side,
		Type:           req.Type,
		RequestedPrice: req.Price,
		Size:           parseDec(res.OrigQuantity),
		ExecutedQty:    parseDec(res.ExecutedQuantity),
		AvgFillPrice:   parseDec(res.AvgPrice),
		Status:         models.OrderStatus(res.Status),
		PlacedAt:       time.Now().UTC(),
	}, nil
}

func (f *Futures) GetOrder(ctx context.Context, symbol string, orderID int64) (models.OrderLeg, error) {
	o, err := f.api.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return models.OrderLeg{}, errors.Wrapf(mapAPIError(err), "get order %s %d", symbol, orderID)
	}

	leg := models.OrderLeg{
		OrderID:        o.OrderID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		Side:           models.Side(o.Side),
		Type:           models.OrderType(o.Type),
		RequestedPrice: parseDec(o.Price),
		Size:           parseDec(o.OrigQuantity),
		ExecutedQty:    parseDec(o.ExecutedQuantity),
		AvgFillPrice:   parseDec(o.AvgPrice),
		Status:         models.OrderStatus(o.Status),
		PlacedAt:       time.UnixMilli(o.Time).UTC(),
	}
	if leg.Filled() {
		leg.FilledAt = time.UnixMilli(o.UpdateTime).UTC()
	}
	return leg, nil
}

func (f *Futures) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := f.api.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return errors.Wrapf(mapAPIError(err), "cancel order %s %d", symbol, orderID)
	}
	return nil
}

func (f *Futures) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	if err := f.api.NewCancelAllOpenOrdersService().Symbol(symbol).Do(ctx); err != nil {
		return errors.Wrapf(mapAPIError(err), "cancel all open orders %s", symbol)
	}
	return nil
}

// SymbolSpec returns the tick/step grid for symbol, loading exchange info on
// first use. Specs are immutable once obtained.
func (f *Futures) SymbolSpec(ctx context.Context, symbol string) (models.TickSpec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if spec, ok := f.specs[symbol]; ok {
		return spec, nil
	}
	if err := f.loadSpecsLocked(ctx); err != nil {
		return models.TickSpec{}, err
	}
	spec, ok := f.specs[symbol]
	if !ok {
		return models.TickSpec{}, errors.Errorf("symbol %s not in exchange info", symbol)
	}
	return spec, nil
}

// WarmSpecs bulk-loads exchange info and reports symbols the venue does not
// list.
func (f *Futures) WarmSpecs(ctx context.Context, symbols ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadSpecsLocked(ctx); err != nil {
		return err
	}
	for _, s := range symbols {
		if _, ok := f.specs[s]; !ok {
			logger.Warn("symbol %s not listed on venue", s)
		}
	}
	return nil
}

func (f *Futures) loadSpecsLocked(ctx context.Context) error {
	if f.loaded {
		return nil
	}
	info, err := f.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return errors.Wrap(err, "exchange info")
	}

	for _, s := range info.Symbols {
		spec := models.TickSpec{
			Symbol:         s.Symbol,
			PricePrecision: int32(s.PricePrecision),
			QtyPrecision:   int32(s.QuantityPrecision),
		}
		for _, flt := range s.Filters {
			switch flt["filterType"] {
			case "PRICE_FILTER":
				if v, ok := flt["tickSize"].(string); ok {
					spec.TickSize = parseDec(v)
				}
			case "LOT_SIZE":
				if v, ok := flt["stepSize"].(string); ok {
					spec.StepSize = parseDec(v)
				}
			}
		}
		if spec.TickSize.IsPositive() {
			f.specs[s.Symbol] = spec
		}
	}
	f.loaded = true
	logger.Info("loaded %d symbol specs from exchange info", len(f.specs))
	return nil
}

// BookTicker is the REST fallback for the streaming quote cache.
func (f *Futures) BookTicker(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	tickers, err := f.api.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return models.QuoteSnapshot{}, errors.Wrapf(mapAPIError(err), "book ticker %s", symbol)
	}
	if len(tickers) == 0 {
		return models.QuoteSnapshot{}, errors.Errorf("book ticker %s: empty response", symbol)
	}
	t := tickers[0]
	return models.QuoteSnapshot{
		Symbol:     t.Symbol,
		Bid:        parseDec(t.BidPrice),
		BidQty:     parseDec(t.BidQuantity),
		Ask:        parseDec(t.AskPrice),
		AskQty:     parseDec(t.AskQuantity),
		ObservedAt: time.Now().UTC(),
	}, nil
}

func (f *Futures) AccountInfo(ctx context.Context) (models.AccountInfo, error) {
	acc, err := f.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return models.AccountInfo{}, errors.Wrap(mapAPIError(err), "account info")
	}

	info := models.AccountInfo{
		TotalWalletBalance: parseDec(acc.TotalWalletBalance),
		AvailableBalance:   parseDec(acc.AvailableBalance),
	}
	for _, a := range acc.Assets {
		bal := parseDec(a.WalletBalance)
		if bal.IsZero() {
			continue
		}
		info.Assets = append(info.Assets, models.AssetBalance{
			Asset:            a.Asset,
			WalletBalance:    bal,
			AvailableBalance: parseDec(a.AvailableBalance),
		})
	}
	return info, nil
}

// Positions lists open positions; symbol empty lists all. Flat entries are
// dropped.
func (f *Futures) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	svc := f.api.NewGetPositionRiskService()
	if symbol != "" {
		svc = svc.Symbol(symbol)
	}
	risks, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(mapAPIError(err), "positions %s", symbol)
	}

	out := make([]models.Position, 0, len(risks))
	for _, r := range risks {
		amt := parseDec(r.PositionAmt)
		if amt.IsZero() {
			continue
		}
		lev, _ := decimal.NewFromString(r.Leverage)
		out = append(out, models.Position{
			Symbol:           r.Symbol,
			Amount:           amt,
			EntryPrice:       parseDec(r.EntryPrice),
			MarkPrice:        parseDec(r.MarkPrice),
			UnrealizedProfit: parseDec(r.UnRealizedProfit),
			Leverage:         int(lev.IntPart()),
		})
	}
	return out, nil
}

func (f *Futures) Close() error { return nil }

// mapAPIError folds the venue's "that order is gone" answers into
// ErrOrderNotFound: -2011 unknown order (cancel), -2013 order does not exist
// (get).
func mapAPIError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -2011, -2013:
			return ErrOrderNotFound
		}
	}
	return err
}

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Decimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}

// fmtQty truncates onto the lot grid and renders with the venue's quantity
// precision. Truncation, never round-up: a rounded-up quantity can exceed
// balance or position size.
func fmtQty(qty decimal.Decimal, spec models.TickSpec) string {
	q := qty
	if spec.StepSize.IsPositive() {
		q = pricing.SnapToTick(q, spec.StepSize)
	}
	return q.Truncate(spec.QtyPrecision).StringFixed(spec.QtyPrecision)
}
