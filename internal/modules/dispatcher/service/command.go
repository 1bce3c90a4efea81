package service

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"trade_exec/internal/helper"
	"trade_exec/internal/models"
)

// Kind tags the command union.
type Kind string

const (
	KindTrade     Kind = "trade"
	KindOrder     Kind = "order"
	KindClose     Kind = "close_position"
	KindHeartbeat Kind = "heartbeat"
)

// TradeCommand opens the full entry/TP/SL lifecycle on every target account.
type TradeCommand struct {
	Symbol        string
	Side          models.Side
	TPPercent     float64 // 0 means the engine default
	SLPercent     float64
	TicksDistance int
	Quantity      decimal.Decimal // command-level default size, zero when absent
}

// OrderCommand places one leg: market, limit at a given price, or a
// maker-priced bbo order.
type OrderCommand struct {
	Symbol        string
	Side          models.Side
	Type          string // "limit" | "market" | "bbo"
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	TicksDistance int
	TimeInForce   models.TimeInForce
	ReduceOnly    bool
	ClientOrderID string
}

// CloseCommand cancels everything resting on a symbol and flattens the
// position that remains.
type CloseCommand struct {
	Symbol        string
	TicksDistance int
}

// Heartbeat carries no work; senders use it to prove the link is alive.
type Heartbeat struct {
	Status  string
	Message string
}

// Command is one parsed inbound message. Exactly one branch matching Kind is
// set. An empty Accounts list means "use the registry roster".
type Command struct {
	Kind     Kind
	Accounts []models.AccountConfig

	Trade     *TradeCommand
	Order     *OrderCommand
	Close     *CloseCommand
	Heartbeat *Heartbeat
}

// Symbol returns the instrument the command acts on, empty for heartbeats.
func (c Command) Symbol() string {
	switch c.Kind {
	case KindTrade:
		return c.Trade.Symbol
	case KindOrder:
		return c.Order.Symbol
	case KindClose:
		return c.Close.Symbol
	}
	return ""
}

// wire mirrors the JSON contract. Optional numbers are pointers so a missing
// field and an explicit zero stay distinguishable.
type wireCommand struct {
	Type          string        `json:"type"`
	Symbol        string        `json:"symbol"`
	Side          string        `json:"side"`
	TPPercent     *float64      `json:"tp_percent"`
	SLPercent     *float64      `json:"sl_percent"`
	TicksDistance *int          `json:"ticks_distance"`
	OrderType     string        `json:"order_type"`
	Price         *float64      `json:"price"`
	Quantity      *float64      `json:"quantity"`
	TimeInForce   string        `json:"time_in_force"`
	ReduceOnly    bool          `json:"reduce_only"`
	ClientOrderID string        `json:"client_order_id"`
	Accounts      []wireAccount `json:"accounts"`
	Status        string        `json:"status"`
	Message       string        `json:"message"`
}

type wireAccount struct {
	ID         string   `json:"id"`
	APIKey     string   `json:"api_key"`
	APISecret  string   `json:"api_secret"`
	Quantity   *float64 `json:"quantity"`
	Simulation bool     `json:"simulation"`
}

// ParseCommand turns one raw message into a Command, failing closed: unknown
// type, malformed JSON or a missing required field refuses the whole message,
// partial execution never happens.
func ParseCommand(data []byte) (Command, error) {
	var w wireCommand
	if err := sonic.Unmarshal(data, &w); err != nil {
		return Command{}, fmt.Errorf("malformed command: %w", err)
	}

	if w.Type == "" {
		return Command{}, fmt.Errorf("command has no type")
	}

	kind := Kind(strings.ToLower(w.Type))
	if kind == KindHeartbeat {
		return Command{
			Kind:      KindHeartbeat,
			Heartbeat: &Heartbeat{Status: w.Status, Message: w.Message},
		}, nil
	}

	symbol := helper.NormSymbol(w.Symbol)
	if symbol == "" {
		return Command{}, fmt.Errorf("%s command has no symbol", kind)
	}

	ticks := 0
	if w.TicksDistance != nil {
		if *w.TicksDistance < 0 {
			return Command{}, fmt.Errorf("ticks_distance %d is negative", *w.TicksDistance)
		}
		ticks = *w.TicksDistance
	}

	accounts, err := parseAccounts(w.Accounts)
	if err != nil {
		return Command{}, err
	}

	qty, err := positiveDecimal("quantity", w.Quantity)
	if err != nil {
		return Command{}, err
	}

	cmd := Command{Accounts: accounts}

	switch kind {
	case KindTrade:
		side, err := parseSide(w.Side)
		if err != nil {
			return Command{}, err
		}
		if w.SLPercent == nil {
			return Command{}, fmt.Errorf("trade command has no sl_percent")
		}
		if *w.SLPercent <= 0 {
			return Command{}, fmt.Errorf("sl_percent %v must be positive", *w.SLPercent)
		}
		var tp float64
		if w.TPPercent != nil {
			if *w.TPPercent <= 0 {
				return Command{}, fmt.Errorf("tp_percent %v must be positive", *w.TPPercent)
			}
			tp = *w.TPPercent
		}
		cmd.Kind = KindTrade
		cmd.Trade = &TradeCommand{
			Symbol:        symbol,
			Side:          side,
			TPPercent:     tp,
			SLPercent:     *w.SLPercent,
			TicksDistance: ticks,
			Quantity:      qty,
		}

	case KindOrder:
		side, err := parseSide(w.Side)
		if err != nil {
			return Command{}, err
		}
		orderType := strings.ToLower(w.OrderType)
		switch orderType {
		case "limit", "market", "bbo":
		case "":
			return Command{}, fmt.Errorf("order command has no order_type")
		default:
			return Command{}, fmt.Errorf("unsupported order_type %q", w.OrderType)
		}

		price, err := positiveDecimal("price", w.Price)
		if err != nil {
			return Command{}, err
		}
		switch orderType {
		case "limit":
			if price.IsZero() {
				return Command{}, fmt.Errorf("limit order has no price")
			}
		case "market":
			price = decimal.Decimal{} // market orders carry no price
		}

		tif, err := parseTimeInForce(w.TimeInForce)
		if err != nil {
			return Command{}, err
		}

		cmd.Kind = KindOrder
		cmd.Order = &OrderCommand{
			Symbol:        symbol,
			Side:          side,
			Type:          orderType,
			Price:         price,
			Quantity:      qty,
			TicksDistance: ticks,
			TimeInForce:   tif,
			ReduceOnly:    w.ReduceOnly,
			ClientOrderID: w.ClientOrderID,
		}

	case KindClose:
		cmd.Kind = KindClose
		cmd.Close = &CloseCommand{Symbol: symbol, TicksDistance: ticks}

	default:
		return Command{}, fmt.Errorf("unknown command type %q", w.Type)
	}

	return cmd, nil
}

func parseAccounts(entries []wireAccount) ([]models.AccountConfig, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]models.AccountConfig, 0, len(entries))
	for _, e := range entries {
		acc := models.AccountConfig{
			ID:         e.ID,
			APIKey:     e.APIKey,
			APISecret:  e.APISecret,
			Simulation: e.Simulation,
		}
		if e.Quantity != nil {
			if *e.Quantity <= 0 {
				return nil, fmt.Errorf("account %q: quantity %v must be positive", e.ID, *e.Quantity)
			}
			acc.Quantity = decimal.NewFromFloat(*e.Quantity)
		}
		if err := acc.Validate(); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

func parseSide(raw string) (models.Side, error) {
	switch strings.ToLower(raw) {
	case "buy":
		return models.SideBuy, nil
	case "sell":
		return models.SideSell, nil
	case "":
		return "", fmt.Errorf("command has no side")
	}
	return "", fmt.Errorf("unknown side %q", raw)
}

func parseTimeInForce(raw string) (models.TimeInForce, error) {
	switch strings.ToLower(raw) {
	case "", "gtc":
		return models.TimeInForceGTC, nil
	case "gtx":
		return models.TimeInForceGTX, nil
	}
	return "", fmt.Errorf("unsupported time_in_force %q", raw)
}

func positiveDecimal(field string, v *float64) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Decimal{}, nil
	}
	if *v <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%s %v must be positive", field, *v)
	}
	return decimal.NewFromFloat(*v), nil
}
