// Package venue abstracts the derivatives exchange the engine trades on.
// The REST adapter rides the binance-futures-compatible SDK; transport,
// signing and backoff live there, not here.
package venue

import (
	"context"

	"github.com/pkg/errors"

	"trade_exec/internal/models"
)

// ErrOrderNotFound covers both venue answers that mean "no such order right
// now": cancelling an order that is gone (possibly just filled) and reading
// an order the venue has not surfaced yet (a just-placed order may briefly
// read as not found).
var ErrOrderNotFound = errors.New("order not found")

// Client is every venue operation the engine consumes. Cancel operations are
// idempotent-on-retry; GetOrder is eventually consistent.
type Client interface {
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderLeg, error)
	GetOrder(ctx context.Context, symbol string, orderID int64) (models.OrderLeg, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	CancelAllOpenOrders(ctx context.Context, symbol string) error
	SymbolSpec(ctx context.Context, symbol string) (models.TickSpec, error)
	BookTicker(ctx context.Context, symbol string) (models.QuoteSnapshot, error)
	AccountInfo(ctx context.Context) (models.AccountInfo, error)
	Positions(ctx context.Context, symbol string) ([]models.Position, error)
	Close() error
}

// Config selects the venue endpoints. BaseURL empty means the SDK default.
type Config struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
}
