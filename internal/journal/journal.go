// Package journal persists trade lifecycle snapshots to postgres. Writes are
// best-effort: a journal failure is logged, never surfaced to the trading
// path.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"trade_exec/internal/models"
	"trade_exec/pkg/db"
	"trade_exec/pkg/logger"
)

const createTrades = `
CREATE TABLE IF NOT EXISTS trades (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    symbol     TEXT NOT NULL,
    side       TEXT NOT NULL,
    quantity   NUMERIC NOT NULL,
    status     TEXT NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    legs       JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_account_updated_idx ON trades (account_id, updated_at DESC);
`

const upsertTrade = `
INSERT INTO trades (id, account_id, symbol, side, quantity, status, reason, legs, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    reason = EXCLUDED.reason,
    legs = EXCLUDED.legs,
    updated_at = EXCLUDED.updated_at
`

const selectRecent = `
SELECT id, account_id, symbol, side, quantity::text, status, reason, created_at, updated_at
FROM trades
ORDER BY updated_at DESC
LIMIT $1
`

// Entry is one journaled trade row.
type Entry struct {
	ID        string
	AccountID string
	Symbol    string
	Side      models.Side
	Quantity  decimal.Decimal
	Status    models.TradeStatus
	Reason    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// legView is the JSONB shape of one order leg. OrderLeg itself carries an
// error value, which does not survive marshalling.
type legView struct {
	OrderID       int64  `json:"order_id,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	Price         string `json:"price,omitempty"`
	ExecutedQty   string `json:"executed_qty,omitempty"`
	AvgFillPrice  string `json:"avg_fill_price,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

func viewOf(leg models.OrderLeg) legView {
	v := legView{
		OrderID:       leg.OrderID,
		ClientOrderID: leg.ClientOrderID,
		Status:        string(leg.Status),
	}
	if leg.RequestedPrice.IsPositive() {
		v.Price = leg.RequestedPrice.String()
	}
	if leg.ExecutedQty.IsPositive() {
		v.ExecutedQty = leg.ExecutedQty.String()
	}
	if leg.AvgFillPrice.IsPositive() {
		v.AvgFillPrice = leg.AvgFillPrice.String()
	}
	if leg.Err != nil {
		v.Error = leg.Err.Error()
	}
	return v
}

// Journal writes through the tx manager; with no manager configured every
// operation is a no-op so the engine runs fine without a database.
type Journal struct {
	db *db.PgTxManager
}

func NewJournal(mgr *db.PgTxManager) *Journal {
	return &Journal{db: mgr}
}

// Enabled reports whether a database is behind the journal.
func (j *Journal) Enabled() bool { return j != nil && j.db != nil }

// EnsureSchema creates the trades table when it does not exist yet.
func (j *Journal) EnsureSchema(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.EnsureSchema: %w", err)
		}
	}()
	if !j.Enabled() {
		return nil
	}
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, createTrades)
		return err
	})
}

// Record upserts the trade's current snapshot. Failures are logged and
// swallowed: the journal must never take a trade down with it.
func (j *Journal) Record(ctx context.Context, accountID string, tr *models.Trade) {
	if !j.Enabled() || tr == nil {
		return
	}
	if err := j.upsert(ctx, accountID, tr); err != nil {
		logger.Error("journal: record trade %s (%s): %v", tr.ID, tr.Status, err)
	}
}

func (j *Journal) upsert(ctx context.Context, accountID string, tr *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.upsert: %w", err)
		}
	}()

	legs, err := sonic.Marshal(map[string]legView{
		"entry":       viewOf(tr.Entry),
		"take_profit": viewOf(tr.TakeProfit),
		"stop_loss":   viewOf(tr.StopLoss),
	})
	if err != nil {
		return err
	}

	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, upsertTrade,
			tr.ID,
			accountID,
			tr.Symbol,
			string(tr.Side),
			tr.Quantity.String(),
			string(tr.Status),
			tr.Reason,
			legs,
			tr.CreatedAt,
			time.Now().UTC(),
		)
		return err
	})
}

// Recent returns the latest journaled trades, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) (entries []Entry, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Recent: %w", err)
		}
	}()
	if !j.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	err = j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, selectRecent, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e        Entry
				side     string
				quantity string
				status   string
			)
			if err := rows.Scan(&e.ID, &e.AccountID, &e.Symbol, &side, &quantity, &status, &e.Reason, &e.CreatedAt, &e.UpdatedAt); err != nil {
				return err
			}
			e.Side = models.Side(side)
			e.Status = models.TradeStatus(status)
			if e.Quantity, err = decimal.NewFromString(quantity); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
