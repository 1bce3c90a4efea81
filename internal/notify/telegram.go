package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trade_exec/internal/accounts"
	"trade_exec/internal/journal"
	"trade_exec/internal/modules/config"
	"trade_exec/pkg/logger"
)

const commandTimeout = 30 * time.Second

// Telegram is a passive notifier plus a read-only ops surface: /positions,
// /accounts and /trades answered for one allow-listed chat.
type Telegram struct {
	bot     *tgbot.BotAPI
	chatID  int64
	pool    *accounts.Pool
	reg     *config.Registry
	journal *journal.Journal

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTelegram(token string, chatID int64, pool *accounts.Pool, reg *config.Registry, j *journal.Journal) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Telegram{
		bot:     b,
		chatID:  chatID,
		pool:    pool,
		reg:     reg,
		journal: j,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Error("telegram send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Start long-polls for commands. The polling goroutine lives until Stop; the
// context handed in by the lifecycle only covers startup.
func (t *Telegram) Start(context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-t.ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions()
				case "accounts":
					go t.handleAccounts()
				case "trades":
					go t.handleTrades()
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	t.cancel()
	t.bot.StopReceivingUpdates()
}

// /positions lists open positions across every configured account.
func (t *Telegram) handlePositions() {
	ctx, cancel := context.WithTimeout(t.ctx, commandTimeout)
	defer cancel()

	cfgs := t.reg.Accounts()
	if len(cfgs) == 0 {
		t.Send("no accounts configured")
		return
	}
	results, err := t.pool.Positions(ctx, cfgs, "")
	if err != nil {
		t.Sendf("positions failed: %v", err)
		return
	}

	var b strings.Builder
	b.WriteString("open positions:\n")
	open := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(&b, "%s: error: %v\n", res.AccountID, res.Err)
			continue
		}
		if len(res.Value) == 0 {
			fmt.Fprintf(&b, "%s: flat\n", res.AccountID)
			continue
		}
		for _, pos := range res.Value {
			dir := "LONG"
			if pos.Amount.IsNegative() {
				dir = "SHORT"
			}
			open++
			fmt.Fprintf(&b, "%s: %s %s %s @ %s mark %s uPnL %s\n",
				res.AccountID, pos.Symbol, dir, pos.Amount.Abs(),
				pos.EntryPrice, pos.MarkPrice, pos.UnrealizedProfit)
		}
	}
	if open == 0 {
		b.WriteString("(everyone flat)")
	}
	t.Send(b.String())
}

// /accounts lists wallet balances across every configured account.
func (t *Telegram) handleAccounts() {
	ctx, cancel := context.WithTimeout(t.ctx, commandTimeout)
	defer cancel()

	cfgs := t.reg.Accounts()
	if len(cfgs) == 0 {
		t.Send("no accounts configured")
		return
	}
	results, err := t.pool.AccountInfos(ctx, cfgs)
	if err != nil {
		t.Sendf("accounts failed: %v", err)
		return
	}

	var b strings.Builder
	b.WriteString("accounts:\n")
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(&b, "%s: error: %v\n", res.AccountID, res.Err)
			continue
		}
		fmt.Fprintf(&b, "%s: wallet %s, available %s\n",
			res.AccountID, res.Value.TotalWalletBalance, res.Value.AvailableBalance)
	}
	t.Send(b.String())
}

// /trades shows the latest journaled trades.
func (t *Telegram) handleTrades() {
	ctx, cancel := context.WithTimeout(t.ctx, commandTimeout)
	defer cancel()

	if !t.journal.Enabled() {
		t.Send("no database configured, trades are not journaled")
		return
	}
	entries, err := t.journal.Recent(ctx, 10)
	if err != nil {
		t.Sendf("trades failed: %v", err)
		return
	}
	if len(entries) == 0 {
		t.Send("no trades journaled yet")
		return
	}

	var b strings.Builder
	b.WriteString("recent trades:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s: %s %s %s -> %s",
			e.UpdatedAt.Format("01-02 15:04"), e.AccountID, e.Side, e.Quantity, e.Symbol, e.Status)
		if e.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.Reason)
		}
		b.WriteByte('\n')
	}
	t.Send(b.String())
}
