// Package notify pushes engine events to the operator. Telegram when a token
// is configured, the log otherwise.
package notify

import (
	"fmt"

	"trade_exec/pkg/logger"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Stdout logs instead of messaging. Used when no telegram token is set.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(msg string) { logger.Info("%s", msg) }

func (s *Stdout) Sendf(format string, args ...any) { s.Send(fmt.Sprintf(format, args...)) }
