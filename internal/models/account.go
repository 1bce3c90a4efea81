package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountConfig carries everything needed to trade one venue account.
// Quantity is the account's default order size; zero means "use the
// command-level default".
type AccountConfig struct {
	ID         string
	APIKey     string
	APISecret  string
	Quantity   decimal.Decimal
	Simulation bool
}

func (a AccountConfig) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account id is empty")
	}
	if a.Simulation {
		return nil
	}
	if a.APIKey == "" || a.APISecret == "" {
		return fmt.Errorf("account %s: api credentials are empty", a.ID)
	}
	return nil
}

// Fingerprint identifies the credential pair without exposing it. Sessions
// are cached per (account id, fingerprint) so a credential rotation yields a
// fresh session instead of reusing a stale one.
func (a AccountConfig) Fingerprint() string {
	sum := sha256.Sum256([]byte(a.APIKey + ":" + a.APISecret))
	return hex.EncodeToString(sum[:])[:16]
}

// AssetBalance is one asset line of an account snapshot.
type AssetBalance struct {
	Asset            string
	WalletBalance    decimal.Decimal
	AvailableBalance decimal.Decimal
}

// AccountInfo is the fan-out account snapshot.
type AccountInfo struct {
	TotalWalletBalance decimal.Decimal
	AvailableBalance   decimal.Decimal
	Assets             []AssetBalance
}
