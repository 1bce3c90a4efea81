package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"trade_exec/internal/helper"
	"trade_exec/internal/models"
	"trade_exec/pkg/logger"
)

// Registry serves the account roster and the symbol allow-list from a
// separate file, so both can be edited without restarting the engine.
// A reload that fails to parse or validate keeps the previous state.
type Registry struct {
	mu       sync.RWMutex
	accounts []models.AccountConfig
	symbols  map[string]struct{}

	v *viper.Viper
}

type accountEntry struct {
	ID         string  `mapstructure:"id"`
	APIKey     string  `mapstructure:"api_key"`
	APISecret  string  `mapstructure:"api_secret"`
	Quantity   float64 `mapstructure:"quantity"`
	Simulation bool    `mapstructure:"simulation"`
}

type registryFile struct {
	Accounts []accountEntry `mapstructure:"accounts"`
	Symbols  []string       `mapstructure:"symbols"`
}

func NewRegistry(cfg *Config) (*Registry, error) {
	r := &Registry{symbols: map[string]struct{}{}}
	if cfg.AccountsFile == "" {
		logger.Info("no accounts file configured, registry starts empty")
		return r, nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.AccountsFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read accounts file %s: %w", cfg.AccountsFile, err)
	}
	if err := r.reload(v); err != nil {
		return nil, fmt.Errorf("load accounts file %s: %w", cfg.AccountsFile, err)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			logger.Error("accounts file reread failed, keeping previous roster: %v", err)
			return
		}
		if err := r.reload(v); err != nil {
			logger.Error("accounts file reload failed, keeping previous roster: %v", err)
		}
	})
	v.WatchConfig()
	r.v = v

	return r, nil
}

func (r *Registry) reload(v *viper.Viper) error {
	var f registryFile
	if err := v.Unmarshal(&f); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(f.Accounts))
	accounts := make([]models.AccountConfig, 0, len(f.Accounts))
	for _, e := range f.Accounts {
		acc := models.AccountConfig{
			ID:         e.ID,
			APIKey:     e.APIKey,
			APISecret:  e.APISecret,
			Quantity:   decimal.NewFromFloat(e.Quantity),
			Simulation: e.Simulation,
		}
		if err := acc.Validate(); err != nil {
			return fmt.Errorf("account %q: %w", e.ID, err)
		}
		if _, dup := seen[acc.ID]; dup {
			return fmt.Errorf("account %q listed twice", acc.ID)
		}
		seen[acc.ID] = struct{}{}
		accounts = append(accounts, acc)
	}

	symbols := make(map[string]struct{}, len(f.Symbols))
	for _, s := range f.Symbols {
		symbols[helper.NormSymbol(s)] = struct{}{}
	}

	r.mu.Lock()
	r.accounts = accounts
	r.symbols = symbols
	r.mu.Unlock()

	logger.Info("account registry loaded: %d accounts, %d symbols allowed", len(accounts), len(symbols))
	return nil
}

// Accounts returns a copy of the current roster.
func (r *Registry) Accounts() []models.AccountConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AccountConfig, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// Account looks a single entry up by id.
func (r *Registry) Account(id string) (models.AccountConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return models.AccountConfig{}, false
}

// SymbolAllowed reports whether the symbol may be traded. An empty
// allow-list means everything is allowed.
func (r *Registry) SymbolAllowed(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.symbols) == 0 {
		return true
	}
	_, ok := r.symbols[helper.NormSymbol(symbol)]
	return ok
}
