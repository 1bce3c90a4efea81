package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	natsURLENV        = "NATS_URL"
)

// Duration parses yaml scalars like "24h" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config ...
type Config struct {
	Service struct {
		Name      string `yaml:"name"`
		AdminPort int    `yaml:"admin_port"`
		Debug     bool   `yaml:"debug"`
	} `yaml:"service"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
		Queue   string `yaml:"queue"`
	} `yaml:"nats"`

	Venue struct {
		BaseURL string `yaml:"base_url"`
		WSURL   string `yaml:"ws_url"`
	} `yaml:"venue"`

	MarketData struct {
		Symbols        []string `yaml:"symbols"`
		ConnMaxAge     Duration `yaml:"conn_max_age"`
		ReconnectDelay Duration `yaml:"reconnect_delay"`
		PingInterval   Duration `yaml:"ping_interval"`
		ReadTimeout    Duration `yaml:"read_timeout"`
	} `yaml:"market_data"`

	// How far from the touch we quote and how many times the order is
	// re-priced before the chase gives up.
	BBO struct {
		TicksDistance   int      `yaml:"ticks_distance"`
		MaxRetries      int      `yaml:"max_retries"`
		FillTimeout     Duration `yaml:"fill_timeout"`
		PollInterval    Duration `yaml:"poll_interval"`
		MaxChasePercent float64  `yaml:"max_chase_percent"`
	} `yaml:"bbo"`

	// Exit distances as percent of the entry fill price.
	Trade struct {
		TPPercent float64 `yaml:"tp_percent"`
		SLPercent float64 `yaml:"sl_percent"`
	} `yaml:"trade"`

	Executor struct {
		MaxParallel int64 `yaml:"max_parallel"`
	} `yaml:"executor"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tracing"`

	DB           string `yaml:"db_dsn"`
	AccountsFile string `yaml:"accounts_file"`
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	config := Config{}
	config.Service.Name = getenvDefault("SERVICE_NAME", "trade-exec")
	config.Service.AdminPort = intFromEnv("ADMIN_PORT", 8085)
	config.NATS.Subject = getenvDefault("NATS_SUBJECT", "trade.commands")
	config.NATS.Queue = getenvDefault("NATS_QUEUE", "trade-exec")
	config.MarketData.ConnMaxAge = Duration(durationFromEnv("MD_CONN_MAX_AGE", "24h"))
	config.MarketData.ReconnectDelay = Duration(durationFromEnv("MD_RECONNECT_DELAY", "5s"))
	config.MarketData.PingInterval = Duration(durationFromEnv("MD_PING_INTERVAL", "60s"))
	config.MarketData.ReadTimeout = Duration(durationFromEnv("MD_READ_TIMEOUT", "75s"))
	config.BBO.TicksDistance = intFromEnv("BBO_TICKS_DISTANCE", 1)
	config.BBO.MaxRetries = intFromEnv("BBO_MAX_RETRIES", 3)
	config.BBO.FillTimeout = Duration(durationFromEnv("BBO_FILL_TIMEOUT", "5s"))
	config.BBO.PollInterval = Duration(durationFromEnv("BBO_POLL_INTERVAL", "500ms"))
	config.BBO.MaxChasePercent = floatFromEnv("BBO_MAX_CHASE_PERCENT", 0.5)
	config.Trade.TPPercent = floatFromEnv("TRADE_TP_PERCENT", 1.0)
	config.Trade.SLPercent = floatFromEnv("TRADE_SL_PERCENT", 0.5)
	config.Executor.MaxParallel = int64(intFromEnv("EXECUTOR_MAX_PARALLEL", 16))
	config.AccountsFile = getenvDefault("ACCOUNTS_FILE", "configs/accounts.yaml")

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", configFileName, err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	natsURL := os.Getenv(natsURLENV)
	if natsURL != "" {
		config.NATS.URL = natsURL
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
