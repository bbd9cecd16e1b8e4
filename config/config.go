package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TradingConfig  TradingConfig  `json:"trading"`
	SMCConfig      SMCConfig      `json:"smc"`
	OrdersConfig   OrdersConfig   `json:"orders"`
	ScannerConfig  ScannerConfig  `json:"scanner"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	ServerConfig   ServerConfig   `json:"server"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
}

// TradingConfig holds the symbol universe and cycle cadence
type TradingConfig struct {
	Symbols       []string `json:"symbols"`        // Standard symbol names (US30, XAUUSD, ...)
	CycleInterval int      `json:"cycle_interval"` // Seconds between analysis cycles
	CandleLimit   int      `json:"candle_limit"`   // Candles per timeframe per cycle
	Volume        float64  `json:"volume"`         // Lot size for pending orders
	DryRun        bool     `json:"dry_run"`        // Log orders instead of placing them
}

// SMCConfig holds every detector and synthesizer threshold.
// One parameterized engine instead of forked strategy variants.
type SMCConfig struct {
	SwingLookback        int     `json:"swing_lookback"`        // Candles each side of a swing point
	MinGapSize           float64 `json:"min_gap_size"`          // Minimum imbalance gap in price units (0 = keep all)
	SweepThreshold       float64 `json:"sweep_threshold"`       // Price offset beyond a level for a sweep
	MinRiskReward        float64 `json:"min_risk_reward"`       // Validator minimum reward:risk
	MinConfidence        float64 `json:"min_confidence"`        // Validator minimum confidence
	ConfluenceConfidence float64 `json:"confluence_confidence"` // Confidence assigned to H4xH1 confluence
	FallbackConfidence   float64 `json:"fallback_confidence"`   // Confidence assigned to H1 fallback signals
	FallbackRiskReward   float64 `json:"fallback_risk_reward"`  // Target RR for fallback signals
	StopBufferPercent    float64 `json:"stop_buffer_percent"`   // Fractional stop buffer for fallback signals
}

// OrdersConfig holds pending-order lifecycle settings
type OrdersConfig struct {
	MaxPendingPerSymbol int `json:"max_pending_per_symbol"` // Placement refused beyond this
	ExpiryHours         int `json:"expiry_hours"`           // Pending orders cancelled after this
}

// ScannerConfig holds volatility scanner settings
type ScannerConfig struct {
	Enabled       bool    `json:"enabled"`
	ATRPeriod     int     `json:"atr_period"`     // Periods for ATR volatility score
	MinVolatility float64 `json:"min_volatility"` // Minimum ATR/price to keep a symbol
	RSIPeriod     int     `json:"rsi_period"`
	RSIOversold   float64 `json:"rsi_oversold"`
	RSIOverbought float64 `json:"rsi_overbought"`
}

type LoggingConfig struct {
	Level   string `json:"level"`   // debug, info, warn, error
	Console bool   `json:"console"` // Human-readable console writer instead of JSON
}

// ServerConfig holds HTTP API server configuration
type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for order-tracker persistence
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Default returns the configuration the engine ships with.
func Default() *Config {
	return &Config{
		TradingConfig: TradingConfig{
			Symbols:       []string{"US30", "XAUUSD", "NAS100"},
			CycleInterval: 30,
			CandleLimit:   100,
			Volume:        0.01,
			DryRun:        true,
		},
		SMCConfig: SMCConfig{
			SwingLookback:        5,
			MinGapSize:           0,
			SweepThreshold:       0.001,
			MinRiskReward:        2.0,
			MinConfidence:        0.5,
			ConfluenceConfidence: 0.8,
			FallbackConfidence:   0.6,
			FallbackRiskReward:   2.5,
			StopBufferPercent:    0.001,
		},
		OrdersConfig: OrdersConfig{
			MaxPendingPerSymbol: 3,
			ExpiryHours:         4,
		},
		ScannerConfig: ScannerConfig{
			Enabled:       true,
			ATRPeriod:     20,
			MinVolatility: 0.001,
			RSIPeriod:     14,
			RSIOversold:   30,
			RSIOverbought: 70,
		},
		LoggingConfig: LoggingConfig{
			Level:   "info",
			Console: false,
		},
		ServerConfig: ServerConfig{
			Enabled:         true,
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "smc_bot",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
		},
	}
}

// Load reads config.json (when present) over the defaults, then applies
// environment overrides on top.
func Load() (*Config, error) {
	cfg := Default()

	if file, err := os.ReadFile("config.json"); err == nil {
		if err := json.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.TradingConfig.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol required")
	}
	if c.TradingConfig.CycleInterval <= 0 {
		return fmt.Errorf("config: cycle_interval must be positive")
	}
	if c.SMCConfig.SwingLookback < 1 {
		return fmt.Errorf("config: swing_lookback must be at least 1")
	}
	if c.SMCConfig.MinRiskReward <= 0 {
		return fmt.Errorf("config: min_risk_reward must be positive")
	}
	if c.OrdersConfig.MaxPendingPerSymbol < 1 {
		return fmt.Errorf("config: max_pending_per_symbol must be at least 1")
	}
	if c.OrdersConfig.ExpiryHours <= 0 {
		return fmt.Errorf("config: expiry_hours must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if symbols := os.Getenv("TRADING_SYMBOLS"); symbols != "" {
		cfg.TradingConfig.Symbols = strings.Split(symbols, ",")
	}
	cfg.TradingConfig.CycleInterval = getEnvIntOrDefault("TRADING_CYCLE_INTERVAL", cfg.TradingConfig.CycleInterval)
	cfg.TradingConfig.Volume = getEnvFloatOrDefault("TRADING_VOLUME", cfg.TradingConfig.Volume)
	if v := os.Getenv("TRADING_DRY_RUN"); v != "" {
		cfg.TradingConfig.DryRun = v == "true"
	}

	cfg.SMCConfig.MinRiskReward = getEnvFloatOrDefault("SMC_MIN_RISK_REWARD", cfg.SMCConfig.MinRiskReward)
	cfg.SMCConfig.SweepThreshold = getEnvFloatOrDefault("SMC_SWEEP_THRESHOLD", cfg.SMCConfig.SweepThreshold)
	cfg.OrdersConfig.MaxPendingPerSymbol = getEnvIntOrDefault("ORDERS_MAX_PENDING", cfg.OrdersConfig.MaxPendingPerSymbol)
	cfg.OrdersConfig.ExpiryHours = getEnvIntOrDefault("ORDERS_EXPIRY_HOURS", cfg.OrdersConfig.ExpiryHours)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	if v := os.Getenv("LOG_CONSOLE"); v != "" {
		cfg.LoggingConfig.Console = v == "true"
	}

	if v := os.Getenv("SERVER_ENABLED"); v != "" {
		cfg.ServerConfig.Enabled = v == "true"
	}
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		cfg.DatabaseConfig.Enabled = v == "true"
	}
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DATABASE_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DATABASE_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DATABASE_SSL_MODE", cfg.DatabaseConfig.SSLMode)

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
