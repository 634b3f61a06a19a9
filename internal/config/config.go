// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App       AppConfig                 `yaml:"app"`
	Exchanges map[string]ExchangeConfig `yaml:"exchanges"`
	Strategy  StrategyConfig            `yaml:"strategy"`
	System    SystemConfig              `yaml:"system"`
	Telemetry TelemetryConfig           `yaml:"telemetry"`
	Alerts    AlertConfig               `yaml:"alerts"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	BuyingExchange  string `yaml:"buying_exchange"`
	SellingExchange string `yaml:"selling_exchange"`
	JournalPath     string `yaml:"journal_path"`
}

// ExchangeConfig contains exchange-specific configuration
type ExchangeConfig struct {
	APIKey     Secret  `yaml:"api_key"`
	SecretKey  Secret  `yaml:"secret_key"`
	Instrument string  `yaml:"instrument"`
	BaseAsset  string  `yaml:"base_asset"`
	FeeRate    float64 `yaml:"fee_rate"`
}

// PointConfig is one gap threshold with its associated trade amount
type PointConfig struct {
	Gap    float64 `yaml:"gap"`
	Amount float64 `yaml:"amount"`
}

// StrategyConfig contains the arbitrage decision parameters
type StrategyConfig struct {
	Pair            string        `yaml:"pair"`
	MarketAsset     string        `yaml:"market_asset"`
	CashAsset       string        `yaml:"cash_asset"`
	EntryPoints     []PointConfig `yaml:"entry_points"`
	ExitPoints      []PointConfig `yaml:"exit_points"`
	MaxPositions    int           `yaml:"max_positions"`
	SlippageAllowed float64       `yaml:"slippage_allowed"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// AlertConfig contains notification channel settings. Channels with empty
// credentials are disabled.
type AlertConfig struct {
	SlackWebhookURL  Secret `yaml:"slack_webhook_url"`
	TelegramBotToken Secret `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateAppConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.validateExchanges(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.validateStrategyConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.validateSystemConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateAppConfig() error {
	if c.App.BuyingExchange == "" {
		return ValidationError{
			Field:   "app.buying_exchange",
			Message: "buying exchange is required",
		}
	}
	if c.App.SellingExchange == "" {
		return ValidationError{
			Field:   "app.selling_exchange",
			Message: "selling exchange is required",
		}
	}
	if c.App.BuyingExchange == c.App.SellingExchange {
		return ValidationError{
			Field:   "app.selling_exchange",
			Value:   c.App.SellingExchange,
			Message: "buying and selling exchange must be distinct",
		}
	}

	for _, name := range []string{c.App.BuyingExchange, c.App.SellingExchange} {
		if _, exists := c.Exchanges[name]; !exists {
			return ValidationError{
				Field:   "app",
				Value:   name,
				Message: "exchange configuration not found in exchanges section",
			}
		}
	}

	return nil
}

func (c *Config) validateExchanges() error {
	if len(c.Exchanges) != 2 {
		return ValidationError{
			Field:   "exchanges",
			Value:   len(c.Exchanges),
			Message: "exactly two exchanges must be configured",
		}
	}

	for name, exchange := range c.Exchanges {
		if exchange.Instrument == "" {
			return ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.instrument", name),
				Message: "instrument is required",
			}
		}
		if exchange.FeeRate < 0 || exchange.FeeRate >= 1 {
			return ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.fee_rate", name),
				Value:   exchange.FeeRate,
				Message: "fee rate must be in [0, 1)",
			}
		}
	}

	return nil
}

func (c *Config) validateStrategyConfig() error {
	if c.Strategy.Pair == "" {
		return ValidationError{
			Field:   "strategy.pair",
			Message: "trading pair is required",
		}
	}
	if c.Strategy.MarketAsset == "" {
		return ValidationError{
			Field:   "strategy.market_asset",
			Message: "market asset is required",
		}
	}
	if c.Strategy.CashAsset == "" {
		return ValidationError{
			Field:   "strategy.cash_asset",
			Message: "cash asset is required",
		}
	}
	// Empty point tables are allowed; the strategy simply never triggers
	for i, p := range c.Strategy.EntryPoints {
		if p.Amount <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("strategy.entry_points[%d].amount", i),
				Value:   p.Amount,
				Message: "amount must be positive",
			}
		}
	}
	for i, p := range c.Strategy.ExitPoints {
		if p.Amount <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("strategy.exit_points[%d].amount", i),
				Value:   p.Amount,
				Message: "amount must be positive",
			}
		}
	}

	if c.Strategy.SlippageAllowed < 0 || c.Strategy.SlippageAllowed >= 1 {
		return ValidationError{
			Field:   "strategy.slippage_allowed",
			Value:   c.Strategy.SlippageAllowed,
			Message: "slippage must be in [0, 1)",
		}
	}

	if c.Strategy.MaxPositions <= 0 {
		return ValidationError{
			Field:   "strategy.max_positions",
			Value:   c.Strategy.MaxPositions,
			Message: "max positions must be positive",
		}
	}

	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

// GetExchangeConfig returns the configuration for the named exchange
func (c *Config) GetExchangeConfig(name string) (*ExchangeConfig, error) {
	exchange, exists := c.Exchanges[name]
	if !exists {
		return nil, fmt.Errorf("exchange configuration not found for: %s", name)
	}
	return &exchange, nil
}

// String returns a string representation of the configuration. Credentials
// are Secret-typed and redact themselves during marshaling.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			BuyingExchange:  "poloniex",
			SellingExchange: "bitfinex",
			JournalPath:     "ticks.db",
		},
		Exchanges: map[string]ExchangeConfig{
			"poloniex": {
				APIKey:     "test_api_key",
				SecretKey:  "test_secret_key",
				Instrument: "BTC_USDT",
				BaseAsset:  "BTC",
				FeeRate:    0.001,
			},
			"bitfinex": {
				APIKey:     "test_api_key",
				SecretKey:  "test_secret_key",
				Instrument: "tBTCUSD",
				BaseAsset:  "BTC",
				FeeRate:    0.002,
			},
		},
		Strategy: StrategyConfig{
			Pair:        "BTC/USDT",
			MarketAsset: "BTC",
			CashAsset:   "USDT",
			EntryPoints: []PointConfig{
				{Gap: 0.03, Amount: 0.05},
				{Gap: 0.04, Amount: 0.1},
				{Gap: 0.05, Amount: 0.5},
			},
			ExitPoints: []PointConfig{
				{Gap: -0.02, Amount: 0.5},
			},
			MaxPositions:    1,
			SlippageAllowed: 0.02,
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: true,
		},
	}
}
