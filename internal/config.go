package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Fees          FeesConfig          `mapstructure:"fees"`
	Escrow        EscrowConfig        `mapstructure:"escrow"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// GatewayConfig selects the payment gateway environment. Sandbox and
// production differ only in base URL and credential.
type GatewayConfig struct {
	Environment    string        `mapstructure:"environment"`
	SandboxURL     string        `mapstructure:"sandbox_url"`
	ProductionURL  string        `mapstructure:"production_url"`
	APIKey         string        `mapstructure:"api_key"`
	WebhookToken   string        `mapstructure:"webhook_token"`
	ChargeDueDays  int           `mapstructure:"charge_due_days"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FeesConfig carries the fee schedule applied when pricing a charge.
// Defaults match the platform's standard plan; per-client plans override
// these at load time.
type FeesConfig struct {
	CommissionRate      float64 `mapstructure:"commission_rate"`
	MessagingFee        float64 `mapstructure:"messaging_fee"`
	PixFee              float64 `mapstructure:"pix_fee"`
	BoletoFee           float64 `mapstructure:"boleto_fee"`
	CardRate            float64 `mapstructure:"card_rate"`
	CardFlatFee         float64 `mapstructure:"card_flat_fee"`
	CardInstallmentRate float64 `mapstructure:"card_installment_rate"`
	MaxInstallments     int     `mapstructure:"max_installments"`
}

type EscrowConfig struct {
	MaxTransferAttempts  int           `mapstructure:"max_transfer_attempts"`
	RetryBaseDelay       time.Duration `mapstructure:"retry_base_delay"`
	WorkerPollInterval   time.Duration `mapstructure:"worker_poll_interval"`
	WorkerBatchSize      int           `mapstructure:"worker_batch_size"`
	ConfirmationCodeTTL  time.Duration `mapstructure:"confirmation_code_ttl"`
	FallbackIncomeValue  float64       `mapstructure:"fallback_income_value"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a Config from environment variables for
// containerized deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Gateway: GatewayConfig{
			Environment:    getEnv("GATEWAY_ENV", "sandbox"),
			SandboxURL:     getEnv("GATEWAY_SANDBOX_URL", "https://sandbox.asaas.com/api"),
			ProductionURL:  getEnv("GATEWAY_PRODUCTION_URL", "https://api.asaas.com"),
			APIKey:         getEnv("GATEWAY_API_KEY", ""),
			WebhookToken:   getEnv("GATEWAY_WEBHOOK_TOKEN", ""),
			ChargeDueDays:  getEnvAsInt("GATEWAY_CHARGE_DUE_DAYS", 3),
			RequestTimeout: 30 * time.Second,
		},
		Fees:   DefaultFees(),
		Escrow: DefaultEscrow(),
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

func DefaultFees() FeesConfig {
	return FeesConfig{
		CommissionRate:      0.05,
		MessagingFee:        0.99,
		PixFee:              0.99,
		BoletoFee:           1.99,
		CardRate:            0.0299,
		CardFlatFee:         0.49,
		CardInstallmentRate: 0.0049,
		MaxInstallments:     12,
	}
}

func DefaultEscrow() EscrowConfig {
	return EscrowConfig{
		MaxTransferAttempts: 3,
		RetryBaseDelay:      time.Hour,
		WorkerPollInterval:  time.Minute,
		WorkerBatchSize:     20,
		ConfirmationCodeTTL: 7 * 24 * time.Hour,
		FallbackIncomeValue: 5000,
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if err := c.Fees.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("fees config: %v", err))
	}

	if err := c.Escrow.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("escrow config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *GatewayConfig) Validate() error {
	switch c.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("environment must be sandbox or production, got %q", c.Environment)
	}
	if c.BaseURL() == "" {
		return errors.New("gateway base URL is required")
	}
	if c.APIKey == "" {
		return errors.New("gateway api_key is required")
	}
	return nil
}

// BaseURL returns the environment-selected gateway endpoint.
func (c *GatewayConfig) BaseURL() string {
	if c.Environment == "production" {
		return c.ProductionURL
	}
	return c.SandboxURL
}

func (c *FeesConfig) Validate() error {
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return errors.New("commission_rate must be in [0, 1)")
	}
	if c.MessagingFee < 0 || c.PixFee < 0 || c.BoletoFee < 0 || c.CardFlatFee < 0 {
		return errors.New("flat fees cannot be negative")
	}
	if c.CardRate < 0 || c.CardRate >= 1 {
		return errors.New("card_rate must be in [0, 1)")
	}
	if c.MaxInstallments < 1 {
		return errors.New("max_installments must be at least 1")
	}
	return nil
}

func (c *EscrowConfig) Validate() error {
	if c.MaxTransferAttempts < 1 {
		return errors.New("max_transfer_attempts must be at least 1")
	}
	if c.RetryBaseDelay <= 0 {
		return errors.New("retry_base_delay must be positive")
	}
	if c.ConfirmationCodeTTL <= 0 {
		return errors.New("confirmation_code_ttl must be positive")
	}
	return nil
}

func (c *EscrowConfig) FallbackIncome() decimal.Decimal {
	return decimal.NewFromFloat(c.FallbackIncomeValue)
}
