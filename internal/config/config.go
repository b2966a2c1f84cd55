package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	DriverMongoDB = "mongodb"
	DriverMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	Storage    StorageConfig    `mapstructure:"storage"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Currency   CurrencyConfig   `mapstructure:"currency"`
	Payments   PaymentsConfig   `mapstructure:"payments"`
	Tickets    TicketsConfig    `mapstructure:"tickets"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI             string `mapstructure:"uri"`
	Database        string `mapstructure:"database"`
	UseTransactions bool   `mapstructure:"useTransactions"`
}

// StorageConfig selects the repository implementation
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	ExpiresIn time.Duration `mapstructure:"expiresIn"`
	Issuer    string        `mapstructure:"issuer"`
}

// AdminConfig seeds the first administrator account when set
type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// CurrencyConfig holds the local currency and the initial exchange rate
type CurrencyConfig struct {
	LocalCode       string  `mapstructure:"localCode"`
	LocalSymbol     string  `mapstructure:"localSymbol"`
	Locale          string  `mapstructure:"locale"`
	RateUSDToLocal  float64 `mapstructure:"rateUSDToLocal"`
	RateRefreshCron string  `mapstructure:"rateRefreshCron"`
}

// PaymentsConfig maps accepted payment methods to the currency they settle in
type PaymentsConfig struct {
	Methods map[string]string `mapstructure:"methods"`
}

// TicketsConfig holds purchase limits and the pending-expiry policy
type TicketsConfig struct {
	MaxPerPurchase int           `mapstructure:"maxPerPurchase"`
	PendingExpiry  time.Duration `mapstructure:"pendingExpiry"`
	ExpiryCron     string        `mapstructure:"expiryCron"`
}

// CloudinaryConfig holds payment-proof storage credentials
type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloudName"`
	APIKey    string `mapstructure:"apiKey"`
	APISecret string `mapstructure:"apiSecret"`
	Folder    string `mapstructure:"folder"`
}

// Enabled reports whether proof uploads are configured
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// RateLimitConfig limits purchase attempts per caller
type RateLimitConfig struct {
	PurchasesPerMinute int `mapstructure:"purchasesPerMinute"`
	Burst              int `mapstructure:"burst"`
}

// LogConfig configures the root logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from defaults, an optional config.yaml and
// environment variables, in increasing precedence. Nested keys map to
// variables by upper-casing and replacing dots, e.g. MONGODB_URI.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// map defaults would merge into a configured map, so they are applied here
	if len(config.Payments.Methods) == 0 {
		config.Payments.Methods = DefaultPaymentMethods()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default values for configuration. Every key needs a
// default so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "raffles")
	v.SetDefault("mongodb.useTransactions", true)
	v.SetDefault("storage.driver", DriverMongoDB)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiresIn", 24*time.Hour)
	v.SetDefault("jwt.issuer", "raffle-api")

	v.SetDefault("admin.name", "Administrator")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	v.SetDefault("currency.localCode", "VES")
	v.SetDefault("currency.localSymbol", "Bs.")
	v.SetDefault("currency.locale", "es-VE")
	v.SetDefault("currency.rateUSDToLocal", 141.8843)
	v.SetDefault("currency.rateRefreshCron", "")

	v.SetDefault("tickets.maxPerPurchase", 100)
	v.SetDefault("tickets.pendingExpiry", time.Duration(0))
	v.SetDefault("tickets.expiryCron", "@every 5m")

	v.SetDefault("cloudinary.cloudName", "")
	v.SetDefault("cloudinary.apiKey", "")
	v.SetDefault("cloudinary.apiSecret", "")
	v.SetDefault("cloudinary.folder", "payment-proofs")

	v.SetDefault("ratelimit.purchasesPerMinute", 30)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// DefaultPaymentMethods returns the methods accepted when none are configured
func DefaultPaymentMethods() map[string]string {
	return map[string]string{
		"zelle":         "USD",
		"binance":       "USD",
		"pago_movil":    "VES",
		"transferencia": "VES",
	}
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.Currency.RateUSDToLocal <= 0 {
		return fmt.Errorf("config: currency.rateUSDToLocal must be positive, got %v", c.Currency.RateUSDToLocal)
	}
	local := strings.ToUpper(c.Currency.LocalCode)
	if local == "" || local == "USD" {
		return fmt.Errorf("config: currency.localCode must name a non-USD currency, got %q", c.Currency.LocalCode)
	}
	switch c.Storage.Driver {
	case DriverMongoDB, DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if len(c.Payments.Methods) == 0 {
		return errors.New("config: payments.methods must list at least one method")
	}
	for method, code := range c.Payments.Methods {
		code = strings.ToUpper(code)
		if code != "USD" && code != local {
			return fmt.Errorf("config: payment method %q settles in %q, expected USD or %s", method, code, local)
		}
	}
	if c.Tickets.MaxPerPurchase < 0 {
		return errors.New("config: tickets.maxPerPurchase cannot be negative")
	}
	if c.Tickets.PendingExpiry < 0 {
		return errors.New("config: tickets.pendingExpiry cannot be negative")
	}
	return nil
}
