package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Qpay     QpayConfig     `mapstructure:"qpay"`
	Store    StoreConfig    `mapstructure:"store"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ITNPath      string        `mapstructure:"itn_path" validate:"required,startswith=/"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	Driver            string        `mapstructure:"driver" validate:"oneof=postgres memory"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Name              string        `mapstructure:"name"`
	SSLMode           string        `mapstructure:"sslmode"`
	MaxOpenConns      int           `mapstructure:"max_open_conns"`
	MaxIdleConns      int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `mapstructure:"conn_max_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

type LoggerConfig struct {
	Level        string `mapstructure:"level" validate:"oneof=debug info warn error fatal"`
	Format       string `mapstructure:"format" validate:"oneof=json console"`
	Output       string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	EnableColors bool   `mapstructure:"enable_colors"`
	FilePath     string `mapstructure:"file_path" validate:"required_if=Output file"`
	MaxSize      int    `mapstructure:"max_size"`
	MaxBackups   int    `mapstructure:"max_backups"`
	MaxAge       int    `mapstructure:"max_age"`
	Compress     bool   `mapstructure:"compress"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic        string        `mapstructure:"topic" validate:"required_if=Enabled true"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from" validate:"omitempty,email"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// QpayConfig holds the merchant credentials and the ITN hardening switches.
// MerchantKey is the shared secret; it must never be logged.
type QpayConfig struct {
	MerchantID            string        `mapstructure:"merchant_id"`
	MerchantKey           string        `mapstructure:"merchant_key"`
	BankID                string        `mapstructure:"bank_id"`
	TestMode              bool          `mapstructure:"test_mode"`
	CurrencyAllowlist     []string      `mapstructure:"currency_allowlist" validate:"min=1"`
	CurrencyCode          string        `mapstructure:"currency_code" validate:"numeric,len=3"`
	StoreCurrency         string        `mapstructure:"store_currency" validate:"len=3"`
	CallbackURL           string        `mapstructure:"callback_url" validate:"omitempty,url"`
	DebugEmailRecipient   string        `mapstructure:"debug_email_recipient" validate:"omitempty,email"`
	SendDebugEmail        bool          `mapstructure:"send_debug_email"`
	LoggingEnabled        bool          `mapstructure:"logging_enabled"`
	VerbosePayloadLogging bool          `mapstructure:"verbose_payload_logging"`
	VerifyAmount          bool          `mapstructure:"verify_amount"`
	AmountEpsilon         float64       `mapstructure:"amount_epsilon" validate:"gte=0"`
	TrustForwardedFor     bool          `mapstructure:"trust_forwarded_for"`
	DNSTimeout            time.Duration `mapstructure:"dns_timeout" validate:"gt=0"`
	AllowlistTTL          time.Duration `mapstructure:"allowlist_ttl" validate:"gte=0"`
	AllowlistHosts        []string      `mapstructure:"allowlist_hosts"`
	NoticeTTL             time.Duration `mapstructure:"notice_ttl" validate:"gt=0"`
	NotifyTimeout         time.Duration `mapstructure:"notify_timeout" validate:"gt=0"`
}

// StoreConfig describes the storefront pages buyers are sent back to.
type StoreConfig struct {
	Name              string `mapstructure:"name"`
	BaseURL           string `mapstructure:"base_url" validate:"required,url"`
	CheckoutPath      string `mapstructure:"checkout_path" validate:"required"`
	OrderReceivedPath string `mapstructure:"order_received_path" validate:"required"`
}

type Loader interface {
	Load(ctx context.Context) (*Config, error)
}

type viperLoader struct {
	configPath string
	validator  Validator
}

func NewViperLoader(configPath string, validator Validator) Loader {
	if configPath == "" {
		configPath = "."
	}
	return &viperLoader{
		configPath: configPath,
		validator:  validator,
	}
}

func (l *viperLoader) Load(ctx context.Context) (*Config, error) {
	cfg := SetDefaultConfig()

	// .env is optional; values already present in the environment win.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(l.configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("QPAY_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.BindEnvVariables(v)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config failed validation: %w", err)
	}

	return cfg, nil
}

func (l *viperLoader) BindEnvVariables(v *viper.Viper) {
	// Server
	_ = v.BindEnv("server.host")
	_ = v.BindEnv("server.port")
	_ = v.BindEnv("server.itn_path")
	// Database
	_ = v.BindEnv("database.driver")
	_ = v.BindEnv("database.host")
	_ = v.BindEnv("database.port")
	_ = v.BindEnv("database.user")
	_ = v.BindEnv("database.password")
	_ = v.BindEnv("database.name")
	_ = v.BindEnv("database.sslmode")
	_ = v.BindEnv("database.max_open_conns")
	_ = v.BindEnv("database.max_idle_conns")
	_ = v.BindEnv("database.auto_migrate")
	// Logger
	_ = v.BindEnv("logger.level")
	_ = v.BindEnv("logger.format")
	_ = v.BindEnv("logger.output")
	_ = v.BindEnv("logger.enable_colors")
	_ = v.BindEnv("logger.file_path")
	_ = v.BindEnv("logger.max_size")
	_ = v.BindEnv("logger.max_backups")
	_ = v.BindEnv("logger.max_age")
	_ = v.BindEnv("logger.compress")
	// Kafka
	_ = v.BindEnv("kafka.enabled")
	_ = v.BindEnv("kafka.brokers")
	_ = v.BindEnv("kafka.topic")
	// SMTP
	_ = v.BindEnv("smtp.host")
	_ = v.BindEnv("smtp.port")
	_ = v.BindEnv("smtp.username")
	_ = v.BindEnv("smtp.password")
	_ = v.BindEnv("smtp.from")
	_ = v.BindEnv("smtp.timeout")
	// Qpay
	_ = v.BindEnv("qpay.merchant_id")
	_ = v.BindEnv("qpay.merchant_key")
	_ = v.BindEnv("qpay.bank_id")
	_ = v.BindEnv("qpay.test_mode")
	_ = v.BindEnv("qpay.callback_url")
	_ = v.BindEnv("qpay.debug_email_recipient")
	_ = v.BindEnv("qpay.send_debug_email")
	_ = v.BindEnv("qpay.logging_enabled")
	_ = v.BindEnv("qpay.verbose_payload_logging")
	_ = v.BindEnv("qpay.verify_amount")
	_ = v.BindEnv("qpay.trust_forwarded_for")
	// Store
	_ = v.BindEnv("store.name")
	_ = v.BindEnv("store.base_url")
}

func Load(configPath string, ctx context.Context) (*Config, error) {
	loader := NewViperLoader(configPath, NewValidator())
	return loader.Load(ctx)
}

func (c *DatabaseConfig) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MissingCredentials lists the merchant settings that still need to be filled in.
func (c *QpayConfig) MissingCredentials() []string {
	var missing []string
	if c.MerchantID == "" {
		missing = append(missing, "merchant_id")
	}
	if c.MerchantKey == "" {
		missing = append(missing, "merchant_key")
	}
	if c.BankID == "" {
		missing = append(missing, "bank_id")
	}
	return missing
}
