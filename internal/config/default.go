package config

import "time"

const (
	QpaySandboxHost    = "pguat.qcb.gov.qa"
	QpayProductionHost = "pg-api.qpay.gov.qa"
)

func SetDefaultConfig() *Config {
	return &Config{
		Env: "production",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ITNPath:      "/wc-api/qpay",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:            "postgres",
			Host:              "localhost",
			Port:              5432,
			User:              "postgres",
			Password:          "",
			Name:              "qpay-gateway",
			SSLMode:           "require",
			MaxOpenConns:      10,
			MaxIdleConns:      5,
			ConnMaxLifetime:   1 * time.Hour,
			ConnMaxIdleTime:   15 * time.Minute,
			HealthCheckPeriod: 1 * time.Minute,
			AutoMigrate:       false,
		},
		Logger: LoggerConfig{
			Level:        "info",
			Format:       "json",
			Output:       "stdout",
			EnableColors: false,
			FilePath:     "",
			MaxSize:      0,
			MaxBackups:   0,
			MaxAge:       0,
			Compress:     false,
		},
		Kafka: KafkaConfig{
			Enabled:      false,
			Topic:        "qpay.payment-events",
			WriteTimeout: 5 * time.Second,
		},
		SMTP: SMTPConfig{
			Port:    587,
			Timeout: 10 * time.Second,
		},
		Qpay: QpayConfig{
			TestMode:          true,
			CurrencyAllowlist: []string{"QAR"},
			CurrencyCode:      "634",
			StoreCurrency:     "QAR",
			SendDebugEmail:    true,
			LoggingEnabled:    false,
			VerifyAmount:      true,
			AmountEpsilon:     0.01,
			TrustForwardedFor: true,
			DNSTimeout:        3 * time.Second,
			AllowlistTTL:      5 * time.Minute,
			AllowlistHosts:    []string{QpaySandboxHost, QpayProductionHost},
			NoticeTTL:         120 * time.Second,
			NotifyTimeout:     15 * time.Second,
		},
		Store: StoreConfig{
			Name:              "Store",
			BaseURL:           "http://localhost:8080",
			CheckoutPath:      "/checkout/",
			OrderReceivedPath: "/checkout/order-received/{id}/",
		},
	}
}
