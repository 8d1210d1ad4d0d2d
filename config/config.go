package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB   int    `mapstructure:"REDIS_LOCK_DB"`

	// Stripe configuration. The webhook secret is the shared signing secret
	// used to verify pushed events against the raw request body.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Mercado Pago configuration. The API base is configurable so tests can
	// point the payment fetch at a local server.
	MercadoPagoToken   string `mapstructure:"MERCADOPAGO_TOKEN"`
	MercadoPagoAPIBase string `mapstructure:"MERCADOPAGO_API_BASE"`

	// Frontend URLs the checkout redirects back to.
	CheckoutSuccessURL string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `mapstructure:"CHECKOUT_CANCEL_URL"`

	// Booking engine tuning.
	PendingTTLMinutes  int `mapstructure:"PENDING_TTL_MINUTES"`   // Pending bookings older than this are swept
	SlotLockTTLSeconds int `mapstructure:"SLOT_LOCK_TTL_SECONDS"` // Per-calendar lock expiry guard
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "visapoint")
	viper.SetDefault("MERCADOPAGO_API_BASE", "https://api.mercadopago.com")
	viper.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/booking/success")
	viper.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/booking/cancelled")
	viper.SetDefault("PENDING_TTL_MINUTES", 30)
	viper.SetDefault("SLOT_LOCK_TTL_SECONDS", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
