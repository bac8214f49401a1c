package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment selectors for the GCCPay API.
const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

// Checkout interaction modes.
const (
	InteractionLightbox    = "lightbox"
	InteractionPaymentPage = "paymentpage"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	GCCPay   GCCPayConfig
	Shop     ShopConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	MockMode bool
}

// GCCPayConfig carries the merchant credentials issued by GCCPay.
type GCCPayConfig struct {
	MerchantID          string
	ClientID            string
	ClientKey           string
	ClientSecret        string
	Environment         string // sandbox | production
	CheckoutInteraction string // lightbox | paymentpage
}

// ShopConfig locates the surrounding shop so the gateway can build the
// URLs handed to GCCPay and to the shopper.
type ShopConfig struct {
	// PublicBaseURL is this service's externally reachable base URL,
	// used for the return and notification endpoints.
	PublicBaseURL string
	// CheckoutURL is the shop's checkout page, where shoppers land after
	// a failed or abandoned payment.
	CheckoutURL string
	// ReturnURL is the shop's order-received page for completed payments.
	ReturnURL string
	// BaseCountry is the shop's base country as ISO 3166-1 alpha-2.
	BaseCountry string
	// Currency is the shop currency sent in session requests.
	Currency string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", ":8085"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USER", "root"),
			Password:     getEnv("DB_PASS", "password"),
			Database:     getEnv("DB_NAME", "gccpay_gateway"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID:  getEnv("KAFKA_GROUP_ID", "gccpay-gateway"),
			MockMode: getBool("KAFKA_MOCK_MODE", true),
		},
		GCCPay: GCCPayConfig{
			MerchantID:          os.Getenv("GCCPAY_MERCHANT_ID"),
			ClientID:            os.Getenv("GCCPAY_CLIENT_ID"),
			ClientKey:           os.Getenv("GCCPAY_CLIENT_KEY"),
			ClientSecret:        os.Getenv("GCCPAY_CLIENT_SECRET"),
			Environment:         getEnv("GCCPAY_ENVIRONMENT", EnvSandbox),
			CheckoutInteraction: getEnv("GCCPAY_CHECKOUT_INTERACTION", InteractionLightbox),
		},
		Shop: ShopConfig{
			PublicBaseURL: getEnv("SHOP_PUBLIC_BASE_URL", "http://localhost:8085"),
			CheckoutURL:   getEnv("SHOP_CHECKOUT_URL", "http://localhost:8080/checkout"),
			ReturnURL:     getEnv("SHOP_RETURN_URL", "http://localhost:8080/order-received"),
			BaseCountry:   getEnv("SHOP_BASE_COUNTRY", "SA"),
			Currency:      getEnv("SHOP_CURRENCY", "SAR"),
		},
	}
}

// Validate fails fast on missing credentials so a misconfigured gateway
// never reaches the point of signing a request mid-checkout.
func (c *Config) Validate() error {
	var missing []string
	if c.GCCPay.MerchantID == "" {
		missing = append(missing, "GCCPAY_MERCHANT_ID")
	}
	if c.GCCPay.ClientKey == "" {
		missing = append(missing, "GCCPAY_CLIENT_KEY")
	}
	if c.GCCPay.ClientSecret == "" {
		missing = append(missing, "GCCPAY_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.GCCPay.Environment != EnvSandbox && c.GCCPay.Environment != EnvProduction {
		return fmt.Errorf("invalid GCCPAY_ENVIRONMENT %q (want %s or %s)",
			c.GCCPay.Environment, EnvSandbox, EnvProduction)
	}
	if c.GCCPay.CheckoutInteraction != InteractionLightbox && c.GCCPay.CheckoutInteraction != InteractionPaymentPage {
		return fmt.Errorf("invalid GCCPAY_CHECKOUT_INTERACTION %q (want %s or %s)",
			c.GCCPay.CheckoutInteraction, InteractionLightbox, InteractionPaymentPage)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
