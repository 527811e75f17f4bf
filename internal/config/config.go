package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppPort           = "8083"
	defaultProductServiceURL = "http://product-service:8082/api"
	defaultProductTimeout    = 5 * time.Second
	defaultOrderEventsTopic  = "order-events"
	defaultCORSOrigin        = "*"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	ProductServiceURL    string
	ProductClientTimeout time.Duration
	JWTSecret            string
	KafkaBrokers         []string
	OrderEventsTopic     string
	CORSAllowedOrigin    string
	InternalSecretKey    string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getEnv("APP_PORT", defaultAppPort),
		AppEnv:     os.Getenv("APP_ENV"),

		ProductServiceURL:    strings.TrimRight(getEnv("PRODUCT_SERVICE_URL", defaultProductServiceURL), "/"),
		ProductClientTimeout: getDuration("PRODUCT_CLIENT_TIMEOUT", defaultProductTimeout),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		KafkaBrokers:         splitCSV(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic:     getEnv("ORDER_EVENTS_TOPIC", defaultOrderEventsTopic),
		CORSAllowedOrigin:    getEnv("CORS_ALLOWED_ORIGIN", defaultCORSOrigin),
		InternalSecretKey:    os.Getenv("INTERNAL_SECRET_KEY"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go duration strings ("3s", "1500ms"); bad values fall back.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
