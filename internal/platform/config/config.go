package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	MigrationsPath string

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	KafkaRequestedTopic string
	KafkaDLQTopic       string
	KafkaProcessedTopic string // Empty disables outcome publishing

	// Consumer
	ConsumerWorkers   int
	FatalRetryLimit   int
	FatalRetryBackoff time.Duration

	// Account ledger
	LedgerBaseURL  string
	LedgerResource string
	LedgerTimeout  time.Duration

	// Currency conversion
	CurrencyAPIBaseURL string
	CurrencyAPITimeout time.Duration
	HomeCurrency       string
	HomeLocation       *time.Location
	RateCacheTTL       time.Duration

	// Redis backs the shared rate cache and the per-transaction lock. Empty keeps both in-process.
	RedisURL      string
	TxnLockExpiry time.Duration

	// Ops API
	JWTSecret          string
	JWTIssuer          string
	OpsAPIKeyHash      string
	OpsRateLimit       string // ulule/limiter formatted rate, e.g. "100-M"
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_GROUP_ID", "txn-processor")
	viper.SetDefault("KAFKA_REQUESTED_TOPIC", "transaction.requested")
	viper.SetDefault("KAFKA_DLQ_TOPIC", "transaction.requested.dlq")
	viper.SetDefault("KAFKA_PROCESSED_TOPIC", "")
	viper.SetDefault("CONSUMER_WORKERS", 4)
	viper.SetDefault("FATAL_RETRY_LIMIT", 5)
	viper.SetDefault("FATAL_RETRY_BACKOFF", "500ms")
	viper.SetDefault("LEDGER_BASE_URL", "")
	viper.SetDefault("LEDGER_RESOURCE", "bankAccounts")
	viper.SetDefault("LEDGER_TIMEOUT", "5s")
	viper.SetDefault("CURRENCY_API_BASE_URL", "https://brasilapi.com.br")
	viper.SetDefault("CURRENCY_API_TIMEOUT", "5s")
	viper.SetDefault("HOME_CURRENCY", "BRL")
	viper.SetDefault("HOME_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("RATE_CACHE_TTL", "168h")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("TXN_LOCK_EXPIRY", "30s")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "txn-processor")
	viper.SetDefault("OPS_API_KEY_HASH", "")
	viper.SetDefault("OPS_RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	cfg.KafkaBrokers = splitList(viper.GetString("KAFKA_BROKERS"))
	if len(cfg.KafkaBrokers) == 0 {
		log.Println("Warning: KAFKA_BROKERS not set. The consumer cannot start.")
	}
	cfg.KafkaGroupID = viper.GetString("KAFKA_GROUP_ID")
	cfg.KafkaRequestedTopic = viper.GetString("KAFKA_REQUESTED_TOPIC")
	cfg.KafkaDLQTopic = viper.GetString("KAFKA_DLQ_TOPIC")
	cfg.KafkaProcessedTopic = viper.GetString("KAFKA_PROCESSED_TOPIC")
	if cfg.KafkaProcessedTopic == "" {
		log.Println("Warning: KAFKA_PROCESSED_TOPIC not set. Outcome events will not be published.")
	}

	cfg.ConsumerWorkers = viper.GetInt("CONSUMER_WORKERS")
	if cfg.ConsumerWorkers < 1 {
		log.Printf("Warning: Invalid value for CONSUMER_WORKERS (%d). Defaulting to 1.\n", cfg.ConsumerWorkers)
		cfg.ConsumerWorkers = 1
	}
	cfg.FatalRetryLimit = viper.GetInt("FATAL_RETRY_LIMIT")
	if cfg.FatalRetryLimit < 0 {
		cfg.FatalRetryLimit = 0
	}
	cfg.FatalRetryBackoff = durationOr("FATAL_RETRY_BACKOFF", 500*time.Millisecond)

	cfg.LedgerBaseURL = strings.TrimRight(viper.GetString("LEDGER_BASE_URL"), "/")
	if cfg.LedgerBaseURL == "" {
		log.Println("Warning: LEDGER_BASE_URL not set. Ledger calls will fail.")
	}
	cfg.LedgerResource = strings.Trim(viper.GetString("LEDGER_RESOURCE"), "/")
	cfg.LedgerTimeout = durationOr("LEDGER_TIMEOUT", 5*time.Second)

	cfg.CurrencyAPIBaseURL = strings.TrimRight(viper.GetString("CURRENCY_API_BASE_URL"), "/")
	cfg.CurrencyAPITimeout = durationOr("CURRENCY_API_TIMEOUT", 5*time.Second)
	cfg.HomeCurrency = strings.ToUpper(strings.TrimSpace(viper.GetString("HOME_CURRENCY")))
	if cfg.HomeCurrency == "" {
		cfg.HomeCurrency = "BRL"
		log.Printf("Warning: HOME_CURRENCY not set. Defaulting to %s.\n", cfg.HomeCurrency)
	}

	tz := viper.GetString("HOME_TIMEZONE")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Warning: Invalid value for HOME_TIMEZONE ('%s'). Defaulting to UTC.\n", tz)
		loc = time.UTC
	}
	cfg.HomeLocation = loc
	cfg.RateCacheTTL = durationOr("RATE_CACHE_TTL", 7*24*time.Hour)

	cfg.RedisURL = viper.GetString("REDIS_URL")
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set. Using in-process rate cache and no cross-process transaction lock.")
	}
	cfg.TxnLockExpiry = durationOr("TXN_LOCK_EXPIRY", 30*time.Second)

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "txn-processor"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}
	cfg.OpsAPIKeyHash = viper.GetString("OPS_API_KEY_HASH")
	if cfg.OpsAPIKeyHash == "" {
		log.Println("Warning: OPS_API_KEY_HASH not set. API key authentication is disabled, only bearer tokens are accepted.")
	}
	cfg.OpsRateLimit = viper.GetString("OPS_RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))

	return cfg, nil
}

// durationOr parses key as a duration, falling back to def when unset or invalid.
func durationOr(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
