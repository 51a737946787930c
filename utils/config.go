package utils

import (
	"os"

	"github.com/joho/godotenv"
)

// Config centralizes environment variables for the bot process.
type Config struct {
	Env      string // "local", "dev", "prod"
	BotToken string

	DatabaseURL  string
	RedisAddr    string
	KafkaBrokers string

	// Kafka topics for outbound settlement events.
	TopicBetPlaced       string
	TopicDepositCredited string
	TopicCurseTriggered  string

	// Explorer API base URLs per currency.
	ExplorerBTC string
	ExplorerLTC string

	// Static deposit addresses per currency (set when no HD derivation
	// collaborator is wired in).
	DepositAddressBTC string
	DepositAddressLTC string

	// Comma-separated Discord user IDs allowed to use admin commands.
	AdminUserIDs string

	HTTPPort    string
	MetricsPort string

	// Cron expression for the background deposit sweep.
	DepositSweepSpec string
}

// LoadConfig reads .env (if present) and environment variables with defaults.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Env:      getEnv("ENV", "local"),
		BotToken: getEnv("BOT_TOKEN", ""),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),

		TopicBetPlaced:       getEnv("KAFKA_TOPIC_BET_PLACED", "casino.bet_placed"),
		TopicDepositCredited: getEnv("KAFKA_TOPIC_DEPOSIT_CREDITED", "casino.deposit_credited"),
		TopicCurseTriggered:  getEnv("KAFKA_TOPIC_CURSE_TRIGGERED", "casino.curse_triggered"),

		ExplorerBTC: getEnv("EXPLORER_BTC_URL", "https://mempool.space/api"),
		ExplorerLTC: getEnv("EXPLORER_LTC_URL", "https://litecoinspace.org/api"),

		DepositAddressBTC: getEnv("DEPOSIT_ADDRESS_BTC", ""),
		DepositAddressLTC: getEnv("DEPOSIT_ADDRESS_LTC", ""),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),

		HTTPPort:    getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),

		DepositSweepSpec: getEnv("DEPOSIT_SWEEP_SPEC", "@every 2m"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
