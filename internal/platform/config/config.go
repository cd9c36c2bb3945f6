package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	Env     string

	JWTKey []byte
	JWTExp time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JudgeURL       string
	JudgeAuthToken string

	PollInterval    time.Duration
	PollMaxInterval time.Duration
	PollDeadline    time.Duration

	SubmissionQueueName string
	DailyUsageLimit     int
}

// Load reads the environment (optionally seeded from a .env file) into a
// Config. Callers pass the result down; there is no package-level state.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort: getEnv("API_PORT", "8080"),
		Env:     getEnv("APP_ENV", "development"),

		JWTKey: []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp: time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "codearena_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeURL:       getEnv("JUDGE_URL", "http://localhost:2358"),
		JudgeAuthToken: getEnv("JUDGE_AUTH_TOKEN", ""),

		PollInterval:    time.Duration(getEnvAsInt("JUDGE_POLL_INTERVAL_MS", 500)) * time.Millisecond,
		PollMaxInterval: time.Duration(getEnvAsInt("JUDGE_POLL_MAX_INTERVAL_MS", 4000)) * time.Millisecond,
		PollDeadline:    time.Duration(getEnvAsInt("JUDGE_POLL_DEADLINE_SECONDS", 45)) * time.Second,

		SubmissionQueueName: getEnv("SUBMISSION_QUEUE_NAME", "submission_jobs_queue"),
		DailyUsageLimit:     getEnvAsInt("DAILY_USAGE_LIMIT", 50),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
