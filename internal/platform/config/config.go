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
	JWTKey  []byte
	JWTExp  time.Duration

	AdminPassword string // compared via bcrypt at login

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

	GradingQueueName string
	GradingWorkers   int

	ExecutorProvider     string // "remote" or "mock"
	ExecutorURL          string
	ExecutorClientID     string
	ExecutorClientSecret string
	ExecutorTimeoutMs    int

	TotalRounds int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:       getEnv("API_PORT", "8080"),
		JWTKey:        []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:        time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		AdminPassword: getEnv("ADMIN_PASSWORD", "hacker2024"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "user"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "codetective_db"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		GradingQueueName: getEnv("GRADING_QUEUE_NAME", "grading_jobs_queue"),
		GradingWorkers:   getEnvAsInt("GRADING_WORKERS", 4),

		ExecutorProvider:     getEnv("EXECUTOR_PROVIDER", "mock"),
		ExecutorURL:          getEnv("EXECUTOR_URL", "https://api.jdoodle.com/v1/execute"),
		ExecutorClientID:     getEnv("EXECUTOR_CLIENT_ID", ""),
		ExecutorClientSecret: getEnv("EXECUTOR_CLIENT_SECRET", ""),
		ExecutorTimeoutMs:    getEnvAsInt("EXECUTOR_TIMEOUT_MS", 10000),

		TotalRounds: getEnvAsInt("GAME_TOTAL_ROUNDS", 3),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
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
