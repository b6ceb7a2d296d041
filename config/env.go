package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Stock  StockConfig
}

type ServerConfig struct {
	Addr string
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
}

// StockConfig decides whether sale postings may drive product stock
// below zero. Default: reject.
type StockConfig struct {
	AllowNegative bool
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, _ := strconv.Atoi(getEnv("AUTH_TOKEN_TTL_HOURS", "12"))
	allowNegative, _ := strconv.ParseBool(getEnv("STOCK_ALLOW_NEGATIVE", "false"))

	return Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		DB: DBConfig{
			DSN: getEnv("DATABASE_DSN", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "gestvendas-dev-secret"),
			TokenTTLHours: tokenTTL,
		},
		Stock: StockConfig{
			AllowNegative: allowNegative,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
