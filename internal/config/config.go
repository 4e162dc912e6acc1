package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBPath            string
	DBLogLevel        string
	RedisHost         string
	RedisPort         string
	SessionSecret     string
	GinMode           string
	Port              string
	CORSOrigins       []string
	AuthJWTSecret     string
	AuthJWTPublicKey  string
	AuthWebhookSecret string
	OpenAIAPIKey      string
}

func Load() *Config {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	return &Config{
		DBDriver:          getEnv("DB_DRIVER", "mysql"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBUser:            getEnv("DB_USER", "crmuser"),
		DBPassword:        getEnv("DB_PASSWORD", "crmpassword"),
		DBName:            getEnv("DB_NAME", "freelance_crm"),
		DBPath:            getEnv("DB_PATH", "crm.db"),
		DBLogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		SessionSecret:     getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		Port:              getEnv("PORT", "8080"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		AuthJWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTPublicKey:  getEnv("AUTH_JWT_PUBLIC_KEY", ""),
		AuthWebhookSecret: getEnv("AUTH_WEBHOOK_SECRET", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimRight(strings.TrimSpace(part), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}
