package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Settings is the process configuration read from the environment.
type Settings struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimezone string
	SQLitePath string

	HTTPAddr  string
	JWTSecret string

	StorageWebDir string
	StorageWebURL string

	LogFile  string
	LogLevel string
}

// Load reads .env (if present) and the environment, with defaults.
func Load() Settings {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars.")
	}

	return Settings{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "exhibits"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBTimezone: getEnv("DB_TIMEZONE", "UTC"),
		SQLitePath: getEnv("SQLITE_PATH", "./data/exhibits.db"),

		HTTPAddr:  getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		JWTSecret: getEnv("JWT_SECRET", "supersecret"),

		StorageWebDir: getEnv("STORAGE_WEB_DIR", "./files"),
		StorageWebURL: getEnv("STORAGE_WEB_URL", "/files"),

		LogFile:  getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}
