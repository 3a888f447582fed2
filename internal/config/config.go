package config

import (
	"fmt"
	"os"
)

// Config holds the runtime configuration, read from the environment.
type Config struct {
	DBConnStr   string
	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from the environment. DB_CONN_STR wins when set;
// otherwise the connection string is assembled from the individual DB_* vars
// (Docker friendly).
func Load() Config {
	connStr := os.Getenv("DB_CONN_STR")
	if connStr == "" {
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "postgres")
		password := getEnv("DB_PASSWORD", "postgres")
		dbname := getEnv("DB_NAME", "bucketeer")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}

	return Config{
		DBConnStr:   connStr,
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
