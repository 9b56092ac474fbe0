// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Secrets and identifiers are strings; the
// moderation window is a duration assembled from hours.
type Config struct {
	Env              string        // application environment (e.g. "dev", "prod")
	Port             string        // HTTP port to listen on
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	JWTSecret        string        // secret used to verify access tokens
	ModerationWindow time.Duration // trailing window for the pending-grant queue
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must(); missing values
// cause the program to exit with a fatal log message. The moderation
// window defaults to 48 hours and can be overridden per deployment.
func Load() Config {
	windowHours := 48
	if v := os.Getenv("MODERATION_WINDOW_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid MODERATION_WINDOW_HOURS: %q", v)
		}
		windowHours = n
	}
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTSecret:        must("JWT_SECRET"),
		ModerationWindow: time.Duration(windowHours) * time.Hour,
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
