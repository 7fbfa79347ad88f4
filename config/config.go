// Package config loads server configuration from the environment, with a
// .env file as an optional local override.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/warp/payroll-engine/payroll"
)

type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// Ledger policy choices (spec'd as explicit configuration, not code).
	MergePolicy payroll.MergePolicy
	GraceDays   int
}

// Load reads configuration from the environment. A missing .env file is
// fine; real environment variables always win.
func Load() Config {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	graceDays, _ := strconv.Atoi(getEnv("ENTRY_GRACE_DAYS", "0"))

	mergePolicy := payroll.MergePolicy(getEnv("ENTRY_MERGE_POLICY", string(payroll.MergeReject)))
	if !mergePolicy.Valid() {
		mergePolicy = payroll.MergeReject
	}

	return Config{
		Port:        port,
		DBPath:      getEnv("DB_PATH", "payroll.db"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		MergePolicy: mergePolicy,
		GraceDays:   graceDays,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
