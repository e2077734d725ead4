package utils

import "os"

// Getenv returns the environment variable named by key, or fallback when the
// variable is unset or empty. All server configuration goes through this so
// every knob has a usable default.
func Getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
