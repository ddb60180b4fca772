// Package config loads and validates the daemon configuration from the
// environment (optionally seeded from a .env file).
package config
