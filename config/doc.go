// Package config loads and validates the bot's configuration from a
// YAML file and environment variables.
package config
