// Package httpserver wraps http.Server with listen-address validation
// and graceful shutdown for the bot's status web surface.
package httpserver
