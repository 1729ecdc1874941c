// Package status exposes the bot's health report and request metrics
// over HTTP, behind per-client-IP rate limiting.
package status
