// Package ratelimit implements named fixed-window rate limiting for the
// bot's web surface. A window resets entirely when it expires rather
// than sliding continuously.
package ratelimit
