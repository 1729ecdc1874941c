// Package faults defines the error taxonomy shared across the bot's
// resilience components. Errors carry a Kind so recovery actions match
// on a value rather than on message substrings.
package faults
