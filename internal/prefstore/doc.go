// Package prefstore persists per-guild notification preferences in a
// flat JSON file guarded by a real mutex, with first-load coalescing.
package prefstore
