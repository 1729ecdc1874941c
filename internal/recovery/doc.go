// Package recovery runs prioritized recovery actions when an error
// reaches the manager. Actions declare which fault kinds they handle
// and are matched by value, not by message text.
package recovery
