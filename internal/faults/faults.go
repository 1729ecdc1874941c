package faults

import (
	"errors"
	"fmt"
)

// Kind classifies an error so recovery actions can match on it by value
// instead of inspecting message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindTransport
	KindUpstream
	KindGateway
	KindFilesystem
	KindMemory
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindUpstream:
		return "upstream"
	case KindGateway:
		return "gateway"
	case KindFilesystem:
		return "filesystem"
	case KindMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Fault is implemented by errors that carry a classification kind.
type Fault interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the first Fault in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var f Fault
	if errors.As(err, &f) {
		return f.Kind()
	}
	return KindUnknown
}

// ConfigError reports a misuse of the API surface, such as requesting
// an API name that was never registered.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }
func (e *ConfigError) Kind() Kind    { return KindConfig }

// TransportError reports that a single endpoint could not be reached
// after its retry budget was spent.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Kind() Kind    { return KindTransport }

// UpstreamError reports that every endpoint of an API failed or was
// skipped and no cached response was available. Err holds the last
// endpoint error encountered, which may be nil if every breaker was open.
type UpstreamError struct {
	API string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("all endpoints unavailable for API %q", e.API)
	}
	return fmt.Sprintf("all endpoints unavailable for API %q: %v", e.API, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
func (e *UpstreamError) Kind() Kind    { return KindUpstream }

type tagged struct {
	kind Kind
	err  error
}

func (t *tagged) Error() string { return t.err.Error() }
func (t *tagged) Unwrap() error { return t.err }
func (t *tagged) Kind() Kind    { return t.kind }

// Tag attaches a kind to an arbitrary error. Returns nil if err is nil.
func Tag(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &tagged{kind: kind, err: err}
}
