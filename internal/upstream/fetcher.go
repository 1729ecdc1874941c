package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AO-Miko/Discord-Bot/internal/faults"
)

// Options shapes a single upstream request. The zero value is a GET
// with no headers and no body.
type Options struct {
	Method string
	Header http.Header
	Body   []byte
}

// Fetcher performs one endpoint attempt with bounded retries and
// exponential backoff. Each attempt gets its own timeout; between failed
// attempts it sleeps min(BackoffBase * 2^attempt, BackoffCap). No jitter
// is applied, matching the per-endpoint retry contract.
type Fetcher struct {
	Client      *http.Client
	BackoffBase time.Duration
	BackoffCap  time.Duration

	logger *slog.Logger
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		Client:      &http.Client{},
		BackoffBase: time.Second,
		BackoffCap:  10 * time.Second,
		logger:      logger,
	}
}

// Fetch performs up to maxRetries+1 attempts against url and returns the
// decoded JSON body of the first success. On exhaustion it returns a
// TransportError wrapping the last attempt's error.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options, timeout time.Duration, maxRetries int) (json.RawMessage, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		data, err := f.attempt(ctx, url, opts, timeout)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		delay := f.backoff(attempt)
		f.logger.Debug("Attempt failed, backing off",
			slog.String("url", url),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, &faults.TransportError{URL: url, Attempts: attempt + 1, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	return nil, &faults.TransportError{URL: url, Attempts: maxRetries + 1, Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, url string, opts Options, timeout time.Duration) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, body)
	if err != nil {
		return nil, err
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	res, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("HTTP %d: %s", res.StatusCode, http.StatusText(res.StatusCode))
	}

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("invalid JSON response from %s", url)
	}

	return json.RawMessage(payload), nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.BackoffBase << uint(attempt)
	if delay <= 0 || delay > f.BackoffCap {
		return f.BackoffCap
	}
	return delay
}
