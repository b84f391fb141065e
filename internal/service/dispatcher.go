package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/config"
	"github.com/jjenkins/recnotify/internal/model"
)

const (
	defaultDispatchTimeout = 30 * time.Second
	maxResponseBody        = 64 << 10
	dispatchUserAgent      = "recnotify"
)

// DispatchResult is the notifier's answer
type DispatchResult struct {
	StatusCode int
	Body       string
}

// DispatchError carries the notifier's answer for a non-success status
type DispatchError struct {
	Result DispatchResult
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%v: HTTP %d: %s", ErrDispatch, e.Result.StatusCode, e.Result.Body)
}

func (e *DispatchError) Unwrap() error { return ErrDispatch }

// Dispatcher posts the flattened notification list to the notifier service.
// There is exactly one attempt per call.
type Dispatcher struct {
	httpClient *http.Client
	url        string
	headers    map[string]string
	metrics    *Metrics
	logger     *zap.Logger
}

// NewDispatcher validates the notifier URL and creates a Dispatcher
func NewDispatcher(cfg config.NotifierConfig, metrics *Metrics, logger *zap.Logger) (*Dispatcher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("notifier URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid notifier URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("notifier URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("notifier URL must include a host")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}

	return &Dispatcher{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		headers:    cfg.Headers,
		metrics:    metrics,
		logger:     logger.Named("dispatcher"),
	}, nil
}

// Send posts records as a JSON array. A transport failure returns a zero
// result; a non-2xx answer returns the result together with a *DispatchError.
func (d *Dispatcher) Send(ctx context.Context, records []model.OwnerRecord) (DispatchResult, error) {
	if records == nil {
		records = []model.OwnerRecord{}
	}
	body, err := EncodeJSON(records, false)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return DispatchResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", dispatchUserAgent)
	for name, value := range d.headers {
		req.Header.Set(name, value)
	}

	log := d.logger.With(zap.String("url", RedactURL(d.url)), zap.Int("owners", len(records)))

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.metrics.Dispatched(0)
		log.Error("Notifier request failed", zap.Error(err))
		return DispatchResult{}, fmt.Errorf("failed to reach notifier: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		log.Warn("Failed to read notifier response", zap.Error(err))
	}
	result := DispatchResult{StatusCode: resp.StatusCode, Body: string(text)}
	d.metrics.Dispatched(resp.StatusCode)

	log = log.With(
		zap.Int("status", result.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info("Notifier accepted payload", zap.String("response", result.Body))
		return result, nil
	}

	log.Error("Notifier rejected payload", zap.String("response", result.Body))
	return result, &DispatchError{Result: result}
}

// RedactURL masks credentials in a URL for safe logging.
// It redacts userinfo passwords and query parameter values.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	redacted := u.Redacted()
	if u.RawQuery == "" {
		return redacted
	}
	q := u.Query()
	for key := range q {
		q.Set(key, "REDACTED")
	}
	r, err := url.Parse(redacted)
	if err != nil {
		return redacted
	}
	r.RawQuery = q.Encode()
	return r.String()
}
