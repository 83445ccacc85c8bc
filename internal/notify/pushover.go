// Package notify delivers admitted alerts to the Pushover messages API.
// Transient failures are retried with bounded exponential backoff inside
// the current tick; exhausted or permanently failing alerts are dropped,
// never queued (the next tick re-admits a persisting condition).
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pushwatch/watchdog/internal/config"
	"github.com/pushwatch/watchdog/internal/models"
)

const (
	// maxAttempts is the number of delivery attempts per alert per tick.
	maxAttempts = 3

	// baseRetryDelay is the base delay for exponential backoff between attempts.
	baseRetryDelay = 2 * time.Second

	// requestTimeout is the HTTP request timeout for each attempt.
	requestTimeout = 10 * time.Second

	// permanentLogInterval rate-limits error logs for permanent failures
	// (e.g. a bad token fails every tick; one log per interval is enough).
	permanentLogInterval = 15 * time.Minute
)

// Pushover delivers alerts through the Pushover messages endpoint.
// Notify is safe for concurrent use; independent alerts in one tick may
// be dispatched in parallel.
type Pushover struct {
	client *http.Client
	cfg    config.PushoverConfig
	host   string
	logger *zap.Logger

	attempts  int
	baseDelay time.Duration

	permMu      sync.Mutex
	lastPermLog time.Time
}

// New creates a Pushover notifier. Host identity in messages comes from
// the configured host label, falling back to the OS hostname.
func New(cfg *config.Config, hostname string, logger *zap.Logger) *Pushover {
	host := cfg.HostLabel
	if host == "" {
		host = hostname
	}
	return &Pushover{
		client:    &http.Client{Timeout: requestTimeout},
		cfg:       cfg.Pushover,
		host:      host,
		logger:    logger,
		attempts:  maxAttempts,
		baseDelay: baseRetryDelay,
	}
}

// Notify formats and delivers one alert. It retries transient failures
// (network errors, 5xx, rate limits) with exponential backoff up to the
// attempt budget; permanent failures (other 4xx) are not retried. The
// returned error means the alert was dropped.
func (p *Pushover) Notify(ctx context.Context, alert models.Alert) error {
	title, message := FormatAlert(alert, p.host)

	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * p.baseDelay
			p.logger.Warn("Retrying delivery",
				zap.String("metric", alert.Metric),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("delivery cancelled: %w", ctx.Err())
			}
		}

		err := p.send(ctx, alert, title, message)
		if err == nil {
			p.logger.Info("Alert delivered",
				zap.String("metric", alert.Metric),
				zap.String("severity", alert.Severity.String()),
				zap.Int("attempts", attempt+1))
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			p.logPermanent(alert, err)
			return err
		}

		lastErr = err
		p.logger.Warn("Delivery attempt failed",
			zap.String("metric", alert.Metric),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return fmt.Errorf("delivery failed after %d attempts: %w", p.attempts, lastErr)
}

// send performs a single form-encoded POST to the messages endpoint.
func (p *Pushover) send(ctx context.Context, alert models.Alert, title, message string) error {
	form := url.Values{}
	form.Set("token", p.cfg.AppToken)
	form.Set("user", p.cfg.UserKey)
	form.Set("title", title)
	form.Set("message", message)
	form.Set("timestamp", strconv.FormatInt(alert.Timestamp.Unix(), 10))
	if alert.Severity == models.SeverityCritical && !alert.Recovered {
		form.Set("priority", "1")
	}
	if p.cfg.Device != "" {
		form.Set("device", p.cfg.Device)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	// 429 and server-side errors are worth retrying; any other 4xx means
	// the request itself is bad (invalid credentials, bad payload) and
	// will fail identically on retry.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("pushover returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &permanentError{statusCode: resp.StatusCode, body: strings.TrimSpace(string(body))}
}

// logPermanent logs a permanent delivery failure, at most once per
// permanentLogInterval so a standing misconfiguration does not flood the log.
func (p *Pushover) logPermanent(alert models.Alert, err error) {
	p.permMu.Lock()
	now := time.Now()
	shouldLog := now.Sub(p.lastPermLog) >= permanentLogInterval
	if shouldLog {
		p.lastPermLog = now
	}
	p.permMu.Unlock()

	if shouldLog {
		p.logger.Error("Permanent delivery failure, not retrying",
			zap.String("metric", alert.Metric),
			zap.Error(err))
	} else {
		p.logger.Debug("Permanent delivery failure (log rate-limited)",
			zap.String("metric", alert.Metric),
			zap.Error(err))
	}
}

// permanentError indicates a 4xx response that retrying cannot fix.
type permanentError struct {
	statusCode int
	body       string
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("pushover rejected request (%d): %s", e.statusCode, e.body)
}

// IsPermanent reports whether a delivery error will not be fixed by retrying.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}
