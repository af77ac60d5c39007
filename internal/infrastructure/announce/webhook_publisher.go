package announce

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/turf-wars/internal/platform/logging"
	"github.com/riskibarqy/turf-wars/internal/platform/resilience"
)

// errWebhookTransient marks failures worth retrying on a later
// announcement: transport errors and endpoint 5xx responses. Client
// errors (4xx) are permanent until the configuration changes.
var errWebhookTransient = crerr.New("webhook transient failure")

// IsTransient reports whether a publish failure was transport-level or
// an endpoint-side error rather than a rejected payload.
func IsTransient(err error) bool {
	return crerr.Is(err, errWebhookTransient)
}

type WebhookPublisherConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
	Breaker resilience.CircuitBreakerConfig
}

// WebhookPublisher delivers announcements to a configured HTTP endpoint.
// Delivery is best effort: the caller queues failures for manual
// follow-up, and a circuit breaker keeps a dead endpoint from stalling
// season transitions on full timeouts.
type WebhookPublisher struct {
	client  *http.Client
	url     string
	token   string
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

func NewWebhookPublisher(cfg WebhookPublisherConfig, logger *logging.Logger) (*WebhookPublisher, error) {
	endpoint, err := validateWebhookURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid announcement webhook url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &WebhookPublisher{
		client:  &http.Client{Timeout: timeout},
		url:     endpoint,
		token:   strings.TrimSpace(cfg.Token),
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
		logger:  logger,
	}, nil
}

// Publish POSTs the announcement as JSON. Non-2xx responses and
// transport failures count against the breaker.
func (p *WebhookPublisher) Publish(ctx context.Context, a Announcement) error {
	return p.breaker.Do(func() error {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)

		body, err := sonic.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal announcement: %w", err)
		}
		if _, err := buf.Write(body); err != nil {
			return fmt.Errorf("buffer announcement: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(buf.B))
		if err != nil {
			return fmt.Errorf("create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if p.token != "" {
			req.Header.Set("Authorization", "Bearer "+p.token)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: post announcement kind=%s season=%d: %v", errWebhookTransient, a.Kind, a.SeasonNumber, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode/100 != 2 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if resp.StatusCode >= 500 {
				return fmt.Errorf("%w: post announcement kind=%s season=%d status=%d body=%s",
					errWebhookTransient, a.Kind, a.SeasonNumber, resp.StatusCode, strings.TrimSpace(string(raw)))
			}
			return fmt.Errorf("post announcement kind=%s season=%d status=%d body=%s",
				a.Kind, a.SeasonNumber, resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		p.logger.InfoContext(ctx, "announcement published",
			"kind", string(a.Kind), "season", a.SeasonNumber)
		return nil
	})
}

func validateWebhookURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", fmt.Errorf("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", candidate, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", fmt.Errorf("%q has empty host", candidate)
	}
	return candidate, nil
}
