package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationHeader forwards the caller's request id to the judge.
const CorrelationHeader = "X-Correlation-ID"

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultBaseURL        = "https://judge0-ce.p.rapidapi.com"
	DefaultPollInterval   = 1500 * time.Millisecond
	DefaultMaxAttempts    = 10
	DefaultRequestTimeout = 10 * time.Second
)

var (
	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "practice",
		Subsystem: "judge",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP calls made to the remote judge",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	callFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "practice",
		Subsystem: "judge",
		Name:      "request_failures_total",
		Help:      "Number of judge calls that failed at the transport level",
	}, []string{"op"})

	pollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "practice",
		Subsystem: "judge",
		Name:      "poll_attempts",
		Help:      "Number of polls needed before a run reached a terminal status",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
	})

	runTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "practice",
		Subsystem: "judge",
		Name:      "run_timeouts_total",
		Help:      "Number of runs that exhausted the poll budget",
	})
)

// Runner executes a program on the judge and waits for its verdict.
type Runner interface {
	Run(ctx context.Context, source, language, stdin string, opts RunOptions) (Verdict, error)
}

// RunOptions bounds the poll loop of a single run. Zero values use the client defaults.
type RunOptions struct {
	PollInterval time.Duration
	MaxAttempts  int
}

// Config groups the judge client configuration values. CorrelationID extracts the request id
// forwarded to the judge from a call's context; nil disables forwarding.
type Config struct {
	BaseURL        string
	APIKey         string
	APIHost        string
	PollInterval   time.Duration
	MaxAttempts    int
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	CorrelationID  func(ctx context.Context) string
}

// Client talks to a Judge0 compatible HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	defaults   RunOptions
	httpClient *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
	correlate  func(ctx context.Context) string
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a judge client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid judge base url: %w", err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		apiHost:    cfg.APIHost,
		defaults:   RunOptions{PollInterval: cfg.PollInterval, MaxAttempts: cfg.MaxAttempts},
		httpClient: httpClient,
		tracer:     otel.Tracer("github.com/noah-isme/codepractice-api/pkg/judge"),
		logger:     logger.With().Str("component", "judge_client").Logger(),
		correlate:  cfg.CorrelationID,
		sleep:      sleepContext,
	}, nil
}

// Defaults returns the poll settings used when RunOptions are left zero.
func (c *Client) Defaults() RunOptions {
	return c.defaults
}

type createRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type createResponse struct {
	Token string `json:"token"`
}

// Submit sends a program to the judge and returns the run token.
func (c *Client) Submit(ctx context.Context, source, language, stdin string) (string, error) {
	languageID, err := LanguageID(language)
	if err != nil {
		return "", err
	}

	ctx, span := c.tracer.Start(ctx, "judge.submit", trace.WithAttributes(
		attribute.String("judge.language", language),
		attribute.Int("judge.language_id", languageID),
	))
	defer span.End()

	body, err := json.Marshal(createRequest{LanguageID: languageID, SourceCode: source, Stdin: stdin})
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}

	var created createResponse
	if err := c.do(ctx, "submit", http.MethodPost, c.endpoint("submissions"), body, &created); err != nil {
		recordSpanError(span, err)
		return "", err
	}

	if strings.TrimSpace(created.Token) == "" {
		err := &TransportError{Op: "submit", Err: errors.New("judge returned an empty token")}
		recordSpanError(span, err)
		return "", err
	}

	return created.Token, nil
}

// Poll fetches the current verdict for a token.
func (c *Client) Poll(ctx context.Context, token string) (Verdict, error) {
	ctx, span := c.tracer.Start(ctx, "judge.poll", trace.WithAttributes(attribute.String("judge.token", token)))
	defer span.End()

	var verdict Verdict
	if err := c.do(ctx, "poll", http.MethodGet, c.endpoint("submissions/"+url.PathEscape(token)), nil, &verdict); err != nil {
		recordSpanError(span, err)
		return Verdict{}, err
	}
	if verdict.Token == "" {
		verdict.Token = token
	}

	span.SetAttributes(attribute.Int("judge.status_id", verdict.Status.ID))
	return verdict, nil
}

// Run submits once and polls until the verdict is terminal or the attempt budget is spent.
func (c *Client) Run(ctx context.Context, source, language, stdin string, opts RunOptions) (Verdict, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = c.defaults.PollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = c.defaults.MaxAttempts
	}

	ctx, span := c.tracer.Start(ctx, "judge.run", trace.WithAttributes(
		attribute.String("judge.language", language),
		attribute.Int("judge.max_attempts", opts.MaxAttempts),
		attribute.String("correlation.id", c.correlationID(ctx)),
	))
	defer span.End()

	token, err := c.Submit(ctx, source, language, stdin)
	if err != nil {
		recordSpanError(span, err)
		return Verdict{}, err
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := c.sleep(ctx, opts.PollInterval); err != nil {
			err = &TransportError{Op: "poll", Err: err}
			recordSpanError(span, err)
			return Verdict{}, err
		}

		verdict, err := c.Poll(ctx, token)
		if err != nil {
			recordSpanError(span, err)
			return Verdict{}, err
		}

		if verdict.Terminal() {
			pollAttempts.Observe(float64(attempt))
			span.SetAttributes(attribute.Int("judge.attempts", attempt))
			return verdict, nil
		}
	}

	runTimeouts.Inc()
	logger := c.loggerFor(ctx)
	logger.Warn().Str("token", token).Int("attempts", opts.MaxAttempts).Msg("judge run did not finish within poll budget")
	span.SetStatus(codes.Error, "poll budget exhausted")
	return Verdict{}, fmt.Errorf("%w after %d polls", ErrTimeout, opts.MaxAttempts)
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s?base64_encoded=false&fields=*", c.baseURL, path)
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}

	if id := c.correlationID(ctx); id != "" {
		req.Header.Set(CorrelationHeader, id)
	}
	logger := c.loggerFor(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	callDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		callFailures.WithLabelValues(op).Inc()
		logger.Warn().Err(err).Str("op", op).Msg("judge request failed")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		callFailures.WithLabelValues(op).Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Error().Str("op", op).Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("judge returned an error response")
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		callFailures.WithLabelValues(op).Inc()
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func (c *Client) correlationID(ctx context.Context) string {
	if c.correlate == nil {
		return ""
	}
	return strings.TrimSpace(c.correlate(ctx))
}

func (c *Client) loggerFor(ctx context.Context) zerolog.Logger {
	if id := c.correlationID(ctx); id != "" {
		return c.logger.With().Str("correlation_id", id).Logger()
	}
	return c.logger
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
