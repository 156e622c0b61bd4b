// Package fetch wraps HTTP JSON calls with a bounded, deterministic retry loop.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second

	maxBodyBytes = 4 << 20
)

// Request is a single logical call. It is rebuilt on every attempt.
type Request struct {
	Method string
	URL    string
	Body   any
	Header http.Header
}

// Response is the JSON result of a successful call.
type Response struct {
	Status int
	Body   json.RawMessage
}

// NotFound reports whether the result was a 404 that carried a JSON payload.
func (r Response) NotFound() bool {
	return r.Status == http.StatusNotFound
}

// Err returns a *ProtocolError for a non-2xx result. Endpoints that do not
// treat "not found" as data use it to turn a 404 back into a failure.
func (r Response) Err() error {
	if r.Status >= 200 && r.Status <= 299 {
		return nil
	}
	return newProtocolError(r.Status, r.Body)
}

type Options struct {
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *zap.Logger
	Metrics    *Metrics
}

type Option func(*Options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

func WithBaseDelay(d time.Duration) Option {
	return func(o *Options) { o.BaseDelay = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// Client performs JSON requests with up to MaxRetries attempts. Attempt i
// (zero based) that fails is followed by a wait of 2^i * BaseDelay.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
	metrics    *Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client using the provided options.
func New(opts ...Option) *Client {
	options := &Options{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.HTTPClient == nil {
		options.HTTPClient = NewHTTPClient()
	}
	if options.MaxRetries < 1 {
		options.MaxRetries = DefaultMaxRetries
	}
	if options.BaseDelay < 0 {
		options.BaseDelay = DefaultBaseDelay
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:       options.HTTPClient,
		maxRetries: options.MaxRetries,
		baseDelay:  options.BaseDelay,
		logger:     logger.Named("fetch"),
		metrics:    options.Metrics,
		sleep:      sleepContext,
	}
}

// NewHTTPClient returns a client with pooled keep-alive connections and no
// overall timeout; the retry budget bounds latency exposure.
func NewHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 90 * time.Second,
		}).DialContext,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: tr}
}

// Backoff returns the wait before the attempt following attempt i.
func (c *Client) Backoff(i int) time.Duration {
	return (1 << i) * c.baseDelay
}

// Do runs req until it succeeds, fails terminally or the budget is spent.
// The error of the last attempt is returned unchanged.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		start := time.Now()
		resp, err := c.attempt(ctx, req, payload)
		c.metrics.observe(req.Method, outcome(err), time.Since(start).Seconds())
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) || i == c.maxRetries-1 {
			break
		}

		delay := c.Backoff(i)
		c.logger.Warn("request failed, retrying",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("attempt", i+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		c.metrics.retry()

		if err := c.sleep(ctx, delay); err != nil {
			return Response{}, fmt.Errorf("retry aborted: %w", err)
		}
	}

	c.logger.Error("request failed",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Error(lastErr))
	return Response{}, lastErr
}

// DoJSON runs req and decodes the result body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) (int, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	if out == nil || len(resp.Body) == 0 {
		return resp.Status, nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return resp.Status, &MalformedResponseError{Status: resp.Status, Err: err}
	}
	return resp.Status, nil
}

func (c *Client) attempt(ctx context.Context, req Request, payload []byte) (Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, &TransportError{URL: req.URL, Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, &TransportError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, &TransportError{URL: req.URL, Err: fmt.Errorf("read body: %w", err)}
	}

	isJSON := isJSONContentType(resp.Header.Get("Content-Type"))

	switch {
	case resp.StatusCode == http.StatusNotFound && isJSON:
		// The backend answers "no data yet" with a 404 and a JSON body.
		if !json.Valid(data) {
			return Response{}, &MalformedResponseError{Status: resp.StatusCode, Err: errors.New("invalid JSON body")}
		}
		return Response{Status: resp.StatusCode, Body: data}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Response{}, newProtocolError(resp.StatusCode, data)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return Response{Status: resp.StatusCode}, nil
	}
	if !json.Valid(data) {
		return Response{}, &MalformedResponseError{Status: resp.StatusCode, Err: errors.New("invalid JSON body")}
	}
	return Response{Status: resp.StatusCode, Body: data}, nil
}

type errorBody struct {
	Message     string `json:"message"`
	Error       string `json:"error"`
	ErrorDetail string `json:"error_detail"`
}

func newProtocolError(status int, data []byte) *ProtocolError {
	perr := &ProtocolError{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		perr.Message = strings.TrimSpace(body.Message)
		if perr.Message == "" {
			perr.Message = strings.TrimSpace(body.Error)
		}
		perr.Detail = strings.TrimSpace(body.ErrorDetail)
		perr.FromServer = perr.Message != ""
	}
	if perr.Message == "" {
		perr.Message = fmt.Sprintf("HTTP Error %d", status)
	}
	return perr
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(strings.ToLower(ct), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func outcome(err error) string {
	var (
		terr *TransportError
		perr *ProtocolError
		merr *MalformedResponseError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &terr):
		return "transport_error"
	case errors.As(err, &perr):
		return "protocol_error"
	case errors.As(err, &merr):
		return "malformed_response"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
