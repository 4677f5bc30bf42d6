package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/apiclient/client/apierr"
	"github.com/adamwoolhether/apiclient/client/metrics"
	"github.com/adamwoolhether/apiclient/client/retry"
	"github.com/adamwoolhether/apiclient/client/sse"
	"github.com/adamwoolhether/apiclient/client/throttle"
	"github.com/adamwoolhether/apiclient/client/validate"
)

const tracerName = "github.com/adamwoolhether/apiclient/client"

// Client issues calls against the remote API. It is safe for
// concurrent use; only Settings are shared between calls.
type Client struct {
	c       *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	limiter *throttle.Limiter
	metrics *metrics.Collector
	source  retry.Source
	limits  validate.Limits
	sleep   func(context.Context, time.Duration) error

	mu       sync.RWMutex
	settings Settings

	warnMu sync.Mutex
	warned map[string]struct{}
}

// Build creates a Client from the default settings plus optFns.
func Build(optFns ...Option) (*Client, error) {
	opts := options{settings: defaultSettings()}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		c:        &http.Client{},
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		source:   retry.DefaultSource(),
		limits:   validate.DefaultLimits,
		sleep:    sleep,
		settings: opts.settings,
		warned:   make(map[string]struct{}),
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}
	if opts.logger != nil {
		client.logger = opts.logger
	}
	if opts.tracer != nil {
		client.tracer = opts.tracer
	}
	if opts.source != nil {
		client.source = opts.source
	}
	if opts.limits != nil {
		client.limits = *opts.limits
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	client.c.Transport = transport

	if opts.throttle != nil {
		l, err := throttle.New(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger })
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		client.limiter = l
	}

	if opts.registerer != nil {
		m, err := metrics.New(opts.registerer)
		if err != nil {
			return nil, fmt.Errorf("configuring metrics: %w", err)
		}
		client.metrics = m
	}

	return client, nil
}

// Request performs a buffered call. spec.Response must not be KindStream;
// use RequestStream or RequestBinaryStream for streaming.
func (c *Client) Request(ctx context.Context, spec RequestSpec) (*Response, error) {
	if spec.Response == KindStream {
		return nil, apierr.NewValidation("stream responses require RequestStream or RequestBinaryStream", nil)
	}

	ex, err := c.execute(ctx, spec)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: ex.resp.StatusCode,
		Header:     ex.resp.Header,
		RequestID:  apierr.RequestID(ex.resp.Header),
		Body:       ex.body,
		Data:       decodeData(spec.Response, ex.body),
	}, nil
}

// RequestStream performs a call whose body is decoded as an event
// stream. The caller must consume the stream to the end or Close it.
func (c *Client) RequestStream(ctx context.Context, spec RequestSpec) (*sse.Stream, error) {
	spec.Response = KindStream
	spec.Headers = withDefaultHeader(spec.Headers, "Accept", "text/event-stream")

	ex, err := c.execute(ctx, spec)
	if err != nil {
		return nil, err
	}

	return sse.NewStream(ex.resp.Body, ex.resp.StatusCode, ex.resp.Header, apierr.RequestID(ex.resp.Header), ex.release), nil
}

// RequestBinaryStream performs a call whose body is handed over
// undecoded. The caller must read it to the end or Close it.
func (c *Client) RequestBinaryStream(ctx context.Context, spec RequestSpec) (*BinaryStream, error) {
	spec.Response = KindStream

	ex, err := c.execute(ctx, spec)
	if err != nil {
		return nil, err
	}

	return &BinaryStream{
		StatusCode: ex.resp.StatusCode,
		Header:     ex.resp.Header,
		RequestID:  apierr.RequestID(ex.resp.Header),
		body:       ex.resp.Body,
		release:    ex.release,
		logger:     c.logger,
	}, nil
}

// warnOnce logs msg the first time key is seen by this Client.
func (c *Client) warnOnce(key, msg string, args ...any) {
	c.warnMu.Lock()
	_, seen := c.warned[key]
	if !seen {
		c.warned[key] = struct{}{}
	}
	c.warnMu.Unlock()

	if !seen {
		c.logger.Warn(msg, args...)
	}
}

func withDefaultHeader(h http.Header, key, value string) http.Header {
	if h.Get(key) != "" {
		return h
	}

	cpy := h.Clone()
	if cpy == nil {
		cpy = make(http.Header)
	}
	cpy.Set(key, value)
	return cpy
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var errAttemptTimeout = fmt.Errorf("attempt timed out: %w", context.DeadlineExceeded)

// isAttemptTimeout reports whether ctx was cancelled by its attempt timer.
func isAttemptTimeout(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errAttemptTimeout)
}
