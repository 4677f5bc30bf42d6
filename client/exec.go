package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/apiclient/client/apierr"
	"github.com/adamwoolhether/apiclient/client/metrics"
	"github.com/adamwoolhether/apiclient/client/retry"
)

// exchange is a successful attempt. For buffered kinds body holds the
// full payload and resp.Body is already closed. For streams resp.Body
// is open and release must run once the caller is done with it.
type exchange struct {
	resp      *http.Response
	body      []byte
	requestID string
	release   func()
}

// prepared is the attempt-independent part of a call.
type prepared struct {
	method      string
	spec        RequestSpec
	payload     []byte
	contentType string
	requestID   string
}

// execute runs spec through the retry loop. Settings are re-read at the
// start of every attempt.
func (c *Client) execute(ctx context.Context, spec RequestSpec) (*exchange, error) {
	p, err := c.prepare(spec)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "apiclient "+p.method+" "+spec.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", p.method),
			attribute.String("url.path", spec.Path),
			attribute.String("apiclient.request_id", p.requestID),
		),
	)
	defer span.End()

	start := time.Now()
	for attempt := 0; ; attempt++ {
		s := c.Settings()

		ex, err := c.attempt(ctx, s, p)
		if err == nil {
			c.metrics.Attempt(p.method, metrics.OutcomeSuccess)
			c.metrics.Call(p.method, metrics.OutcomeSuccess, time.Since(start))
			span.SetAttributes(
				attribute.Int("http.response.status_code", ex.resp.StatusCode),
				attribute.Int("apiclient.attempts", attempt+1),
			)
			if s.Logging {
				c.logger.Info("request succeeded",
					"method", p.method, "path", spec.Path, "status", ex.resp.StatusCode,
					"attempts", attempt+1, "request_id", ex.requestID)
			}
			return ex, nil
		}

		kind := "unclassified"
		ae, _ := apierr.As(err)
		if ae != nil {
			kind = ae.Kind.String()
			if ae.RequestID == "" {
				ae.RequestID = p.requestID
			}
		}
		c.metrics.Attempt(p.method, kind)
		span.AddEvent("attempt failed", trace.WithAttributes(
			attribute.Int("apiclient.attempt", attempt+1),
			attribute.String("error.type", kind),
		))

		policy := retry.Policy{MaxRetries: s.MaxRetries, BaseDelay: s.RetryDelay, Source: c.source}
		if ctx.Err() != nil || !policy.ShouldRetry(err, attempt) {
			c.metrics.Call(p.method, kind, time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		var retryAfter time.Duration
		if ae != nil {
			retryAfter = ae.RetryAfter
		}
		delay := policy.Delay(attempt+1, retryAfter)
		c.metrics.Retry(kind)

		if s.Logging {
			c.logger.Warn("retrying request",
				"method", p.method, "path", spec.Path, "attempt", attempt+1,
				"max_retries", s.MaxRetries, "delay", delay.String(), "error", err)
		}

		if serr := c.sleep(ctx, delay); serr != nil {
			c.metrics.Call(p.method, kind, time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
}

// prepare runs the pre-flight checks and encodes the payload once so it
// can be replayed on every attempt.
func (c *Client) prepare(spec RequestSpec) (prepared, error) {
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return prepared{}, apierr.NewValidation(fmt.Sprintf("unsupported method %q", spec.Method), nil)
	}
	spec.Method = method

	if err := c.limits.Query(spec.Query); err != nil {
		return prepared{}, err
	}

	p := prepared{method: method, spec: spec}

	if spec.Body != nil && method == http.MethodGet {
		c.warnOnce("get-body", "request body ignored on GET", "path", spec.Path)
		p.spec.Body = nil
	}

	if p.spec.Body != nil {
		if jb, ok := p.spec.Body.(JSONBody); ok {
			if err := c.limits.Body(jb.Value); err != nil {
				return prepared{}, err
			}
		}

		payload, ct, err := p.spec.Body.encode()
		if err != nil {
			return prepared{}, apierr.NewValidation("invalid request body", err)
		}
		p.payload = payload
		p.contentType = ct
	}

	p.requestID = spec.Headers.Get("X-Request-ID")
	if p.requestID == "" {
		p.requestID = uuid.NewString()
	}

	return p, nil
}

// attempt performs one round trip inside its own cancellation scope.
// The scope's timer covers the throttle wait, the round trip and, for
// buffered kinds, the body read.
func (c *Client) attempt(ctx context.Context, s Settings, p prepared) (*exchange, error) {
	actx, cancel := context.WithCancelCause(ctx)

	var timer *time.Timer
	if s.Timeout > 0 {
		timer = time.AfterFunc(s.Timeout, func() { cancel(errAttemptTimeout) })
	}
	release := func() {
		if timer != nil {
			timer.Stop()
		}
		cancel(nil)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(actx, p.spec.Path); err != nil {
			release()
			return nil, transportError(actx, err)
		}
	}

	req, err := c.newRequest(actx, s, p)
	if err != nil {
		release()
		return nil, err
	}

	resp, err := c.c.Do(req)
	if err != nil {
		release()
		return nil, transportError(actx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer release()
		defer c.closeBody(resp.Body)

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			return nil, transportError(actx, err)
		}

		return nil, apierr.Classify(apierr.Outcome{
			Path:       p.spec.Path,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		})
	}

	requestID := apierr.RequestID(resp.Header)
	if requestID == "" {
		requestID = p.requestID
	}

	if p.spec.Response == KindStream {
		// The attempt timer bounds time to headers only.
		if timer != nil && !timer.Stop() {
			c.closeBody(resp.Body)
			release()
			return nil, transportError(actx, errAttemptTimeout)
		}
		return &exchange{resp: resp, requestID: requestID, release: release}, nil
	}

	defer release()
	defer c.closeBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(actx, fmt.Errorf("reading body: %w", err))
	}

	return &exchange{resp: resp, body: body, requestID: requestID}, nil
}

// newRequest builds the outgoing request for one attempt. Authorization
// is set last so a caller header never overrides the configured key.
func (c *Client) newRequest(ctx context.Context, s Settings, p prepared) (*http.Request, error) {
	u, err := resolveURL(s.BaseURL, p.spec.Path, p.spec.Query)
	if err != nil {
		return nil, apierr.NewValidation("invalid request url", err)
	}
	if u.Scheme == "http" && s.APIKey != "" {
		c.warnOnce("plaintext", "sending api key over plaintext http", "host", u.Host)
	}

	var body io.Reader
	if p.payload != nil {
		body = bytes.NewReader(p.payload)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, u.String(), body)
	if err != nil {
		return nil, apierr.NewValidation("invalid request", err)
	}

	if p.spec.Headers != nil {
		req.Header = p.spec.Headers.Clone()
	}
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}
	req.Header.Set("X-Request-ID", p.requestID)
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

// closeBody drains what is left of body so the connection can be
// reused, then closes it.
func (c *Client) closeBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, io.LimitReader(body, maxErrBodySize)); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("failed to discard response body", "error", err)
	}
	if err := body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}

// transportError classifies a failure that produced no usable response,
// naming the attempt timer when it was the reason actx ended.
func transportError(actx context.Context, err error) *apierr.Error {
	if isAttemptTimeout(actx) && !errors.Is(err, errAttemptTimeout) {
		err = fmt.Errorf("%w: %w", errAttemptTimeout, err)
	}

	return apierr.Classify(apierr.Outcome{Err: err})
}
