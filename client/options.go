package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/apiclient/client/retry"
	"github.com/adamwoolhether/apiclient/client/throttle"
	"github.com/adamwoolhether/apiclient/client/validate"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	settings          Settings
	client            *http.Client
	rt                http.RoundTripper
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	tracer            trace.Tracer
	source            retry.Source
	limits            *validate.Limits
	registerer        prometheus.Registerer
}

// WithAPIKey sets the key sent as a bearer token.
func WithAPIKey(key string) Option {
	return func(o *options) error {
		o.settings.APIKey = key
		return nil
	}
}

// WithBaseURL sets the URL every RequestSpec path is joined to.
func WithBaseURL(raw string) Option {
	return func(o *options) error {
		if err := checkBaseURL(raw); err != nil {
			return err
		}
		o.settings.BaseURL = raw
		return nil
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.settings.Timeout = d
		return nil
	}
}

// WithMaxRetries sets how many retries follow the first attempt.
func WithMaxRetries(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max retries must not be negative")
		}
		o.settings.MaxRetries = n
		return nil
	}
}

// WithRetryDelay sets the base of the exponential backoff.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("retry delay must not be negative")
		}
		o.settings.RetryDelay = d
		return nil
	}
}

// WithLogging enables retry and success log lines.
func WithLogging(enabled bool) Option {
	return func(o *options) error {
		o.settings.Logging = enabled
		return nil
	}
}

// WithClient replaces the default [http.Client] used by the [Client].
// Its Timeout should be zero; attempts are bounded by [WithTimeout] and
// a client-wide timeout would also cut off streams.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of attempts.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTracer overrides the tracer obtained from the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithRandSource sets the jitter source used by the retry backoff.
func WithRandSource(src retry.Source) Option {
	return func(o *options) error {
		if src == nil {
			return errors.New("rand source must not be nil")
		}
		o.source = src
		return nil
	}
}

// WithValidationLimits overrides the pre-flight size limits.
func WithValidationLimits(l validate.Limits) Option {
	return func(o *options) error {
		o.limits = &l
		return nil
	}
}

// WithMetrics records attempt, retry and call series on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return errors.New("registerer must not be nil")
		}
		o.registerer = reg
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
