package client

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultBaseURL    = "https://api.dify.ai/v1"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// Settings are the mutable tunables of a [Client]. Changes apply to
// attempts started after the change, never to one already dispatched.
type Settings struct {
	APIKey  string
	BaseURL string

	// Timeout bounds each attempt separately. Zero disables it.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Logging enables the per-retry and per-success log lines.
	Logging bool
}

func defaultSettings() Settings {
	return Settings{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Settings returns a snapshot of the current settings.
func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SetAPIKey replaces the key used for every subsequent attempt,
// including later attempts of calls already in their retry loop.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.APIKey = key
}

func (c *Client) SetBaseURL(raw string) error {
	if err := checkBaseURL(raw); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.BaseURL = raw
	return nil
}

func (c *Client) SetTimeout(d time.Duration) error {
	if d < 0 {
		return errors.New("timeout must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Timeout = d
	return nil
}

func (c *Client) SetMaxRetries(n int) error {
	if n < 0 {
		return errors.New("max retries must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.MaxRetries = n
	return nil
}

func (c *Client) SetRetryDelay(d time.Duration) error {
	if d < 0 {
		return errors.New("retry delay must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.RetryDelay = d
	return nil
}

func (c *Client) SetLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Logging = enabled
}

func (c *Client) apiKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.APIKey
}

func checkBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("base url must include a host")
	}
	return nil
}
