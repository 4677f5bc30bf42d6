package client

import (
	"context"
	"time"
)

// SetSleep replaces the wait between retries.
func (c *Client) SetSleep(fn func(context.Context, time.Duration) error) {
	c.sleep = fn
}
