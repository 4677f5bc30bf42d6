// Package apiclient exposes the client builder.
package apiclient

import (
	"github.com/adamwoolhether/apiclient/client"
)

// NewClient instantiates a new *client.Client with the provided options.
// Unset options fall back to the client package defaults.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
