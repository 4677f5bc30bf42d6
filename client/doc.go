// Package client provides the request engine behind the API client,
// built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithAPIKey(os.Getenv("API_KEY")),
//		client.WithTimeout(30 * time.Second),
//		client.WithMaxRetries(5),
//	)
//
// Settings can be changed afterwards with [Client.SetAPIKey] and the
// other setters. A change applies to the next attempt, including
// retries of calls already in flight.
//
// # Making Requests
//
// Describe a call with a [RequestSpec] and execute it with
// [Client.Request]:
//
//	resp, err := c.Request(ctx, client.RequestSpec{
//		Method: http.MethodPost,
//		Path:   "/chat-messages",
//		Body:   client.JSONBody{Value: payload},
//	})
//
// Transient failures (network errors, attempt timeouts, 429) are retried
// with exponential backoff; a 429 Retry-After hint replaces the backoff.
// Every failure is an [*apierr.Error]; match its kind with errors.Is:
//
//	if errors.Is(err, apierr.ErrRateLimit) { ... }
//
// # Streaming
//
// [Client.RequestStream] decodes a text/event-stream response into
// events. The stream must be consumed or closed:
//
//	s, err := c.RequestStream(ctx, spec)
//	if err != nil { ... }
//	for ev, err := range s.All() { ... }
//
// [Client.RequestBinaryStream] hands over raw bytes, for example audio,
// which can be written to disk with [BinaryStream.SaveTo]:
//
//	b, err := c.RequestBinaryStream(ctx, spec)
//	err = b.SaveTo(ctx, "/tmp/reply.mp3", client.WithProgress())
//
// For lower-level control see the
// [github.com/adamwoolhether/apiclient/client/sse] and
// [github.com/adamwoolhether/apiclient/client/download] packages.
package client
