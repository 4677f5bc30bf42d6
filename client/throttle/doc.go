// Package throttle rate-limits outbound attempts using a token-bucket
// algorithm from [golang.org/x/time/rate].
//
// # Usage
//
//	l, err := throttle.New(
//		10, // attempts per second
//		5,  // burst capacity
//		func() *slog.Logger { return slog.Default() },
//	)
//	if err := l.Wait(ctx, "/chat-messages"); err != nil {
//		// ctx ended before a token was available
//	}
//
// The client calls Wait before every attempt, retries included, inside
// the attempt's timeout scope.
package throttle
