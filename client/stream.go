package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/adamwoolhether/apiclient/client/download"
)

// ErrBinaryStreamClosed is returned by reads after Close.
var ErrBinaryStreamClosed = errors.New("binary stream closed")

// BinaryStream is an undecoded successful streaming response, such as
// synthesized audio. Close releases the connection and is idempotent.
type BinaryStream struct {
	StatusCode int
	Header     http.Header
	RequestID  string

	body    io.ReadCloser
	release func()
	logger  *slog.Logger
	read    int64

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Read reads raw bytes from the response body. The stream closes itself
// once the body is exhausted or fails.
func (b *BinaryStream) Read(p []byte) (int, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return 0, ErrBinaryStreamClosed
	}

	n, err := b.body.Read(p)
	b.read += int64(n)
	if err != nil {
		b.Close()
	}
	return n, err
}

// Body exposes the stream as an io.ReadCloser.
func (b *BinaryStream) Body() io.ReadCloser {
	return b
}

// ContentLength returns the declared length, or -1 when unknown.
func (b *BinaryStream) ContentLength() int64 {
	n, err := strconv.ParseInt(b.Header.Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// SaveTo writes the remaining body to path and closes the stream.
func (b *BinaryStream) SaveTo(ctx context.Context, path string, opts ...DownloadOption) error {
	defer b.Close()

	remaining := b.ContentLength()
	if remaining >= 0 {
		remaining -= b.read
	}

	if err := download.Save(ctx, b, remaining, path, b.logger, opts...); err != nil {
		return fmt.Errorf("saving stream: %w", err)
	}
	return nil
}

func (b *BinaryStream) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		b.closeErr = b.body.Close()
		if b.release != nil {
			b.release()
		}
	})
	return b.closeErr
}
