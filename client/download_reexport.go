package client

import (
	"hash"

	"github.com/adamwoolhether/apiclient/client/download"
)

// --------------------------------------------------------------------
// Re-exports from [download] for BinaryStream.SaveTo.
// --------------------------------------------------------------------

type (
	// DownloadOption configures [BinaryStream.SaveTo].
	DownloadOption = download.Option

	// DownloadError wraps a sentinel error with additional detail.
	DownloadError = download.Error
)

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled indicates the save was cancelled via context.
	ErrDownloadCancelled = download.ErrCancelled
)

// WithChecksum verifies the saved bytes against the hex-encoded digest
// h (e.g. sha256.New()) should produce.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return download.WithChecksum(h, expected)
}

// WithProgress logs transfer progress while saving.
func WithProgress() DownloadOption { return download.WithProgress() }

// WithSkipExisting makes SaveTo a no-op when the destination exists.
func WithSkipExisting() DownloadOption { return download.WithSkipExisting() }
