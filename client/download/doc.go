// Package download persists binary response streams, such as
// synthesized audio, to disk with optional checksum validation and
// progress reporting.
//
// [Save] writes the body to a temporary file alongside the destination
// path, then atomically renames it on success:
//
//	err := download.Save(ctx, stream, stream.ContentLength(), "/tmp/reply.mp3", logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//
// Most callers should use [github.com/adamwoolhether/apiclient/client.BinaryStream.SaveTo],
// which invokes Save with the stream's metadata.
package download
