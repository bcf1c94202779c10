// Package fingerprint computes the content-addressed key used to
// deduplicate submissions (spec §3): a deterministic hash of the raw
// uploaded bytes plus the normalized option set that materially affects
// transcription output.
//
// Go Pattern: hash.Hash satisfies io.Writer, so we can stream bytes through
// it incrementally instead of buffering the whole payload — the same shape
// as middleware.HashAPIKey, generalized from a single string to a streaming
// io.Writer chain.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"

	"github.com/ternarybob/transcribe-service/internal/models"
)

// Writer incrementally hashes a byte stream. Call Write (directly, or by
// using it as an io.Writer target for io.Copy/io.TeeReader) for every chunk
// of audio as it is streamed to the Blob Store, then Finish with the
// options that participate in the fingerprint.
type Writer struct {
	h hash.Hash
}

// New returns a fresh incremental fingerprint writer.
func New() *Writer {
	return &Writer{h: sha256.New()}
}

// Write implements io.Writer so the fingerprint can be computed via
// io.TeeReader/io.MultiWriter while the blob is streamed to storage.
func (w *Writer) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

var _ io.Writer = (*Writer)(nil)

// Finish folds in the normalized option set and returns the final
// fingerprint as lowercase hex. Two submissions that differ only in
// filename or caller identity produce the same fingerprint — those fields
// are deliberately excluded here.
func (w *Writer) Finish(opts models.Options) string {
	// Fold in options after the body so that a differently-optioned
	// identical upload produces a different hash, per spec §3.
	if opts.Language != "" {
		w.h.Write([]byte("\x00lang="))
		w.h.Write([]byte(opts.Language))
	}
	if opts.VADFilter {
		w.h.Write([]byte("\x00vad=1"))
	}
	if opts.InitialPrompt != "" {
		w.h.Write([]byte("\x00prompt="))
		w.h.Write([]byte(opts.InitialPrompt))
	}
	return hex.EncodeToString(w.h.Sum(nil))
}
