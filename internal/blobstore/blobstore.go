// Package blobstore provides temporary filesystem storage for uploaded
// audio, keyed by job id, with TTL-based sweeping (spec §4.1).
//
// Go Pattern: this is the only filesystem-bearing component — everything
// else addresses blobs by job_id. Writes land in a sibling `.tmp` file and
// are then renamed into place, which is atomic on the same filesystem and
// keeps concurrent readers from ever observing a partial write — the same
// durability goal the teacher's migration runner gets from Postgres
// transactions, achieved here with os.Rename instead.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/fingerprint"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// Store is a filesystem-backed blob store rooted at Dir.
type Store struct {
	Dir         string
	MaxFileSize int64 // bytes
}

// New creates a Store rooted at dir, creating it if necessary.
func New(dir string, maxFileSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{Dir: dir, MaxFileSize: maxFileSize}, nil
}

func (s *Store) path(jobID string) string {
	// job_id is a uuid.New().String() — safe as a bare filename, but we
	// still run it through filepath.Base defensively in case a future
	// caller ever derives job_id from user input.
	return filepath.Join(s.Dir, filepath.Base(jobID)+".blob")
}

func (s *Store) tmpPath(jobID string) string {
	return filepath.Join(s.Dir, filepath.Base(jobID)+".tmp")
}

// Put streams src to storage under job_id, enforcing MaxFileSize before the
// full body is read (spec §4.6 step 2). It returns the fingerprint of the
// exact bytes plus opts, computed incrementally as the bytes are written.
func (s *Store) Put(jobID string, src io.Reader, opts models.Options) (size int64, fp string, err error) {
	tmp := s.tmpPath(jobID)
	f, err := os.Create(tmp)
	if err != nil {
		return 0, "", apierr.Wrap(apierr.IOError, "failed to stage upload", err)
	}
	defer os.Remove(tmp) // no-op once renamed; cleans up on any failure path

	fpw := fingerprint.New()
	limited := io.LimitReader(src, s.MaxFileSize+1)
	n, err := io.Copy(f, io.TeeReader(limited, fpw))
	if err != nil {
		f.Close()
		return 0, "", apierr.Wrap(apierr.IOError, "failed to write upload", err)
	}
	if cerr := f.Close(); cerr != nil {
		return 0, "", apierr.Wrap(apierr.IOError, "failed to finalize upload", cerr)
	}
	if n > s.MaxFileSize {
		return 0, "", apierr.New(apierr.PayloadTooLarge, "upload exceeds the configured size cap")
	}

	if err := os.Rename(tmp, s.path(jobID)); err != nil {
		return 0, "", apierr.Wrap(apierr.IOError, "failed to commit upload", err)
	}
	return n, fpw.Finish(opts), nil
}

// Open returns a reader for job_id's blob. Callers must Close it.
func (s *Store) Open(jobID string) (*os.File, error) {
	f, err := os.Open(s.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierr.New(apierr.BlobMissing, "blob not found")
		}
		return nil, apierr.Wrap(apierr.IOError, "failed to open blob", err)
	}
	return f, nil
}

// Delete removes job_id's blob. A missing blob is not an error — deletion
// is idempotent, matching spec invariant 5 (terminal jobs are eligible for
// cleanup, not guaranteed to still have a blob).
func (s *Store) Delete(jobID string) error {
	err := os.Remove(s.path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return apierr.Wrap(apierr.IOError, "failed to delete blob", err)
	}
	return nil
}

// Sweep deletes blobs whose file is older than olderThan, returning the
// count removed. Used by the Janitor for the hard-cap forced cleanup (spec
// §4.9); its terminal-state sweep deletes blobs one job at a time via Delete.
func (s *Store) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, apierr.Wrap(apierr.IOError, "failed to list upload dir", err)
	}

	cutoff := time.Now().Add(-olderThan)
	count := 0
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".blob" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.Dir, entry.Name())); err == nil {
				count++
			}
		}
	}
	return count, nil
}

// LimitRequestBody wraps r with http.MaxBytesReader so oversize uploads are
// rejected before the full body is read, per spec §4.6 step 2. w is the
// response writer the standard library needs to enforce the cap.
func LimitRequestBody(w http.ResponseWriter, r io.ReadCloser, maxFileSize int64) io.ReadCloser {
	return http.MaxBytesReader(w, r, maxFileSize)
}
