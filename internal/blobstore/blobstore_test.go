package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

func newTestStore(t *testing.T, maxFileSize int64) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, maxFileSize)
	if err != nil {
		t.Fatalf("New(%q) unexpected error: %v", dir, err)
	}
	return s
}

// TestStore_PutOpenRoundtrip verifies a blob written via Put can be read
// back byte-for-byte via Open.
func TestStore_PutOpenRoundtrip(t *testing.T) {
	s := newTestStore(t, 1<<20)
	body := "some audio bytes"

	size, fp, err := s.Put("job-1", strings.NewReader(body), models.Options{})
	if err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}
	if size != int64(len(body)) {
		t.Errorf("Put() size = %d, want %d", size, len(body))
	}
	if fp == "" {
		t.Error("Put() returned an empty fingerprint")
	}

	f, err := s.Open("job-1")
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll() unexpected error: %v", err)
	}
	if string(got) != body {
		t.Errorf("Open() content = %q, want %q", got, body)
	}
}

// TestStore_PutEnforcesMaxFileSize verifies oversized uploads are rejected
// with a PayloadTooLarge error and leave no blob behind.
func TestStore_PutEnforcesMaxFileSize(t *testing.T) {
	s := newTestStore(t, 4)

	_, _, err := s.Put("job-big", strings.NewReader("way too much data"), models.Options{})
	if err == nil {
		t.Fatal("Put() expected an error for an oversized upload, got nil")
	}
	if apierr.As(err).Kind != apierr.PayloadTooLarge {
		t.Errorf("Put() error kind = %v, want %v", apierr.As(err).Kind, apierr.PayloadTooLarge)
	}

	if _, err := s.Open("job-big"); err == nil {
		t.Error("expected no blob to exist after a rejected oversized upload")
	}
	if _, err := os.Stat(s.tmpPath("job-big")); !os.IsNotExist(err) {
		t.Error("expected the temp file to be cleaned up after a rejected upload")
	}
}

// TestStore_OpenMissingReturnsBlobMissing verifies Open on a nonexistent
// job_id reports the BlobMissing taxonomy kind rather than a raw os error.
func TestStore_OpenMissingReturnsBlobMissing(t *testing.T) {
	s := newTestStore(t, 1<<20)

	_, err := s.Open("never-existed")
	if err == nil {
		t.Fatal("Open() expected an error, got nil")
	}
	if apierr.As(err).Kind != apierr.BlobMissing {
		t.Errorf("Open() error kind = %v, want %v", apierr.As(err).Kind, apierr.BlobMissing)
	}
}

// TestStore_DeleteIsIdempotent verifies deleting a blob twice (or one that
// never existed) is not an error.
func TestStore_DeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t, 1<<20)

	if _, _, err := s.Put("job-del", strings.NewReader("x"), models.Options{}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	if err := s.Delete("job-del"); err != nil {
		t.Fatalf("first Delete() unexpected error: %v", err)
	}
	if err := s.Delete("job-del"); err != nil {
		t.Fatalf("second Delete() on an already-deleted blob unexpected error: %v", err)
	}
	if err := s.Delete("job-never-existed"); err != nil {
		t.Fatalf("Delete() of a never-existing blob unexpected error: %v", err)
	}
}

// TestStore_SweepRemovesOnlyOldBlobs verifies Sweep only removes blob files
// older than the given cutoff, leaving recent ones untouched.
func TestStore_SweepRemovesOnlyOldBlobs(t *testing.T) {
	s := newTestStore(t, 1<<20)

	if _, _, err := s.Put("old-job", strings.NewReader("x"), models.Options{}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}
	if _, _, err := s.Put("fresh-job", strings.NewReader("x"), models.Options{}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	oldPath := filepath.Join(s.Dir, "old-job.blob")
	staleTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, staleTime, staleTime); err != nil {
		t.Fatalf("Chtimes() unexpected error: %v", err)
	}

	n, err := s.Sweep(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Sweep() unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep() removed %d blobs, want 1", n)
	}

	if _, err := s.Open("old-job"); err == nil {
		t.Error("expected old-job's blob to be removed by Sweep")
	}
	if _, err := s.Open("fresh-job"); err != nil {
		t.Errorf("expected fresh-job's blob to survive Sweep, got error: %v", err)
	}
}
