// Package submission is the Submission Service (spec §4.6): the entry
// point for new work, generalizing handlers.TranscribeAudio's
// upload-validate-persist shape with the content-addressed cache-hit path
// and Work Queue push the teacher's synchronous design didn't need.
package submission

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/blobstore"
	"github.com/ternarybob/transcribe-service/internal/cache"
	"github.com/ternarybob/transcribe-service/internal/models"
	"github.com/ternarybob/transcribe-service/internal/queue"
	"github.com/ternarybob/transcribe-service/internal/registry"
	"github.com/ternarybob/transcribe-service/internal/telemetry"
)

// allowedMediaTypes is the accepted set named in spec §6: audio containers
// only, detected by declared content-type.
var allowedMediaTypes = map[string]bool{
	"audio/mpeg":      true,
	"audio/mp3":       true,
	"audio/wav":       true,
	"audio/x-wav":     true,
	"audio/m4a":       true,
	"audio/x-m4a":     true,
	"audio/mp4":       true,
	"audio/flac":      true,
	"audio/x-flac":    true,
	"audio/ogg":       true,
	"audio/webm":      true,
}

// Service implements Submit, the single entry point for new work.
type Service struct {
	Blobs    *blobstore.Store
	Registry *registry.Registry
	Cache    *cache.Cache
	Queue    *queue.Queue
	Telem    *telemetry.Telemetry
}

// New builds a Submission Service from its four backing components.
func New(blobs *blobstore.Store, reg *registry.Registry, c *cache.Cache, q *queue.Queue, t *telemetry.Telemetry) *Service {
	return &Service{Blobs: blobs, Registry: reg, Cache: c, Queue: q, Telem: t}
}

// Submit implements spec.md §4.6's seven ordered steps. Rate-limit
// acquisition (step 1) happens in middleware before this is called — by
// the time Submit runs, the caller has already acquired a submission
// token.
func (s *Service) Submit(ctx context.Context, callerID, filename, contentType string, body io.Reader, opts models.Options) (*models.SubmitResponse, error) {
	// Step 3: validate declared media type before we read any bytes.
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if !allowedMediaTypes[mediaType] {
		s.Telem.RequestsTotal.WithLabelValues("rejected").Inc()
		return nil, apierr.New(apierr.UnsupportedMedia, "unsupported audio media type: "+mediaType)
	}

	jobID := uuid.New().String()

	// Step 4: stream to the Blob Store under the provisional job_id,
	// fingerprinting incrementally. blobstore.Put enforces the size cap
	// (step 2) with its own read limit; the handler also wraps the request
	// body in http.MaxBytesReader (see MaxBytesReader below).
	size, fingerprint, err := s.Blobs.Put(jobID, body, opts)
	if err != nil {
		s.Telem.RequestsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if size == 0 {
		s.Telem.RequestsTotal.WithLabelValues("rejected").Inc()
		return nil, apierr.New(apierr.BadRequest, "empty audio upload")
	}

	// Step 5: consult the Result Cache by fingerprint.
	if transcript, err := s.Cache.Lookup(ctx, fingerprint); err == nil && transcript != nil {
		s.Telem.CacheHits.Inc()
		_ = s.Blobs.Delete(jobID) // 5a: delete the provisional blob

		job := &models.Job{
			JobID:        jobID,
			State:        models.Completed,
			Fingerprint:  fingerprint,
			Filename:     filename,
			SubmittedAt:  time.Now(),
			Options:      opts,
			ResultHandle: fingerprint,
			CallerID:     callerID,
		}
		now := time.Now()
		job.StartedAt = &now
		job.FinishedAt = &now
		if err := s.Registry.CreateJob(ctx, job); err != nil {
			return nil, apierr.Wrap(apierr.RegistryUnavailable, "failed to record cached job", err)
		}

		s.Telem.RequestsTotal.WithLabelValues("cached").Inc()
		return &models.SubmitResponse{JobID: jobID, State: models.Completed}, nil
	} else if err == nil {
		s.Telem.CacheMisses.Inc()
	}

	// Step 5b: a cache miss doesn't rule out an in-flight duplicate — join
	// an already Queued/Processing job for the same fingerprint instead of
	// enqueueing a second execution of identical work.
	if live, err := s.Registry.FindLiveByFingerprint(ctx, fingerprint); err == nil {
		_ = s.Blobs.Delete(jobID) // this submission's own blob is redundant
		s.Telem.RequestsTotal.WithLabelValues("joined").Inc()
		return &models.SubmitResponse{JobID: live.JobID, State: live.State}, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.Wrap(apierr.RegistryUnavailable, "failed to check for an in-flight job", err)
	}

	// Step 6: enroll as Queued, push onto the Work Queue.
	job := &models.Job{
		JobID:       jobID,
		State:       models.Queued,
		Fingerprint: fingerprint,
		Filename:    filename,
		SubmittedAt: time.Now(),
		Options:     opts,
		CallerID:    callerID,
	}
	if err := s.Registry.CreateJob(ctx, job); err != nil {
		_ = s.Blobs.Delete(jobID)
		return nil, apierr.Wrap(apierr.RegistryUnavailable, "failed to record job", err)
	}
	if err := s.Queue.Push(ctx, jobID); err != nil {
		return nil, err
	}

	s.Telem.RequestsTotal.WithLabelValues("submitted").Inc()

	// Step 7
	return &models.SubmitResponse{JobID: jobID, State: models.Queued}, nil
}

// MaxBytesReader enforces the submission cap before the full body is read
// (spec §4.6 step 2), delegating to blobstore's thin wrapper around the
// standard library's http.MaxBytesReader.
func MaxBytesReader(w http.ResponseWriter, r io.ReadCloser, maxFileSize int64) io.ReadCloser {
	return blobstore.LimitRequestBody(w, r, maxFileSize)
}
