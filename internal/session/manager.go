package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/pipeline"
	"github.com/photodrop/backend/internal/policy"
	"github.com/photodrop/backend/internal/storage"
	"github.com/photodrop/backend/internal/uploader"
)

// SubmissionMaxAge is how long to keep finished submissions before
// cleanup.
const SubmissionMaxAge = 30 * time.Minute

// ErrSubmissionInFlight is returned when a second submission is started
// while one is already running. The UI relies on this single-flight guard
// instead of any mid-pipeline cancellation.
var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// Progress bands per stage. Validation is cheap; preparation dominates.
const (
	progressValidated    = 5.0
	progressPrepared     = 75.0
	progressUploadedFull = 100.0
)

// Preparer runs the per-file preparation pipeline over a batch.
type Preparer interface {
	Prepare(ctx context.Context, batch []models.SelectedFile, onProgress pipeline.ProgressCallback) ([]models.ProcessedFile, error)
}

// Uploader submits a prepared batch to the remote endpoint.
type Uploader interface {
	Submit(ctx context.Context, files []models.ProcessedFile, onProgress uploader.ProgressFunc) error
}

// Recorder persists finished submissions to the audit log.
type Recorder interface {
	RecordSubmission(sub *models.Submission) error
}

// state holds a submission plus bookkeeping for cleanup.
type state struct {
	Submission   *models.Submission
	LastAccessed time.Time
}

// Manager owns the submission lifecycle: staging lookup, validation,
// preparation, upload, history. Exactly one submission runs at a time.
type Manager struct {
	mu          sync.RWMutex
	submissions map[string]*state
	activeID    string

	store    storage.Store
	preparer Preparer
	uploader Uploader
	recorder Recorder
	policy   policy.Policy
}

// NewManager creates a submission manager. recorder may be nil when no
// history store is configured.
func NewManager(store storage.Store, preparer Preparer, up Uploader, recorder Recorder, p policy.Policy) *Manager {
	return &Manager{
		submissions: make(map[string]*state),
		store:       store,
		preparer:    preparer,
		uploader:    up,
		recorder:    recorder,
		policy:      p,
	}
}

// StartSubmission begins the submit sequence for the staged files. It
// enforces the single-flight guard: while one submission is in flight, a
// second start attempt fails immediately.
func (m *Manager) StartSubmission(fileIDs []string) (*models.Submission, error) {
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("no files in submission")
	}

	// Resolve staged files up front so a bad ID fails the request, not
	// the background run.
	batch := make([]models.SelectedFile, 0, len(fileIDs))
	for _, id := range fileIDs {
		f, err := m.store.LoadSelected(id)
		if err != nil {
			return nil, fmt.Errorf("resolving staged file %s: %w", id, err)
		}
		batch = append(batch, f)
	}

	m.mu.Lock()
	if m.activeID != "" {
		m.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	m.cleanupLocked(SubmissionMaxAge)

	sub := models.NewSubmission(uuid.New().String(), fileIDs)
	sub.StartTime = time.Now().UnixMilli()
	m.submissions[sub.ID] = &state{Submission: sub, LastAccessed: time.Now()}
	m.activeID = sub.ID
	m.mu.Unlock()

	go m.run(sub.ID, batch)

	return sub, nil
}

// run executes one submission to completion or failure.
func (m *Manager) run(id string, batch []models.SelectedFile) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Submit %s] PANIC recovered: %v\n", id[:8], r)
			m.finish(id, models.SubmissionStatusError, "", fmt.Sprintf("submission panicked: %v", r))
		}
	}()

	ctx := context.Background()
	start := time.Now()
	fmt.Printf("[Submit %s] Starting submission of %d file(s)\n", id[:8], len(batch))

	// Validation: advisory per-file filtering. The accepted subset
	// proceeds; diagnostics are kept for the caller.
	m.update(id, func(s *models.Submission) {
		s.Status = models.SubmissionStatusValidating
		s.Stage = "validating"
	})

	report := pipeline.Validate(batch, m.policy)
	m.update(id, func(s *models.Submission) {
		s.Diagnostics = report.Diagnostics
		s.AcceptedCount = len(report.Accepted)
		s.Progress = progressValidated
	})

	if len(report.Accepted) == 0 {
		fmt.Printf("[Submit %s] No valid files in selection\n", id[:8])
		m.finish(id, models.SubmissionStatusError, models.ErrNoValidFiles, models.ErrNoValidFiles.Message())
		return
	}

	// Preparation: batch-fatal. One bad file aborts the whole selection.
	m.update(id, func(s *models.Submission) {
		s.Status = models.SubmissionStatusPreparing
		s.Stage = "preparing"
	})

	prepProgress := func(done, total int, stage string) {
		frac := float64(done) / float64(total)
		m.update(id, func(s *models.Submission) {
			s.Progress = progressValidated + (progressPrepared-progressValidated)*frac
			s.Stage = stage
		})
	}

	processed, err := m.preparer.Prepare(ctx, report.Accepted, prepProgress)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			fmt.Printf("[Submit %s] Pipeline failed on %s: %v\n", id[:8], stageErr.FileName, err)
			m.finish(id, models.SubmissionStatusError, stageErr.Kind, stageErr.Message())
		} else {
			fmt.Printf("[Submit %s] Pipeline failed: %v\n", id[:8], err)
			m.finish(id, models.SubmissionStatusError, "", err.Error())
		}
		return
	}

	var processedBytes int64
	for _, f := range processed {
		processedBytes += f.Size
	}
	m.update(id, func(s *models.Submission) {
		s.ProcessedBytes = processedBytes
		s.Progress = progressPrepared
	})

	// Upload: fatal to this attempt only; staged files survive for retry.
	m.update(id, func(s *models.Submission) {
		s.Status = models.SubmissionStatusUploading
		s.Stage = "uploading"
	})

	uploadProgress := func(frac float64) {
		m.update(id, func(s *models.Submission) {
			s.Progress = progressPrepared + (progressUploadedFull-progressPrepared)*frac
		})
	}

	if err := m.uploader.Submit(ctx, processed, uploadProgress); err != nil {
		var upErr *uploader.UploadError
		if errors.As(err, &upErr) {
			fmt.Printf("[Submit %s] Upload failed (%s): %s\n", id[:8], upErr.Kind, upErr.Message)
			m.finish(id, models.SubmissionStatusError, upErr.Kind, upErr.Message)
		} else {
			fmt.Printf("[Submit %s] Upload failed: %v\n", id[:8], err)
			m.finish(id, models.SubmissionStatusError, models.ErrNetwork, models.ErrNetwork.Message())
		}
		return
	}

	// Success: the staged batch is cleared. On failure it is kept so the
	// user can retry without re-selecting.
	for _, f := range report.Accepted {
		if f.ID == "" {
			continue
		}
		if err := m.store.Delete(f.ID); err != nil {
			fmt.Printf("[Submit %s] Warning: failed to clear staged file %s: %v\n", id[:8], f.ID, err)
		}
	}

	m.finish(id, models.SubmissionStatusComplete, "", "")
	fmt.Printf("[Submit %s] Complete: %d file(s), %d bytes in %v\n",
		id[:8], len(processed), processedBytes, time.Since(start).Round(time.Millisecond))
}

// update mutates a submission under the manager lock.
func (m *Manager) update(id string, fn func(*models.Submission)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.submissions[id]; ok {
		fn(s.Submission)
	}
}

// finish marks a submission terminal and releases the single-flight
// guard.
func (m *Manager) finish(id string, status models.SubmissionStatus, kind models.ErrorKind, errMsg string) {
	m.mu.Lock()
	s, ok := m.submissions[id]
	if ok {
		sub := s.Submission
		sub.Status = status
		sub.EndTime = time.Now().UnixMilli()
		if status == models.SubmissionStatusComplete {
			sub.Progress = progressUploadedFull
			sub.Stage = "done"
		} else {
			sub.Error = errMsg
			sub.ErrorKind = kind
		}
	}
	if m.activeID == id {
		m.activeID = ""
	}
	m.mu.Unlock()

	if ok && m.recorder != nil {
		if err := m.recorder.RecordSubmission(s.Submission); err != nil {
			fmt.Printf("[Submit %s] Warning: failed to record history: %v\n", id[:8], err)
		}
	}
}

// GetSubmission retrieves a submission by ID.
func (m *Manager) GetSubmission(id string) (*models.Submission, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, false
	}
	return s.Submission, true
}

// TouchSubmission extends a submission's lifetime while it is being
// viewed.
func (m *Manager) TouchSubmission(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if ok {
		s.LastAccessed = time.Now()
	}
	return ok
}

// InFlight reports whether a submission is currently running.
func (m *Manager) InFlight() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID != ""
}

// CleanupOldSubmissions drops finished submissions older than maxAge.
func (m *Manager) CleanupOldSubmissions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupLocked(maxAge)
}

func (m *Manager) cleanupLocked(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	for id, s := range m.submissions {
		sub := s.Submission
		if sub.Status != models.SubmissionStatusComplete && sub.Status != models.SubmissionStatusError {
			continue
		}
		if s.LastAccessed.Before(cutoff) {
			delete(m.submissions, id)
		}
	}
}
