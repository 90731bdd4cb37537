// Package thumbnail implements the page screenshot / Open Graph image
// pipeline described in spec.md §4.6: a persisted job queue with
// enqueue-supersedes semantics, two bounded worker pools, fixed retry
// backoff, and an SVG placeholder fallback once retries are exhausted.
// Grounded on original_source/backend/app/services/thumbnail_queue.py's
// ThumbnailQueue.
package thumbnail

import "time"

// JobType distinguishes the two capture sizes a page gets rendered at.
type JobType string

const (
	JobThumbnail JobType = "thumbnail"
	JobOGImage   JobType = "og_image"
)

// JobStatus is a Job's lifecycle state.
type JobStatus string

const (
	StatusQueued  JobStatus = "queued"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// Job is one persisted capture request. Grounded on ThumbnailJob (the
// source's SQLAlchemy model, read via thumbnail_queue.py's usage since
// the model file itself fell outside the filtered original_source).
type Job struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	PageID      string    `json:"page_id"`
	Type        JobType   `json:"type"`
	Status      JobStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	NextRunAt   time.Time `json:"next_run_at"`
	LastError   string    `json:"last_error,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Viewport/output-size pairs. Ported verbatim from thumbnail_queue.py's
// module constants.
var (
	ThumbnailViewport = Dimensions{375, 667}
	ThumbnailSize     = Dimensions{300, 600}
	OGViewport        = Dimensions{1200, 630}
	OGSize            = Dimensions{1200, 630}
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// MaxConcurrent bounds how many jobs of one JobType run at once.
const MaxConcurrent = 2

// BackoffSeconds is the fixed retry delay schedule; attempt N waits
// BackoffSeconds[min(N-1, len-1)] seconds before the next try.
var BackoffSeconds = []int{30, 45, 60}

func backoffDelay(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	idx := attempts - 1
	if idx >= len(BackoffSeconds) {
		idx = len(BackoffSeconds) - 1
	}
	return time.Duration(BackoffSeconds[idx]) * time.Second
}
