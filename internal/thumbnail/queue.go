package thumbnail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"
	"golang.org/x/sync/semaphore"

	"github.com/antigravity-dev/webforge/internal/ports"
)

// CaptureTimeout bounds how long a single screenshot may take. Ported
// from CAPTURE_TIMEOUT_MS.
const CaptureTimeout = 30 * time.Second

// PageSource resolves the live content a capture job needs to render.
// Grounded on thumbnail_queue.py's _process_thumbnail_job reading
// ProjectPage directly; this repo keeps page content in
// internal/orchestrator's Session rather than a ProjectPage table, so
// the queue depends on this narrower seam instead.
type PageSource interface {
	PageContent(ctx context.Context, projectID, pageID string) (html, name string, design DesignSystem, err error)
}

// Queue runs the persisted capture pipeline: two worker pools (one per
// JobType), each bounded to MaxConcurrent in-flight jobs, polling on a
// cron schedule rather than the source's asyncio sleep loop. Grounded on
// thumbnail_queue.py's ThumbnailQueue.
type Queue struct {
	Store   *Store
	Pages   PageSource
	Blobs   ports.BlobStore
	Browser ports.BrowserFactory
	Logger  *slog.Logger

	thumbnailSem *semaphore.Weighted
	ogSem        *semaphore.Weighted
	cron         *cron.Cron
}

// NewQueue wires a Queue from its dependencies.
func NewQueue(store *Store, pages PageSource, blobs ports.BlobStore, browser ports.BrowserFactory, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		Store:        store,
		Pages:        pages,
		Blobs:        blobs,
		Browser:      browser,
		Logger:       logger,
		thumbnailSem: semaphore.NewWeighted(MaxConcurrent),
		ogSem:        semaphore.NewWeighted(MaxConcurrent),
	}
}

// EnqueueThumbnail queues a thumbnail capture for (projectID, pageID),
// superseding any job already in flight for that page.
func (q *Queue) EnqueueThumbnail(ctx context.Context, projectID, pageID string) error {
	_, err := q.Store.Enqueue(ctx, projectID, pageID, JobThumbnail, 0)
	return err
}

// EnqueueOGImage queues an Open Graph image capture.
func (q *Queue) EnqueueOGImage(ctx context.Context, projectID, pageID string) error {
	_, err := q.Store.Enqueue(ctx, projectID, pageID, JobOGImage, 0)
	return err
}

// Start launches the cron-scheduled sweep that claims and runs queued
// jobs, for both job types. Grounded on ThumbnailQueue.start's two
// worker-loop tasks; github.com/robfig/cron replaces the source's
// continuous asyncio.sleep(0.5)/sleep(1) polling loop with a fixed sweep
// cadence, since that library's entire purpose is scheduling periodic
// work and the source's polling loop is exactly that with a hand-rolled
// timer.
func (q *Queue) Start(ctx context.Context) {
	q.cron = cron.New()
	_ = q.cron.AddFunc("@every 1s", func() { q.sweep(ctx, JobThumbnail, q.thumbnailSem) })
	_ = q.cron.AddFunc("@every 1s", func() { q.sweep(ctx, JobOGImage, q.ogSem) })
	q.cron.Start()
}

// Stop halts the sweep schedule.
func (q *Queue) Stop() {
	if q.cron != nil {
		q.cron.Stop()
	}
}

func (q *Queue) sweep(ctx context.Context, jobType JobType, sem *semaphore.Weighted) {
	for sem.TryAcquire(1) {
		job, err := q.Store.Claim(ctx, jobType)
		if err != nil {
			q.Logger.Warn("thumbnail: claim failed", "type", jobType, "error", err)
			sem.Release(1)
			return
		}
		if job == nil {
			sem.Release(1)
			return
		}
		go func() {
			defer sem.Release(1)
			q.runJob(ctx, job)
		}()
	}
}

func (q *Queue) runJob(ctx context.Context, job *Job) {
	imageURL, err := q.process(ctx, job)
	if err != nil {
		q.Logger.Warn("thumbnail: job failed", "job_id", job.ID, "error", err)
		placeholderURL := q.fallbackPlaceholder(ctx, job)
		if markErr := q.Store.MarkFailedOrRetry(ctx, job, err.Error(), placeholderURL); markErr != nil {
			q.Logger.Error("thumbnail: failed to record job failure", "job_id", job.ID, "error", markErr)
		}
		return
	}
	if err := q.Store.MarkDone(ctx, job, imageURL); err != nil {
		q.Logger.Error("thumbnail: failed to record job success", "job_id", job.ID, "error", err)
	}
}

func (q *Queue) process(ctx context.Context, job *Job) (string, error) {
	html, name, design, err := q.Pages.PageContent(ctx, job.ProjectID, job.PageID)
	if err != nil {
		return "", fmt.Errorf("thumbnail: load page content: %w", err)
	}
	if html == "" {
		return "", fmt.Errorf("thumbnail: no HTML available for page %s", job.PageID)
	}

	viewport, size, fullPage := ThumbnailViewport, ThumbnailSize, true
	folder := "thumbnails"
	if job.Type == JobOGImage {
		viewport, size, fullPage = OGViewport, OGSize, false
		folder = "og-images"
	}

	document := renderCaptureDocument(html, name, design)
	screenshot, err := q.capture(ctx, document, viewport, fullPage)
	if err != nil {
		return "", err
	}
	resized, err := resizePNG(screenshot, size.Width, size.Height)
	if err != nil {
		return "", fmt.Errorf("thumbnail: resize: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.png", folder, job.ProjectID, job.PageID)
	if err := q.Blobs.Put(ctx, key, resized, "image/png"); err != nil {
		return "", fmt.Errorf("thumbnail: store image: %w", err)
	}
	return key, nil
}

func (q *Queue) capture(ctx context.Context, document string, viewport Dimensions, fullPage bool) ([]byte, error) {
	captureCtx, cancel := context.WithTimeout(ctx, CaptureTimeout)
	defer cancel()

	browser, err := q.Browser.NewBrowser(captureCtx)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: launch browser: %w", err)
	}
	defer browser.Close()

	if err := browser.SetViewport(captureCtx, ports.Viewport{Width: viewport.Width, Height: viewport.Height}); err != nil {
		return nil, fmt.Errorf("thumbnail: set viewport: %w", err)
	}
	dataURL := "data:text/html;charset=utf-8," + document
	if err := browser.Navigate(captureCtx, dataURL); err != nil {
		return nil, fmt.Errorf("thumbnail: navigate: %w", err)
	}
	shot, err := browser.Screenshot(captureCtx, fullPage)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: screenshot: %w", err)
	}
	return shot, nil
}

func (q *Queue) fallbackPlaceholder(ctx context.Context, job *Job) string {
	_, name, design, err := q.Pages.PageContent(ctx, job.ProjectID, job.PageID)
	if err != nil {
		name = "Untitled"
	}
	size := ThumbnailSize
	if job.Type == JobOGImage {
		size = OGSize
	}
	background := design.Colors["background"]
	svg := placeholderSVG(name, size.Width, size.Height, background, "")

	key := fmt.Sprintf("placeholders/%s/%s.svg", job.ProjectID, job.PageID)
	if err := q.Blobs.Put(ctx, key, svg, "image/svg+xml"); err != nil {
		q.Logger.Warn("thumbnail: failed to store placeholder", "job_id", job.ID, "error", err)
		return ""
	}
	return key
}
