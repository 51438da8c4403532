// Package queue implements the attachment fetch queue: a single worker
// goroutine that downloads attachment binaries with bounded concurrency,
// priority-then-FIFO ordering, and scheduled retries.
package queue

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
	"github.com/finsift/finsift/internal/service"
)

// BlobWriter stores fetched binaries, keyed by content hash.
type BlobWriter interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// JobStore is the slice of the persistence layer the queue needs.
type JobStore interface {
	UpdateJobStatus(ctx context.Context, job *model.AttachmentJob) error
	GetJobsByMessage(ctx context.Context, messageID string) ([]model.AttachmentJob, error)
}

// Config tunes the fetch queue.
type Config struct {
	MaxConcurrent   int
	MaxRetries      int
	BackoffSchedule []time.Duration
	PollInterval    time.Duration
}

// DefaultConfig returns the default queue tuning.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:   2,
		MaxRetries:      3,
		BackoffSchedule: []time.Duration{30 * time.Second, 120 * time.Second, 300 * time.Second},
		PollInterval:    500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if len(c.BackoffSchedule) == 0 {
		c.BackoffSchedule = []time.Duration{30 * time.Second, 120 * time.Second, 300 * time.Second}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	return c
}

// Stats is a snapshot of queue state.
type Stats struct {
	Pending     int
	Downloading int
	Ready       int
	Failed      int
}

type enqueueReq struct {
	attachmentID string
	messageID    string
	priority     model.JobPriority
}

type jobResult struct {
	attachmentID string
	blobKey      string
	err          error
}

type queuedJob struct {
	job *model.AttachmentJob
	seq uint64
}

// FetchQueue retrieves attachment binaries on demand. Construct one per
// process and share it by reference; all state mutation happens on the
// worker goroutine, callers only ever send.
type FetchQueue struct {
	fetcher   service.AttachmentFetcher
	blobs     BlobWriter
	storage   JobStore
	clock     common.Clock
	logger    *slog.Logger
	cfg       Config
	enqueueCh chan enqueueReq
	doneCh    chan jobResult
	statsCh   chan chan Stats
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates a fetch queue. Call Start to launch the worker.
func New(fetcher service.AttachmentFetcher, blobs BlobWriter, storage JobStore, cfg Config, clock common.Clock, logger *slog.Logger) *FetchQueue {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = common.NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FetchQueue{
		fetcher:   fetcher,
		blobs:     blobs,
		storage:   storage,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
		enqueueCh: make(chan enqueueReq, 256),
		doneCh:    make(chan jobResult, cfg.MaxConcurrent),
		statsCh:   make(chan chan Stats),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Enqueue schedules one attachment for download. Re-enqueueing an id that is
// already pending or downloading is a no-op.
func (q *FetchQueue) Enqueue(attachmentID, messageID string, priority model.JobPriority) {
	select {
	case q.enqueueCh <- enqueueReq{attachmentID: attachmentID, messageID: messageID, priority: priority}:
	case <-q.stopCh:
	}
}

// EnqueueBatch schedules several attachments at the same priority.
func (q *FetchQueue) EnqueueBatch(attachmentIDs []string, messageID string, priority model.JobPriority) {
	for _, id := range attachmentIDs {
		q.Enqueue(id, messageID, priority)
	}
}

// GetStats returns a snapshot of queue state.
func (q *FetchQueue) GetStats() Stats {
	resp := make(chan Stats, 1)
	select {
	case q.statsCh <- resp:
		return <-resp
	case <-q.stopCh:
		return Stats{}
	}
}

// Start launches the worker goroutine.
func (q *FetchQueue) Start(ctx context.Context) {
	go q.run(ctx)
}

// Stop shuts the worker down. In-flight downloads keep running and still
// persist their terminal status through the storage layer.
func (q *FetchQueue) Stop() {
	close(q.stopCh)
	<-q.stoppedCh
}

// run is the worker loop, the sole owner of pending/delayed/in-flight state.
func (q *FetchQueue) run(ctx context.Context) {
	defer close(q.stoppedCh)

	var (
		pending  []queuedJob
		delayed  []queuedJob
		inflight = make(map[string]*model.AttachmentJob)
		seq      uint64
		ready    int
		failed   int
	)

	known := func(id string) bool {
		if _, ok := inflight[id]; ok {
			return true
		}
		for _, p := range pending {
			if p.job.AttachmentID == id {
				return true
			}
		}
		for _, d := range delayed {
			if d.job.AttachmentID == id {
				return true
			}
		}
		return false
	}

	accept := func(req enqueueReq) {
		if known(req.attachmentID) {
			q.logger.Debug("attachment already queued, ignoring", "attachment", req.attachmentID)
			return
		}
		priority := req.priority
		if priority == "" {
			priority = model.PriorityNormal
		}
		job := &model.AttachmentJob{
			AttachmentID: req.attachmentID,
			MessageID:    req.messageID,
			Priority:     priority,
			Status:       model.JobPending,
			EnqueuedAt:   q.clock.Now(),
		}
		seq++
		pending = append(pending, queuedJob{job: job, seq: seq})
		q.persist(ctx, job)
	}

	drain := func() {
		for {
			select {
			case req := <-q.enqueueCh:
				accept(req)
			default:
				return
			}
		}
	}

	for {
		// Promote delayed jobs whose backoff has elapsed.
		now := q.clock.Now()
		keep := delayed[:0]
		for _, d := range delayed {
			if !d.job.NextAttemptAt.After(now) {
				pending = append(pending, d)
			} else {
				keep = append(keep, d)
			}
		}
		delayed = keep

		// Start downloads while there is capacity, high priority first,
		// FIFO within a priority.
		sort.Slice(pending, func(i, j int) bool {
			if pending[i].job.Priority.Rank() != pending[j].job.Priority.Rank() {
				return pending[i].job.Priority.Rank() > pending[j].job.Priority.Rank()
			}
			return pending[i].seq < pending[j].seq
		})
		for len(inflight) < q.cfg.MaxConcurrent && len(pending) > 0 {
			next := pending[0]
			pending = pending[1:]
			job := next.job
			job.Status = model.JobDownloading
			inflight[job.AttachmentID] = job
			q.persist(ctx, job)
			go q.download(ctx, job.AttachmentID)
		}

		// Sleep until the next delayed job is due, if any.
		var wakeup <-chan time.Time
		if len(delayed) > 0 {
			soonest := delayed[0].job.NextAttemptAt
			for _, d := range delayed[1:] {
				if d.job.NextAttemptAt.Before(soonest) {
					soonest = d.job.NextAttemptAt
				}
			}
			wakeup = q.clock.After(soonest.Sub(q.clock.Now()))
		}

		select {
		case req := <-q.enqueueCh:
			accept(req)
			drain()
		case res := <-q.doneCh:
			job, ok := inflight[res.attachmentID]
			if !ok {
				continue
			}
			delete(inflight, res.attachmentID)

			if res.err == nil {
				job.Status = model.JobReady
				job.LastError = ""
				ready++
				q.persist(ctx, job)
				q.logger.Info("attachment ready",
					"attachment", job.AttachmentID,
					"blob_key", res.blobKey)
				continue
			}

			job.LastError = res.err.Error()
			if job.RetryCount < q.cfg.MaxRetries {
				delay := q.backoffFor(job.RetryCount)
				job.RetryCount++
				job.Status = model.JobPending
				job.NextAttemptAt = q.clock.Now().Add(delay)
				seq++
				delayed = append(delayed, queuedJob{job: job, seq: seq})
				q.persist(ctx, job)
				q.logger.Warn("attachment download failed, will retry",
					"attachment", job.AttachmentID,
					"retry", job.RetryCount,
					"delay", delay,
					"error", res.err)
			} else {
				job.Status = model.JobFailed
				failed++
				q.persist(ctx, job)
				q.logger.Error("attachment download failed permanently",
					"attachment", job.AttachmentID,
					"retries", job.RetryCount,
					"error", res.err)
			}
		case resp := <-q.statsCh:
			resp <- Stats{
				Pending:     len(pending) + len(delayed),
				Downloading: len(inflight),
				Ready:       ready,
				Failed:      failed,
			}
		case <-wakeup:
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// backoffFor indexes the fixed schedule by retry count, clamping to the last
// entry.
func (q *FetchQueue) backoffFor(retryCount int) time.Duration {
	if retryCount >= len(q.cfg.BackoffSchedule) {
		return q.cfg.BackoffSchedule[len(q.cfg.BackoffSchedule)-1]
	}
	return q.cfg.BackoffSchedule[retryCount]
}

// download fetches one attachment off the worker loop and reports back.
func (q *FetchQueue) download(ctx context.Context, attachmentID string) {
	data, err := q.fetcher.Fetch(ctx, attachmentID)
	if err != nil {
		q.doneCh <- jobResult{attachmentID: attachmentID, err: err}
		return
	}

	key := model.HashBytes(data)
	if err := q.blobs.Upload(ctx, key, data); err != nil {
		q.doneCh <- jobResult{attachmentID: attachmentID, err: err}
		return
	}

	q.doneCh <- jobResult{attachmentID: attachmentID, blobKey: key}
}

func (q *FetchQueue) persist(ctx context.Context, job *model.AttachmentJob) {
	snapshot := *job
	if err := q.storage.UpdateJobStatus(ctx, &snapshot); err != nil {
		q.logger.Error("failed to persist job status",
			"attachment", job.AttachmentID,
			"status", job.Status,
			"error", err)
	}
}

// WaitForMessage polls job statuses until every attachment of the message is
// ready (true), any is failed (false), or the timeout elapses (false). It
// never cancels in-flight work; a timed-out caller simply stops waiting.
func (q *FetchQueue) WaitForMessage(ctx context.Context, messageID string, timeout time.Duration) bool {
	deadline := q.clock.Now().Add(timeout)

	for {
		jobs, err := q.storage.GetJobsByMessage(ctx, messageID)
		if err != nil {
			q.logger.Error("failed to poll job statuses", "message", messageID, "error", err)
			return false
		}

		// The worker may not have persisted a freshly enqueued job yet; no
		// recorded jobs means nothing has reached ready.
		allReady := len(jobs) > 0
		for _, job := range jobs {
			switch job.Status {
			case model.JobFailed:
				return false
			case model.JobReady:
			default:
				allReady = false
			}
		}
		if allReady {
			return true
		}

		if q.clock.Now().Add(q.cfg.PollInterval).After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-q.clock.After(q.cfg.PollInterval):
		}
	}
}
