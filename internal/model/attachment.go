package model

import "time"

// JobPriority orders attachment downloads.
type JobPriority string

const (
	// PriorityHigh jobs are processed before all normal-priority jobs.
	PriorityHigh JobPriority = "high"
	// PriorityNormal is the default download priority.
	PriorityNormal JobPriority = "normal"
)

// Rank returns a sortable weight, higher first.
func (p JobPriority) Rank() int {
	if p == PriorityHigh {
		return 1
	}
	return 0
}

// JobStatus is the lifecycle state of an attachment download.
type JobStatus string

const (
	// JobPending means the job is queued and waiting for a worker slot.
	JobPending JobStatus = "pending"
	// JobDownloading means the download is in flight.
	JobDownloading JobStatus = "downloading"
	// JobReady means the binary was fetched and stored.
	JobReady JobStatus = "ready"
	// JobFailed means all retries were exhausted.
	JobFailed JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobReady || s == JobFailed
}

// AttachmentJob tracks the download lifecycle of one email attachment.
// Status transitions are owned exclusively by the fetch queue worker.
type AttachmentJob struct {
	EnqueuedAt    time.Time
	NextAttemptAt time.Time
	AttachmentID  string
	MessageID     string
	LastError     string
	Priority      JobPriority
	Status        JobStatus
	RetryCount    int
}

// ThreadMessage is the slice of a conversation the thread analyzer sees:
// enough to build a deterministic cache key and run pre-filters.
type ThreadMessage struct {
	Timestamp time.Time
	MessageID string
	Sender    string
	Subject   string
	Snippet   string
}

// AnalysisResult is the outcome of analyzing a conversation thread.
type AnalysisResult struct {
	ComputedAt time.Time
	Method     DetectionMethod
	SkipReason string
	Candidates []Candidate
	Skipped    bool
}
