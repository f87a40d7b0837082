package domain

import "time"

// RunRequest is an asynchronous batch-run request carried over the queue.
type RunRequest struct {
	ID          string   `json:"id"`
	DocumentURL string   `json:"document_url"`
	Questions   []string `json:"questions"`
}

// Run is the audit record of one executed batch.
type Run struct {
	ID            string        `json:"id"`
	DocumentURL   string        `json:"document_url"`
	QuestionCount int           `json:"question_count"`
	AnsweredCount int           `json:"answered_count"`
	FailedCount   int           `json:"failed_count"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RunCompleted is the event published after a batch finishes.
type RunCompleted struct {
	RunID         string `json:"run_id"`
	DocumentURL   string `json:"document_url"`
	QuestionCount int    `json:"question_count"`
	FailedCount   int    `json:"failed_count"`
	DurationMS    int64  `json:"duration_ms"`
}
