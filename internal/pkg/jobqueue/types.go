package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeAnalyticsPageview JobType = "analytics_pageview"
	JobTypeAnalyticsClick    JobType = "analytics_click"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PageviewJobPayload is one page view waiting to be stored
type PageviewJobPayload struct {
	PageID     string    `json:"page_id"`
	Referrer   string    `json:"referrer,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPHash     string    `json:"ip_hash,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToMap converts the payload to a map for storage
func (p PageviewJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"page_id":     p.PageID,
		"referrer":    p.Referrer,
		"user_agent":  p.UserAgent,
		"ip_hash":     p.IPHash,
		"occurred_at": p.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// PageviewJobPayloadFromMap creates a payload from a map
func PageviewJobPayloadFromMap(data map[string]interface{}) (*PageviewJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PageviewJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ClickJobPayload is one tracked click waiting to be stored
type ClickJobPayload struct {
	PageID     string    `json:"page_id"`
	ClickType  string    `json:"click_type"`
	TargetURL  string    `json:"target_url,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPHash     string    `json:"ip_hash,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToMap converts the payload to a map for storage
func (p ClickJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"page_id":     p.PageID,
		"click_type":  p.ClickType,
		"target_url":  p.TargetURL,
		"user_agent":  p.UserAgent,
		"ip_hash":     p.IPHash,
		"occurred_at": p.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// ClickJobPayloadFromMap creates a payload from a map
func ClickJobPayloadFromMap(data map[string]interface{}) (*ClickJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload ClickJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
