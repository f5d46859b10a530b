package dto

import "time"

// Schedule is the remote scheduler's descriptor of the watched job. The
// monitor holds a read-only copy, replaced wholesale on every fetch.
type Schedule struct {
	ID             uint       `json:"id"`
	JobID          uint       `json:"job_id"`
	CronExpression string     `json:"cron_expression"`
	IsActive       bool       `json:"is_active"`
	NextRunTime    *time.Time `json:"next_run_time"`
	LastRunAt      *time.Time `json:"last_run_at"`
}

// ExecutionLogRecord is one immutable past run of the job. ResponseOutput
// is an opaque, possibly-JSON payload owned by the job itself.
type ExecutionLogRecord struct {
	ID             uint      `json:"id"`
	ExecutedAt     time.Time `json:"executed_at"`
	Success        bool      `json:"success"`
	ResponseOutput *string   `json:"response_output"`
	ErrorMessage   *string   `json:"error_message"`
}

// GetScheduleResponse is the scheduler API envelope for a schedule read.
type GetScheduleResponse struct {
	Success  bool      `json:"success"`
	Schedule *Schedule `json:"schedule,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// GetScheduleLogsResponse is the scheduler API envelope for a history read.
type GetScheduleLogsResponse struct {
	Success    bool                 `json:"success"`
	Executions []ExecutionLogRecord `json:"executions,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// MutationResponse is the scheduler API envelope for pause/resume/trigger.
type MutationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
