package dto

// MonitorSnapshot is the reconciled view of the watched schedule handed to
// presentation consumers. It is a copy; mutating it does not touch the
// controller's state.
type MonitorSnapshot struct {
	Schedule        *Schedule          `json:"schedule"`
	CronDescription string             `json:"cron_description,omitempty"`
	NextRunIn       string             `json:"next_run_in"`
	LastRunAt       string             `json:"last_run_at"`
	Latest          *AlertResult       `json:"latest"`
	LatestPrice     string             `json:"latest_price"`
	LatestChangePct string             `json:"latest_change_pct"`
	LatestAt        string             `json:"latest_at"`
	History         []AlertHistoryItem `json:"history"`
	Error           string             `json:"error,omitempty"`
	Busy            bool               `json:"busy"`
	LoadingSchedule bool               `json:"loading_schedule"`
	LoadingHistory  bool               `json:"loading_history"`
}

// PreferenceRequest carries the operator's recipient email on save.
type PreferenceRequest struct {
	Email string `json:"email"`
}

// PreferenceResponse returns the stored recipient email, empty when unset.
type PreferenceResponse struct {
	Email string `json:"email"`
}
