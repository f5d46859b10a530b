package repository

import (
	"context"
	"fmt"
	"net/http"
	"stockwatch/config"
	"stockwatch/internal/dto"
	"stockwatch/pkg/httpclient"
	"stockwatch/pkg/logger"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// SchedulerClient talks to the remote scheduler backend that owns the job.
// This process never mutates schedules directly; it asks the backend and
// re-reads afterwards.
type SchedulerClient interface {
	GetSchedule(ctx context.Context, scheduleID uint) (*dto.Schedule, error)
	GetScheduleLogs(ctx context.Context, scheduleID uint, limit int) ([]dto.ExecutionLogRecord, error)
	PauseSchedule(ctx context.Context, scheduleID uint) error
	ResumeSchedule(ctx context.Context, scheduleID uint) error
	TriggerScheduleNow(ctx context.Context, scheduleID uint) error
}

type schedulerClient struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewSchedulerClient creates a rate-limited client for the scheduler API.
func NewSchedulerClient(cfg *config.Config, log *logger.Logger) SchedulerClient {
	secondsPerRequest := time.Minute / time.Duration(cfg.SchedulerAPI.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &schedulerClient{
		httpClient:     httpclient.New(log, cfg.SchedulerAPI.BaseURL, cfg.SchedulerAPI.Timeout, cfg.SchedulerAPI.BearerToken),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (c *schedulerClient) GetSchedule(ctx context.Context, scheduleID uint) (*dto.Schedule, error) {
	if err := c.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result dto.GetScheduleResponse
	endpoint := fmt.Sprintf("/api/v1/schedules/%d", scheduleID)

	resp, err := c.httpClient.Get(ctx, endpoint, nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		return nil, fmt.Errorf("failed to fetch schedule: %s", apiError(resp.StatusCode, result.Error))
	}
	if result.Schedule == nil {
		return nil, fmt.Errorf("scheduler returned success without a schedule")
	}

	return result.Schedule, nil
}

func (c *schedulerClient) GetScheduleLogs(ctx context.Context, scheduleID uint, limit int) ([]dto.ExecutionLogRecord, error) {
	if err := c.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result dto.GetScheduleLogsResponse
	endpoint := fmt.Sprintf("/api/v1/schedules/%d/executions", scheduleID)
	queryParams := map[string]string{
		"limit": strconv.Itoa(limit),
	}

	resp, err := c.httpClient.Get(ctx, endpoint, queryParams, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution logs: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		return nil, fmt.Errorf("failed to fetch execution logs: %s", apiError(resp.StatusCode, result.Error))
	}

	return result.Executions, nil
}

func (c *schedulerClient) PauseSchedule(ctx context.Context, scheduleID uint) error {
	return c.mutate(ctx, fmt.Sprintf("/api/v1/schedules/%d/pause", scheduleID), "pause schedule")
}

func (c *schedulerClient) ResumeSchedule(ctx context.Context, scheduleID uint) error {
	return c.mutate(ctx, fmt.Sprintf("/api/v1/schedules/%d/resume", scheduleID), "resume schedule")
}

func (c *schedulerClient) TriggerScheduleNow(ctx context.Context, scheduleID uint) error {
	return c.mutate(ctx, fmt.Sprintf("/api/v1/schedules/%d/run", scheduleID), "trigger schedule")
}

func (c *schedulerClient) mutate(ctx context.Context, endpoint, action string) error {
	if err := c.requestLimiter.Wait(ctx); err != nil {
		return err
	}

	var result dto.MutationResponse
	resp, err := c.httpClient.Post(ctx, endpoint, nil, nil, &result)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		return fmt.Errorf("failed to %s: %s", action, apiError(resp.StatusCode, result.Error))
	}
	return nil
}

func apiError(statusCode int, message string) string {
	if message != "" {
		return message
	}
	return fmt.Sprintf("scheduler responded with status %d", statusCode)
}
