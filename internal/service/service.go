package service

import (
	"context"
	"errors"
	"stockwatch/config"
	"stockwatch/internal/dto"
	"stockwatch/internal/repository"
	"stockwatch/pkg/cache"
	"stockwatch/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
)

// ErrInsightDisabled is returned when no Gemini API key is configured.
var ErrInsightDisabled = errors.New("run insight is not configured")

type Service struct {
	Monitor           *Monitor
	PreferenceService PreferenceService
	InsightService    InsightService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	validate *goValidator.Validate,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	notifier *Notifier,
) *Service {
	monitor := NewMonitor(cfg, log, repo.SchedulerClient, inmemoryCache, notifier)

	return &Service{
		Monitor:           monitor,
		PreferenceService: NewPreferenceService(log, validate, repo.PreferenceRepo),
		InsightService:    NewInsightService(log, repo.InsightRepo, monitor),
	}
}

// InsightService produces an AI summary of the monitor's current history.
type InsightService interface {
	Summarize(ctx context.Context) (*dto.RunInsight, error)
}

type insightService struct {
	log     *logger.Logger
	repo    repository.InsightRepository
	monitor *Monitor
}

func NewInsightService(log *logger.Logger, repo repository.InsightRepository, monitor *Monitor) InsightService {
	return &insightService{log: log, repo: repo, monitor: monitor}
}

func (s *insightService) Summarize(ctx context.Context) (*dto.RunInsight, error) {
	if s.repo == nil {
		return nil, ErrInsightDisabled
	}
	snap := s.monitor.Snapshot()
	return s.repo.SummarizeRuns(ctx, snap.Schedule, snap.History)
}
