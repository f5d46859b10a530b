package repository

import (
	"stockwatch/config"
	"stockwatch/pkg/cache"
	"stockwatch/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	SchedulerClient SchedulerClient
	PreferenceRepo  PreferenceRepository
	InsightRepo     InsightRepository
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	repo := &Repository{
		SchedulerClient: NewSchedulerClient(cfg, log),
		PreferenceRepo:  NewPreferenceRepository(cfg, inmemoryCache, db),
	}

	// Insight summaries are optional, gated on an API key.
	if cfg.Gemini.APIKey != "" {
		insightRepo, err := NewGeminiInsightRepository(cfg, log)
		if err != nil {
			return nil, err
		}
		repo.InsightRepo = insightRepo
	}

	return repo, nil
}
