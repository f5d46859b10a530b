package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"stockwatch/config"
	"stockwatch/internal/model"
	"stockwatch/pkg/cache"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository persists operator preferences as scoped key-value
// rows, with a read-through cache in front of the table.
type PreferenceRepository interface {
	Get(ctx context.Context, name string, destValue interface{}) error
	Set(ctx context.Context, name string, value interface{}) error
}

type preferenceRepository struct {
	cfg           *config.Config
	inmemoryCache cache.Cache
	db            *gorm.DB
}

func NewPreferenceRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{cfg: cfg, inmemoryCache: inmemoryCache, db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, name string, destValue interface{}) error {
	if raw, found := cache.GetFromCache[[]byte](name); found {
		return json.Unmarshal(raw, destValue)
	}

	var pref model.OperatorPreference
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&pref).Error; err != nil {
		return err
	}

	r.inmemoryCache.Set(name, []byte(pref.Value), r.cfg.Cache.PreferenceExp)
	return json.Unmarshal(pref.Value, destValue)
}

func (r *preferenceRepository) Set(ctx context.Context, name string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode preference %q: %w", name, err)
	}

	pref := model.OperatorPreference{
		Name:  name,
		Value: raw,
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("failed to store preference %q: %w", name, err)
	}

	r.inmemoryCache.Set(name, []byte(raw), r.cfg.Cache.PreferenceExp)
	return nil
}
