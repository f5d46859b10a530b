package model

import (
	"time"

	"gorm.io/datatypes"
)

// OperatorPreference is a scoped key-value row for operator settings. The
// value is stored as JSON so future preferences do not need schema changes.
type OperatorPreference struct {
	Name      string         `gorm:"primaryKey;type:varchar(100)"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (OperatorPreference) TableName() string {
	return "operator_preferences"
}
