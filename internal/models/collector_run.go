package models

import (
	"time"

	"gorm.io/datatypes"
)

// CollectorRun records the summary of one collection run.
type CollectorRun struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	Trigger      string         `gorm:"type:varchar(16);not null;comment:http/cron/continuous" json:"trigger"`
	StartedAt    time.Time      `gorm:"type:timestamptz;not null;index" json:"started_at"`
	FinishedAt   *time.Time     `gorm:"type:timestamptz" json:"finished_at"`
	CardsFetched int            `gorm:"not null" json:"cards_fetched"`
	SuccessCount int            `gorm:"not null" json:"success_count"`
	FailedCount  int            `gorm:"not null" json:"failed_count"`
	Snapshots    int            `gorm:"not null" json:"snapshots"`
	SourceStats  datatypes.JSON `gorm:"type:jsonb;comment:per-source counts" json:"source_stats"`
	Errors       datatypes.JSON `gorm:"type:jsonb;comment:first N error details" json:"errors"`
	Error        *string        `gorm:"type:text;comment:fatal error" json:"error"`
}

func (CollectorRun) TableName() string {
	return "collector_runs"
}
