package repository

import (
	"context"
	"hr-time-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NonWorkingDayRepository interface {
	SaveNonWorkingDays(ctx context.Context, days []models.NonWorkingDay) error
	AllNonWorkingDays(ctx context.Context) ([]models.NonWorkingDay, error)
}

type GormNonWorkingDayRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormNonWorkingDayRepository(db *gorm.DB, logger *logrus.Logger) (*GormNonWorkingDayRepository, error) {
	// Автомиграция для таблицы non_working_days
	if err := db.AutoMigrate(&models.NonWorkingDay{}); err != nil {
		return nil, err
	}

	return &GormNonWorkingDayRepository{db: db, logger: logger}, nil
}

// SaveNonWorkingDays добавляет дни, уже известные даты пропускаются
func (r *GormNonWorkingDayRepository) SaveNonWorkingDays(ctx context.Context, days []models.NonWorkingDay) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "date"}}, DoNothing: true}).
		Create(&days).Error
}

func (r *GormNonWorkingDayRepository) AllNonWorkingDays(ctx context.Context) ([]models.NonWorkingDay, error) {
	var days []models.NonWorkingDay
	err := r.db.WithContext(ctx).Order("date").Find(&days).Error
	return days, err
}
