// internal/repository/absence_period_repo.go
package repository

import (
	"context"
	"errors"
	"hr-time-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Даты передаются строками YYYY-MM-DD
type AbsencePeriodRepository interface {
	CreateAbsence(ctx context.Context, period *models.AbsencePeriod) error
	AbsencesByUser(ctx context.Context, userID int64) ([]models.AbsencePeriod, error)
	CurrentAbsence(ctx context.Context, userID int64, date string) (*models.AbsencePeriod, error)
	AbsencesOverlapping(ctx context.Context, userID int64, from, to string) ([]models.AbsencePeriod, error)
	HasAbsenceConflict(ctx context.Context, userID int64, from, to string) (bool, error)
}

type GormAbsencePeriodRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAbsencePeriodRepository(db *gorm.DB, logger *logrus.Logger) (*GormAbsencePeriodRepository, error) {
	if err := db.AutoMigrate(&models.AbsencePeriod{}); err != nil {
		return nil, err
	}
	return &GormAbsencePeriodRepository{db: db, logger: logger}, nil
}

func (r *GormAbsencePeriodRepository) CreateAbsence(ctx context.Context, period *models.AbsencePeriod) error {
	if !period.IsValid() {
		return errors.New("некорректный период отсутствия")
	}
	if err := r.db.WithContext(ctx).Create(period).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create absence")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": period.UserID,
		"type":    period.Type,
		"start":   period.StartDate,
		"end":     period.EndDate,
	}).Info("Absence registered")
	return nil
}

func (r *GormAbsencePeriodRepository) AbsencesByUser(ctx context.Context, userID int64) ([]models.AbsencePeriod, error) {
	var periods []models.AbsencePeriod
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&periods).Error
	return periods, err
}

func (r *GormAbsencePeriodRepository) CurrentAbsence(ctx context.Context, userID int64, date string) (*models.AbsencePeriod, error) {
	var period models.AbsencePeriod
	err := r.db.WithContext(ctx).Where("user_id = ? AND start_date <= ? AND end_date >= ?",
		userID, date, date).
		First(&period).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *GormAbsencePeriodRepository) AbsencesOverlapping(ctx context.Context, userID int64, from, to string) ([]models.AbsencePeriod, error) {
	var periods []models.AbsencePeriod
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_date <= ? AND end_date >= ?", userID, to, from).
		Order("start_date").
		Find(&periods).Error
	return periods, err
}

func (r *GormAbsencePeriodRepository) HasAbsenceConflict(ctx context.Context, userID int64, from, to string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AbsencePeriod{}).
		Where("user_id = ? AND start_date <= ? AND end_date >= ?", userID, to, from).
		Count(&count).Error
	return count > 0, err
}
