package repository

import (
	"context"
	"errors"
	"hr-time-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository хранит не более одной текущей сессии на пользователя.
// Изменения условные: по отсутствию записи или по версии.
type SessionRepository interface {
	GetSession(ctx context.Context, userID int64) (*models.SessionRecord, error)
	CreateSession(ctx context.Context, rec *models.SessionRecord) (bool, error)
	UpdateSession(ctx context.Context, rec *models.SessionRecord, expectedVersion int64) (bool, error)
	DeleteSession(ctx context.Context, userID int64, expectedVersion int64) (bool, error)
}

type GormSessionRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormSessionRepository(db *gorm.DB, logger *logrus.Logger) (*GormSessionRepository, error) {
	// Автомиграция
	if err := db.AutoMigrate(&models.SessionRecord{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate work_sessions table")
		return nil, err
	}

	return &GormSessionRepository{db: db, logger: logger}, nil
}

func (r *GormSessionRepository) GetSession(ctx context.Context, userID int64) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithField("user_id", userID).Debug("No active session found")
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get session")
		return nil, result.Error
	}

	return &rec, nil
}

// CreateSession вставляет запись, только если у пользователя нет сессии. false - сессия уже есть.
func (r *GormSessionRepository) CreateSession(ctx context.Context, rec *models.SessionRecord) (bool, error) {
	rec.Version = 1
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create session")
		return false, result.Error
	}

	if result.RowsAffected == 0 {
		r.logger.WithField("user_id", rec.UserID).Warn("Session already exists")
		return false, nil
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": rec.UserID,
		"status":  rec.Status,
	}).Info("Session created")

	return true, nil
}

// UpdateSession перезаписывает сессию, если ее версия не изменилась с момента чтения.
func (r *GormSessionRepository) UpdateSession(ctx context.Context, rec *models.SessionRecord, expectedVersion int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.SessionRecord{}).
		Where("user_id = ? AND version = ?", rec.UserID, expectedVersion).
		Updates(map[string]any{
			"status":           rec.Status,
			"start_time":       rec.StartTime,
			"break_seconds":    rec.BreakSeconds,
			"break_start_time": rec.BreakStartTime,
			"is_remote":        rec.IsRemote,
			"version":          expectedVersion + 1,
		})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to update session")
		return false, result.Error
	}

	if result.RowsAffected == 0 {
		r.logger.WithFields(logrus.Fields{
			"user_id": rec.UserID,
			"version": expectedVersion,
		}).Warn("Session changed concurrently")
		return false, nil
	}

	rec.Version = expectedVersion + 1
	r.logger.WithFields(logrus.Fields{
		"user_id": rec.UserID,
		"status":  rec.Status,
	}).Info("Session updated")

	return true, nil
}

func (r *GormSessionRepository) DeleteSession(ctx context.Context, userID int64, expectedVersion int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND version = ?", userID, expectedVersion).
		Delete(&models.SessionRecord{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete session")
		return false, result.Error
	}

	if result.RowsAffected == 0 {
		r.logger.WithField("user_id", userID).Warn("Session not found for deletion")
		return false, nil
	}

	r.logger.WithField("user_id", userID).Info("Session deleted")
	return true, nil
}
