package repository

import (
	"context"
	"errors"
	"hr-time-bot/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WorkLogRepository журналы работы и отработки долга, только добавление и чтение
type WorkLogRepository interface {
	AppendWorkLog(ctx context.Context, entry *models.WorkLogEntry) error
	WorkLogsBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.WorkLogEntry, error)
	LastWorkLogSince(ctx context.Context, userID int64, since time.Time) (*models.WorkLogEntry, error)
	HasWorkdaySince(ctx context.Context, userID int64, since time.Time) (bool, error)
	AppendDebtClearLog(ctx context.Context, entry *models.DebtClearLogEntry) error
	SumDebtClearedBetween(ctx context.Context, userID int64, from, to time.Time) (int64, error)
}

type GormWorkLogRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormWorkLogRepository(db *gorm.DB, logger *logrus.Logger) (*GormWorkLogRepository, error) {
	if err := db.AutoMigrate(&models.WorkLogEntry{}, &models.DebtClearLogEntry{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate work_log/debt_log tables")
		return nil, err
	}

	return &GormWorkLogRepository{db: db, logger: logger}, nil
}

func (r *GormWorkLogRepository) AppendWorkLog(ctx context.Context, entry *models.WorkLogEntry) error {
	entry.StartTime = entry.StartTime.UTC()
	entry.EndTime = entry.EndTime.UTC()

	if !entry.IsValid() {
		r.logger.WithField("user_id", entry.UserID).Warn("Invalid work log entry")
		return errors.New("некорректная запись журнала работы")
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.WithError(err).Error("Failed to append work log")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":      entry.UserID,
		"work_seconds": entry.TotalWorkSeconds,
		"kind":         entry.WorkKind,
	}).Info("Work log appended")

	return nil
}

// WorkLogsBetween записи с началом в [from, to)
func (r *GormWorkLogRepository) WorkLogsBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.WorkLogEntry, error) {
	var entries []models.WorkLogEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from.UTC(), to.UTC()).
		Order("start_time").
		Find(&entries).Error
	return entries, err
}

func (r *GormWorkLogRepository) LastWorkLogSince(ctx context.Context, userID int64, since time.Time) (*models.WorkLogEntry, error) {
	var entry models.WorkLogEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ?", userID, since.UTC()).
		Order("end_time DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// HasWorkdaySince был ли закрыт офисный или удаленный день с началом не раньше since
func (r *GormWorkLogRepository) HasWorkdaySince(ctx context.Context, userID int64, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WorkLogEntry{}).
		Where("user_id = ? AND start_time >= ? AND work_kind IN ?", userID, since.UTC(),
			[]models.WorkKind{models.WorkKindOffice, models.WorkKindRemote}).
		Count(&count).Error
	return count > 0, err
}

func (r *GormWorkLogRepository) AppendDebtClearLog(ctx context.Context, entry *models.DebtClearLogEntry) error {
	entry.StartTime = entry.StartTime.UTC()
	entry.EndTime = entry.EndTime.UTC()

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.WithError(err).Error("Failed to append debt log")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": entry.UserID,
		"cleared": entry.ClearedSeconds,
	}).Info("Debt clear log appended")

	return nil
}

func (r *GormWorkLogRepository) SumDebtClearedBetween(ctx context.Context, userID int64, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.DebtClearLogEntry{}).
		Select("COALESCE(SUM(cleared_seconds), 0)").
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from.UTC(), to.UTC()).
		Scan(&total).Error
	return total, err
}
