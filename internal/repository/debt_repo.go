package repository

import (
	"context"
	"hr-time-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DebtRepository interface {
	AppendDebt(ctx context.Context, entry *models.DebtEntry) error
	PendingDebts(ctx context.Context, userID int64) ([]models.DebtEntry, error)
	UpdateDebt(ctx context.Context, id uint, amountSeconds int64, status models.DebtStatus) error
	SumPendingDebt(ctx context.Context, userID int64, sinceDate string) (int64, error)
}

type GormDebtRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormDebtRepository(db *gorm.DB, logger *logrus.Logger) (*GormDebtRepository, error) {
	if err := db.AutoMigrate(&models.DebtEntry{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate work_debt table")
		return nil, err
	}

	return &GormDebtRepository{db: db, logger: logger}, nil
}

func (r *GormDebtRepository) AppendDebt(ctx context.Context, entry *models.DebtEntry) error {
	entry.Status = models.DebtPending
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.WithError(err).Error("Failed to append debt")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": entry.UserID,
		"seconds": entry.AmountSeconds,
		"date":    entry.DateIncurred,
	}).Info("Work debt accrued")

	return nil
}

// PendingDebts непогашенные долги, самые старые первыми
func (r *GormDebtRepository) PendingDebts(ctx context.Context, userID int64) ([]models.DebtEntry, error) {
	var debts []models.DebtEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.DebtPending).
		Order("date_incurred ASC, id ASC").
		Find(&debts).Error
	return debts, err
}

func (r *GormDebtRepository) UpdateDebt(ctx context.Context, id uint, amountSeconds int64, status models.DebtStatus) error {
	return r.db.WithContext(ctx).Model(&models.DebtEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"amount_seconds": amountSeconds,
			"status":         status,
		}).Error
}

// SumPendingDebt сумма непогашенных долгов начиная с даты sinceDate (YYYY-MM-DD)
func (r *GormDebtRepository) SumPendingDebt(ctx context.Context, userID int64, sinceDate string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.DebtEntry{}).
		Select("COALESCE(SUM(amount_seconds), 0)").
		Where("user_id = ? AND status = ? AND date_incurred >= ?", userID, models.DebtPending, sinceDate).
		Scan(&total).Error
	return total, err
}
