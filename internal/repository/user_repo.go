package repository

import (
	"context"
	"errors"
	"hr-time-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("пользователь не найден")

type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUserCascade(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListManagedUsers(ctx context.Context, managerID int64) ([]*models.User, error)
	AdjustBankBalance(ctx context.Context, userID int64, deltaSeconds int64) error
	DebitBankIfSufficient(ctx context.Context, userID int64, seconds int64) (bool, error)
}

type GormUserRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormUserRepository(db *gorm.DB, logger *logrus.Logger) (*GormUserRepository, error) {
	// Автомиграция - создает таблицы если их нет
	if err := db.AutoMigrate(&models.User{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate users table")
		return nil, err
	}

	return &GormUserRepository{db: db, logger: logger}, nil
}

func (r *GormUserRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get user")
		return nil, result.Error
	}

	return &user, nil
}

// SaveUser создает пользователя или обновляет профиль. Баланс банка времени не трогается.
func (r *GormUserRepository) SaveUser(ctx context.Context, user *models.User) error {
	if !user.IsValid() {
		return errors.New("некорректные данные пользователя")
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "role", "manager_1_id", "manager_2_id", "updated_at"}),
	}).Create(user)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to save user")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User saved")

	return nil
}

// DeleteUserCascade удаляет пользователя и все его записи
func (r *GormUserRepository) DeleteUserCascade(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)

	for _, model := range []any{
		&models.SessionRecord{},
		&models.WorkLogEntry{},
		&models.DebtEntry{},
		&models.DebtClearLogEntry{},
		&models.AbsencePeriod{},
	} {
		if err := db.Where("user_id = ?", id).Delete(model).Error; err != nil {
			return err
		}
	}
	if err := db.Where("requester_id = ?", id).Delete(&models.ApprovalRequest{}).Error; err != nil {
		return err
	}

	result := db.Delete(&models.User{}, id)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete user")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	r.logger.WithField("user_id", id).Info("User deleted with all records")
	return nil
}

func (r *GormUserRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	result := r.db.WithContext(ctx).Order("full_name").Find(&users)

	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

func (r *GormUserRepository) ListManagedUsers(ctx context.Context, managerID int64) ([]*models.User, error) {
	var users []*models.User
	result := r.db.WithContext(ctx).
		Where("manager_1_id = ? OR manager_2_id = ?", managerID, managerID).
		Order("full_name").
		Find(&users)

	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

func (r *GormUserRepository) AdjustBankBalance(ctx context.Context, userID int64, deltaSeconds int64) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("time_bank_seconds", gorm.Expr("time_bank_seconds + ?", deltaSeconds))

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to adjust time bank")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"delta":   deltaSeconds,
	}).Debug("Time bank adjusted")

	return nil
}

// DebitBankIfSufficient списывает время только если баланса хватает; false - не хватило.
func (r *GormUserRepository) DebitBankIfSufficient(ctx context.Context, userID int64, seconds int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND time_bank_seconds >= ?", userID, seconds).
		Update("time_bank_seconds", gorm.Expr("time_bank_seconds - ?", seconds))

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to debit time bank")
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
