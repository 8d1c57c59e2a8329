package service

import (
	"context"
	"errors"
	"fmt"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/repository"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// UserInput данные пользователя из команды администратора
type UserInput struct {
	ID         int64  `validate:"required"`
	FullName   string `validate:"required,min=2,max=100"`
	Role       string `validate:"required,oneof=employee manager admin"`
	Manager1ID int64  `validate:"omitempty,nefield=ID"`
	Manager2ID int64  `validate:"omitempty,nefield=ID"`
}

type UserService struct {
	store    repository.Store
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewUserService(store repository.Store, logger *logrus.Logger) *UserService {
	return &UserService{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// AddOrUpdate создает пользователя или обновляет профиль; баланс банка сохраняется
func (s *UserService) AddOrUpdate(ctx context.Context, in UserInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user := &models.User{
		ID:       in.ID,
		FullName: in.FullName,
		Role:     models.Role(in.Role),
	}

	for _, slot := range []struct {
		id  int64
		dst **int64
	}{
		{in.Manager1ID, &user.Manager1ID},
		{in.Manager2ID, &user.Manager2ID},
	} {
		if slot.id == 0 {
			continue
		}
		manager, err := s.store.GetUser(ctx, slot.id)
		if err != nil {
			return nil, fmt.Errorf("load manager: %w", err)
		}
		if manager == nil {
			return nil, fmt.Errorf("%w: руководитель %d не зарегистрирован", ErrInvalidInput, slot.id)
		}
		id := slot.id
		*slot.dst = &id
	}

	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	saved, err := s.store.GetUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return saved, nil
}

// Delete удаляет пользователя вместе с сессией, журналами, долгами, отсутствиями и запросами
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		return tx.DeleteUserCascade(ctx, id)
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: пользователь %d не найден", ErrInvalidInput, id)
	}
	return err
}

// Get возвращает пользователя или ErrUserNotRegistered
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotRegistered
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.store.ListUsers(ctx)
}

// ManagedBy сотрудники руководителя; администратор видит всех
func (s *UserService) ManagedBy(ctx context.Context, manager *models.User) ([]*models.User, error) {
	switch manager.Role {
	case models.RoleAdmin:
		return s.store.ListUsers(ctx)
	case models.RoleManager:
		return s.store.ListManagedUsers(ctx, manager.ID)
	case models.RoleEmployee:
		return nil, ErrNotAuthorized
	}
	return nil, ErrNotAuthorized
}

// InitializeAdmins создает администраторов из конфигурации или повышает их роль
func (s *UserService) InitializeAdmins(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		user, err := s.store.GetUser(ctx, id)
		if err != nil {
			return fmt.Errorf("load admin %d: %w", id, err)
		}

		if user == nil {
			user = &models.User{ID: id, FullName: fmt.Sprintf("Администратор %d", id)}
		} else if user.IsAdmin() {
			continue
		}
		user.Role = models.RoleAdmin

		if err := s.store.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("save admin %d: %w", id, err)
		}

		s.logger.WithField("user_id", id).Info("Admin initialized")
	}
	return nil
}

// FormatUserInfo форматирует информацию о пользователе для вывода
func FormatUserInfo(user *models.User) string {
	var lines []string

	roleEmoji := "👤"
	switch user.Role {
	case models.RoleAdmin:
		roleEmoji = "👑"
	case models.RoleManager:
		roleEmoji = "🧑‍💼"
	case models.RoleEmployee:
	}

	lines = append(lines, fmt.Sprintf("%s %s", roleEmoji, user.FullName))
	lines = append(lines, fmt.Sprintf("🆔 %d, роль: %s", user.ID, user.Role))

	if ids := user.ManagerIDs(); len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%d", id)
		}
		lines = append(lines, "Руководители: "+strings.Join(parts, ", "))
	}
	lines = append(lines, "🏦 Банк времени: "+FormatSeconds(user.TimeBankSeconds))

	return strings.Join(lines, "\n")
}
