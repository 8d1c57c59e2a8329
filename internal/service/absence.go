// internal/service/absence.go
package service

import (
	"context"
	"fmt"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/repository"
	"time"

	"github.com/sirupsen/logrus"
)

type AbsenceService struct {
	store  repository.Store
	logger *logrus.Logger
}

func NewAbsenceService(store repository.Store, logger *logrus.Logger) *AbsenceService {
	return &AbsenceService{store: store, logger: logger}
}

// Register оформляет отпуск, больничный или командировку на период [start, end]
func (s *AbsenceService) Register(
	ctx context.Context,
	userID int64,
	absenceType models.AbsenceType,
	start, end time.Time,
) (*models.AbsencePeriod, error) {
	if _, err := models.ParseAbsenceType(string(absenceType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Оставляем только дату
	startDate := start.Format(time.DateOnly)
	endDate := end.Format(time.DateOnly)
	if endDate < startDate {
		return nil, ErrInvalidPeriod
	}

	period := &models.AbsencePeriod{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		Type:      absenceType,
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if user == nil {
			return ErrUserNotRegistered
		}

		// Проверяем пересечения с существующими периодами
		conflict, err := tx.HasAbsenceConflict(ctx, userID, startDate, endDate)
		if err != nil {
			return fmt.Errorf("check absence conflict: %w", err)
		}
		if conflict {
			return ErrAbsenceConflict
		}

		return tx.CreateAbsence(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"type":    absenceType,
		"start":   startDate,
		"end":     endDate,
	}).Info("Absence period added")

	return period, nil
}

// Current отсутствие, которое покрывает дату, или nil
func (s *AbsenceService) Current(ctx context.Context, userID int64, date time.Time) (*models.AbsencePeriod, error) {
	return s.store.CurrentAbsence(ctx, userID, date.Format(time.DateOnly))
}

func (s *AbsenceService) List(ctx context.Context, userID int64) ([]models.AbsencePeriod, error) {
	return s.store.AbsencesByUser(ctx, userID)
}

// FormatAbsence форматирует период для вывода
func FormatAbsence(p *models.AbsencePeriod) string {
	start, _ := time.Parse(time.DateOnly, p.StartDate)
	end, _ := time.Parse(time.DateOnly, p.EndDate)

	if p.StartDate == p.EndDate {
		return fmt.Sprintf("%s: %s", p.Type.Title(), start.Format("02.01.2006"))
	}
	return fmt.Sprintf("%s: %s - %s", p.Type.Title(), start.Format("02.01.2006"), end.Format("02.01.2006"))
}
