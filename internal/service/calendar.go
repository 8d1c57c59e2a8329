package service

import (
	"context"
	"fmt"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/repository"
	"hr-time-bot/pkg/weekends"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/sirupsen/logrus"
)

// CalendarService рабочий календарь: суббота и воскресенье плюс праздники из БД
type CalendarService struct {
	repo   repository.NonWorkingDayRepository
	logger *logrus.Logger

	mu  sync.RWMutex
	cal *cal.BusinessCalendar
}

func NewCalendarService(repo repository.NonWorkingDayRepository, logger *logrus.Logger) *CalendarService {
	return &CalendarService{
		repo:   repo,
		logger: logger,
		cal:    cal.NewBusinessCalendar(),
	}
}

// LoadFromJSON загружает нерабочие дни из файла календаря в базу и обновляет календарь
func (s *CalendarService) LoadFromJSON(ctx context.Context, filePath string) (int, error) {
	parsed, err := weekends.ParseWeekendsJSON(filePath)
	if err != nil {
		return 0, err
	}

	days := make([]models.NonWorkingDay, 0, len(parsed))
	for _, d := range parsed {
		days = append(days, models.NonWorkingDay{
			Date:  d.Key(),
			Year:  d.Year,
			Month: d.Month,
			Day:   d.Day,
		})
	}

	if err := s.repo.SaveNonWorkingDays(ctx, days); err != nil {
		return 0, fmt.Errorf("save non-working days: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file": filePath,
		"days": len(days),
	}).Info("Non-working days loaded")

	return len(days), s.Reload(ctx)
}

// Reload пересобирает календарь из БД
func (s *CalendarService) Reload(ctx context.Context) error {
	days, err := s.repo.AllNonWorkingDays(ctx)
	if err != nil {
		return fmt.Errorf("load non-working days: %w", err)
	}

	c := cal.NewBusinessCalendar()
	c.SetWorkday(time.Saturday, false)
	c.SetWorkday(time.Sunday, false)

	for _, d := range days {
		c.AddHoliday(&cal.Holiday{
			Name:      "Нерабочий день " + d.Date,
			Type:      cal.ObservancePublic,
			Month:     time.Month(d.Month),
			Day:       d.Day,
			Func:      cal.CalcDayOfMonth,
			StartYear: d.Year,
			EndYear:   d.Year,
		})
	}

	s.mu.Lock()
	s.cal = c
	s.mu.Unlock()

	s.logger.WithField("holidays", len(days)).Debug("Work calendar rebuilt")
	return nil
}

// IsWorkday рабочий ли день по календарю организации
func (s *CalendarService) IsWorkday(date time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cal.IsWorkday(date)
}
