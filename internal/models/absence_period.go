package models

import (
	"fmt"
	"time"
)

type AbsenceType string

const (
	AbsenceTypeVacation     AbsenceType = "vacation"
	AbsenceTypeSickLeave    AbsenceType = "sick_leave"
	AbsenceTypeBusinessTrip AbsenceType = "business_trip"
	AbsenceTypeDayOff       AbsenceType = "day_off"
)

// ParseAbsenceType разбирает тип отсутствия, который можно оформить напрямую
func ParseAbsenceType(s string) (AbsenceType, error) {
	switch AbsenceType(s) {
	case AbsenceTypeVacation, AbsenceTypeSickLeave, AbsenceTypeBusinessTrip:
		return AbsenceType(s), nil
	}
	return "", fmt.Errorf("неизвестный тип отсутствия: %q", s)
}

// Title название для сообщений
func (t AbsenceType) Title() string {
	switch t {
	case AbsenceTypeVacation:
		return "Отпуск"
	case AbsenceTypeSickLeave:
		return "Больничный"
	case AbsenceTypeBusinessTrip:
		return "Командировка"
	case AbsenceTypeDayOff:
		return "Отгул"
	}
	return string(t)
}

type AbsencePeriod struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    int64       `gorm:"not null;index" json:"user_id"`
	StartDate string      `gorm:"type:varchar(10);not null;index" json:"start_date"` // YYYY-MM-DD
	EndDate   string      `gorm:"type:varchar(10);not null;index" json:"end_date"`
	Type      AbsenceType `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

func (AbsencePeriod) TableName() string {
	return "absence_periods"
}

// IsValid даты в формате YYYY-MM-DD и начало не позже конца
func (p *AbsencePeriod) IsValid() bool {
	start, err := time.Parse(time.DateOnly, p.StartDate)
	if err != nil {
		return false
	}
	end, err := time.Parse(time.DateOnly, p.EndDate)
	if err != nil {
		return false
	}
	return p.UserID != 0 && !end.Before(start)
}
