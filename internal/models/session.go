package models

import (
	"errors"
	"fmt"
	"time"
)

type SessionStatus string

// Статусы текущей сессии. Отсутствие записи означает Idle.
const (
	StatusWorking      SessionStatus = "working"
	StatusOnBreak      SessionStatus = "on_break"
	StatusClearingDebt SessionStatus = "clearing_debt"
	StatusBankingTime  SessionStatus = "banking_time"
)

var ErrCorruptSession = errors.New("некорректная запись сессии")

// Session текущее состояние пользователя. Реализации: *Working, *OnBreak, *ExtraWork.
type Session interface {
	Status() SessionStatus
	StartedAt() time.Time
	session()
}

// Working рабочий день идет
type Working struct {
	Start        time.Time
	BreakSeconds int64
	Remote       bool
}

func (s *Working) Status() SessionStatus { return StatusWorking }
func (s *Working) StartedAt() time.Time  { return s.Start }
func (*Working) session()                {}

// WorkKind тип записи в журнал работы
func (s *Working) WorkKind() WorkKind {
	if s.Remote {
		return WorkKindRemote
	}
	return WorkKindOffice
}

// OnBreak сотрудник на перерыве; день продолжается
type OnBreak struct {
	Working
	BreakStart time.Time
}

func (s *OnBreak) Status() SessionStatus { return StatusOnBreak }

// ExtraWork отработка долга или работа в банк времени
type ExtraWork struct {
	Kind  SessionStatus
	Start time.Time
}

func (s *ExtraWork) Status() SessionStatus { return s.Kind }
func (s *ExtraWork) StartedAt() time.Time  { return s.Start }
func (*ExtraWork) session()                {}

// SessionRecord строка таблицы work_sessions
type SessionRecord struct {
	UserID         int64         `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Status         SessionStatus `gorm:"type:varchar(20);not null" json:"status"`
	StartTime      time.Time     `gorm:"not null" json:"start_time"`
	BreakSeconds   int64         `gorm:"not null;default:0" json:"break_seconds"`
	BreakStartTime *time.Time    `json:"break_start_time"`
	IsRemote       bool          `gorm:"not null;default:false" json:"is_remote"`
	Version        int64         `gorm:"not null;default:1" json:"version"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SessionRecord) TableName() string {
	return "work_sessions"
}

// EncodeSession переводит сессию в строку БД. Время хранится в UTC с точностью до секунды.
func EncodeSession(userID int64, s Session) (*SessionRecord, error) {
	rec := &SessionRecord{UserID: userID, Status: s.Status()}

	switch v := s.(type) {
	case *Working:
		rec.StartTime = storeTime(v.Start)
		rec.BreakSeconds = v.BreakSeconds
		rec.IsRemote = v.Remote
	case *OnBreak:
		rec.StartTime = storeTime(v.Start)
		rec.BreakSeconds = v.BreakSeconds
		rec.IsRemote = v.Remote
		bs := storeTime(v.BreakStart)
		rec.BreakStartTime = &bs
	case *ExtraWork:
		if v.Kind != StatusClearingDebt && v.Kind != StatusBankingTime {
			return nil, fmt.Errorf("%w: extra work kind %q", ErrCorruptSession, v.Kind)
		}
		rec.StartTime = storeTime(v.Start)
	default:
		return nil, fmt.Errorf("%w: unknown session type %T", ErrCorruptSession, s)
	}

	return rec, nil
}

// Decode собирает сессию из строки, проверяя набор полей для каждого статуса.
func (r *SessionRecord) Decode(loc *time.Location) (Session, error) {
	if r.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: user %d has no start time", ErrCorruptSession, r.UserID)
	}
	if r.BreakSeconds < 0 {
		return nil, fmt.Errorf("%w: user %d has negative break", ErrCorruptSession, r.UserID)
	}
	start := r.StartTime.In(loc)

	switch r.Status {
	case StatusWorking:
		if r.BreakStartTime != nil {
			return nil, fmt.Errorf("%w: working session with break start", ErrCorruptSession)
		}
		return &Working{Start: start, BreakSeconds: r.BreakSeconds, Remote: r.IsRemote}, nil
	case StatusOnBreak:
		if r.BreakStartTime == nil {
			return nil, fmt.Errorf("%w: break without start time", ErrCorruptSession)
		}
		return &OnBreak{
			Working:    Working{Start: start, BreakSeconds: r.BreakSeconds, Remote: r.IsRemote},
			BreakStart: r.BreakStartTime.In(loc),
		}, nil
	case StatusClearingDebt, StatusBankingTime:
		if r.BreakStartTime != nil || r.BreakSeconds != 0 || r.IsRemote {
			return nil, fmt.Errorf("%w: extra work with workday fields", ErrCorruptSession)
		}
		return &ExtraWork{Kind: r.Status, Start: start}, nil
	}

	return nil, fmt.Errorf("%w: unknown status %q", ErrCorruptSession, r.Status)
}

func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
