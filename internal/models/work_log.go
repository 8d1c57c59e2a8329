package models

import "time"

type WorkKind string

const (
	WorkKindOffice  WorkKind = "office"
	WorkKindRemote  WorkKind = "remote"
	WorkKindBanking WorkKind = "banking"
)

// WorkLogEntry закрытый рабочий интервал, только добавляется
type WorkLogEntry struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	UserID             int64     `gorm:"not null;index" json:"user_id"`
	StartTime          time.Time `gorm:"not null;index" json:"start_time"`
	EndTime            time.Time `gorm:"not null" json:"end_time"`
	TotalWorkSeconds   int64     `gorm:"not null;default:0" json:"total_work_seconds"`
	TotalBreakSeconds  int64     `gorm:"not null;default:0" json:"total_break_seconds"`
	WorkKind           WorkKind  `gorm:"type:varchar(20);not null;default:'office'" json:"work_kind"`
	BankDebitedSeconds int64     `gorm:"not null;default:0" json:"bank_debited_seconds"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (WorkLogEntry) TableName() string {
	return "work_log"
}

// IsValid проверяет, что работа = (конец - начало) - перерывы и не отрицательна
func (e *WorkLogEntry) IsValid() bool {
	if e.UserID == 0 || e.StartTime.IsZero() || e.EndTime.Before(e.StartTime) {
		return false
	}
	if e.TotalWorkSeconds < 0 || e.TotalBreakSeconds < 0 {
		return false
	}
	elapsed := int64(e.EndTime.Sub(e.StartTime).Seconds())
	return e.TotalWorkSeconds == max(elapsed-e.TotalBreakSeconds, 0)
}

// DebtClearLogEntry интервал отработки долга
type DebtClearLogEntry struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	UserID         int64     `gorm:"not null;index" json:"user_id"`
	StartTime      time.Time `gorm:"not null;index" json:"start_time"`
	EndTime        time.Time `gorm:"not null" json:"end_time"`
	ClearedSeconds int64     `gorm:"not null;default:0" json:"cleared_seconds"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DebtClearLogEntry) TableName() string {
	return "debt_log"
}
