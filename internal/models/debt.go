package models

import "time"

type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtCleared DebtStatus = "cleared"
)

// DebtEntry долг за ранний уход. Не удаляется, только уменьшается при отработке.
type DebtEntry struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	UserID        int64      `gorm:"not null;index" json:"user_id"`
	AmountSeconds int64      `gorm:"not null" json:"amount_seconds"`
	DateIncurred  string     `gorm:"type:varchar(10);not null;index" json:"date_incurred"` // YYYY-MM-DD в часовом поясе организации
	Status        DebtStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DebtEntry) TableName() string {
	return "work_debt"
}
