package models

import "time"

type RequestType string

const (
	RequestEarlyLeave    RequestType = "early_leave"
	RequestDayOff        RequestType = "day_off"
	RequestRemoteWork    RequestType = "remote_work"
	RequestBankingNotice RequestType = "banking_notice"
)

// Title название запроса для сообщений
func (t RequestType) Title() string {
	switch t {
	case RequestEarlyLeave:
		return "Ранний уход"
	case RequestDayOff:
		return "Отгул"
	case RequestRemoteWork:
		return "Удаленная работа"
	case RequestBankingNotice:
		return "Работа в банк времени"
	}
	return string(t)
}

// IsNotice запрос только для сведения, без одобрения
func (t RequestType) IsNotice() bool {
	return t == RequestBankingNotice
}

type RequestStatus string

const (
	RequestPending      RequestStatus = "pending"
	RequestApproved     RequestStatus = "approved"
	RequestDenied       RequestStatus = "denied"
	RequestAcknowledged RequestStatus = "acknowledged"
	// RequestExpired запрос потерял смысл до решения: день закрыт иначе или карточка не доставлена
	RequestExpired RequestStatus = "expired"
)

// RequestPayload данные запроса
type RequestPayload struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD для отгула и удаленки
}

type ApprovalRequest struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	RequesterID int64          `gorm:"not null;index" json:"requester_id"`
	Type        RequestType    `gorm:"type:varchar(20);not null;index" json:"type"`
	Payload     RequestPayload `gorm:"serializer:json" json:"payload"`
	Status      RequestStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Карточки запроса у руководителей, для сверки после решения
	Manager1ChatID    *int64 `gorm:"column:manager_1_chat_id" json:"manager_1_chat_id"`
	Manager1MessageID *int   `gorm:"column:manager_1_message_id" json:"manager_1_message_id"`
	Manager2ChatID    *int64 `gorm:"column:manager_2_chat_id" json:"manager_2_chat_id"`
	Manager2MessageID *int   `gorm:"column:manager_2_message_id" json:"manager_2_message_id"`

	DecidedBy *int64     `json:"decided_by"`
	DecidedAt *time.Time `json:"decided_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ApprovalRequest) TableName() string {
	return "requests"
}

// Recipients id руководителей, которым отправлен запрос
func (r *ApprovalRequest) Recipients() []int64 {
	var ids []int64
	if r.Manager1ChatID != nil {
		ids = append(ids, *r.Manager1ChatID)
	}
	if r.Manager2ChatID != nil && (r.Manager1ChatID == nil || *r.Manager2ChatID != *r.Manager1ChatID) {
		ids = append(ids, *r.Manager2ChatID)
	}
	return ids
}

// IsRecipient адресован ли запрос руководителю
func (r *ApprovalRequest) IsRecipient(managerID int64) bool {
	for _, id := range r.Recipients() {
		if id == managerID {
			return true
		}
	}
	return false
}
