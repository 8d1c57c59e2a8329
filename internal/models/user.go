package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// ParseRole разбирает роль из аргумента команды
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleManager, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("неизвестная роль: %q", s)
}

// CanDecide может ли роль принимать решения по запросам
func (r Role) CanDecide() bool {
	switch r {
	case RoleManager, RoleAdmin:
		return true
	case RoleEmployee:
		return false
	}
	return false
}

type User struct {
	ID              int64     `gorm:"primaryKey;autoIncrement:false" json:"id"` // id пользователя в Telegram
	FullName        string    `gorm:"not null" json:"full_name"`
	Role            Role      `gorm:"type:varchar(20);not null;default:'employee'" json:"role"`
	Manager1ID      *int64    `gorm:"column:manager_1_id;index" json:"manager_1_id"`
	Manager2ID      *int64    `gorm:"column:manager_2_id;index" json:"manager_2_id"`
	TimeBankSeconds int64     `gorm:"not null;default:0" json:"time_bank_seconds"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName задает имя таблицы в БД
func (User) TableName() string {
	return "users"
}

// IsAdmin проверяет, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ManagerIDs возвращает руководителей без повторов, в порядке слотов
func (u *User) ManagerIDs() []int64 {
	var ids []int64
	for _, id := range []*int64{u.Manager1ID, u.Manager2ID} {
		if id == nil || *id == 0 {
			continue
		}
		if len(ids) == 1 && ids[0] == *id {
			continue
		}
		ids = append(ids, *id)
	}
	return ids
}

// IsValid проверяет валидность данных
func (u *User) IsValid() bool {
	if u.ID == 0 || u.FullName == "" {
		return false
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return false
	}
	return true
}
