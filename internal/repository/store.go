package repository

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store хранилище учета времени. Все многошаговые изменения выполняются через Transaction.
type Store interface {
	UserRepository
	SessionRepository
	WorkLogRepository
	DebtRepository
	AbsencePeriodRepository
	RequestRepository
	NonWorkingDayRepository

	// Transaction выполняет fn в одной транзакции; ошибка из fn откатывает все изменения.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger

	*GormUserRepository
	*GormSessionRepository
	*GormWorkLogRepository
	*GormDebtRepository
	*GormAbsencePeriodRepository
	*GormRequestRepository
	*GormNonWorkingDayRepository
}

// NewGormStore создает таблицы (если их нет) и собирает репозитории над одним соединением.
func NewGormStore(db *gorm.DB, logger *logrus.Logger) (*GormStore, error) {
	users, err := NewGormUserRepository(db, logger)
	if err != nil {
		return nil, err
	}
	sessions, err := NewGormSessionRepository(db, logger)
	if err != nil {
		return nil, err
	}
	workLogs, err := NewGormWorkLogRepository(db, logger)
	if err != nil {
		return nil, err
	}
	debts, err := NewGormDebtRepository(db, logger)
	if err != nil {
		return nil, err
	}
	absences, err := NewGormAbsencePeriodRepository(db, logger)
	if err != nil {
		return nil, err
	}
	requests, err := NewGormRequestRepository(db, logger)
	if err != nil {
		return nil, err
	}
	days, err := NewGormNonWorkingDayRepository(db, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Ledger store initialized")

	return &GormStore{
		db:                          db,
		logger:                      logger,
		GormUserRepository:          users,
		GormSessionRepository:       sessions,
		GormWorkLogRepository:       workLogs,
		GormDebtRepository:          debts,
		GormAbsencePeriodRepository: absences,
		GormRequestRepository:       requests,
		GormNonWorkingDayRepository: days,
	}, nil
}

// withDB возвращает копию хранилища поверх другого *gorm.DB (обычно транзакции)
func (s *GormStore) withDB(db *gorm.DB) *GormStore {
	return &GormStore{
		db:                          db,
		logger:                      s.logger,
		GormUserRepository:          &GormUserRepository{db: db, logger: s.logger},
		GormSessionRepository:       &GormSessionRepository{db: db, logger: s.logger},
		GormWorkLogRepository:       &GormWorkLogRepository{db: db, logger: s.logger},
		GormDebtRepository:          &GormDebtRepository{db: db, logger: s.logger},
		GormAbsencePeriodRepository: &GormAbsencePeriodRepository{db: db, logger: s.logger},
		GormRequestRepository:       &GormRequestRepository{db: db, logger: s.logger},
		GormNonWorkingDayRepository: &GormNonWorkingDayRepository{db: db, logger: s.logger},
	}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.withDB(tx))
	})
}

// Close закрывает соединение с БД
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
