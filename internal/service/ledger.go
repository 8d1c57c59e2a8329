package service

import (
	"context"
	"fmt"
	"hr-time-bot/internal/clock"
	"hr-time-bot/internal/config"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/repository"
	"time"

	"github.com/sirupsen/logrus"
)

// TimeLedger арифметика перерывов, долга и банка времени.
// Балансы пользователя меняются только через него.
type TimeLedger struct {
	breakLimit int64
	minWork    int64
	clock      clock.Clock
	logger     *logrus.Logger
}

func NewTimeLedger(cfg *config.BotConfig, clk clock.Clock, logger *logrus.Logger) *TimeLedger {
	return &TimeLedger{
		breakLimit: cfg.DailyBreakLimitSeconds,
		minWork:    cfg.MinWorkSeconds,
		clock:      clk,
		logger:     logger,
	}
}

// BreakLimit дневной лимит перерывов в секундах
func (l *TimeLedger) BreakLimit() int64 {
	return l.breakLimit
}

// MinWork минимальная продолжительность рабочего дня в секундах
func (l *TimeLedger) MinWork() int64 {
	return l.minWork
}

// BreakRemaining остаток лимита перерывов, может быть отрицательным
func (l *TimeLedger) BreakRemaining(w *models.Working) int64 {
	return l.breakLimit - w.BreakSeconds
}

// ConsumeBreak начинает перерыв, если лимит не исчерпан. Исходная сессия не меняется.
func (l *TimeLedger) ConsumeBreak(w *models.Working, now time.Time) (*models.OnBreak, error) {
	remaining := l.BreakRemaining(w)
	if remaining <= 0 {
		return nil, &ShortfallError{Err: ErrBreakBudgetExhausted, Missing: -remaining}
	}
	return &models.OnBreak{Working: *w, BreakStart: now}, nil
}

// CloseBreak добавляет длительность перерыва к накопленной и возвращает рабочую сессию
func (l *TimeLedger) CloseBreak(b *models.OnBreak, now time.Time) *models.Working {
	w := b.Working
	w.BreakSeconds += seconds(b.BreakStart, now)
	return &w
}

// Worked отработанное время: (now - start) - перерывы, не меньше нуля
func (l *TimeLedger) Worked(w *models.Working, now time.Time) int64 {
	return max(seconds(w.Start, now)-w.BreakSeconds, 0)
}

// Shortfall недоработка до минимальной продолжительности дня
func (l *TimeLedger) Shortfall(worked int64) int64 {
	return max(l.minWork-worked, 0)
}

// CreditUnusedBreak зачисляет неиспользованный лимит перерывов в банк
func (l *TimeLedger) CreditUnusedBreak(ctx context.Context, tx repository.Store, userID int64, w *models.Working) (int64, error) {
	unused := l.BreakRemaining(w)
	if unused <= 0 {
		return 0, nil
	}
	if err := tx.AdjustBankBalance(ctx, userID, unused); err != nil {
		return 0, fmt.Errorf("credit unused break: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"seconds": unused,
	}).Info("Unused break credited to time bank")

	return unused, nil
}

// CreditBank зачисляет отработанное в банк времени
func (l *TimeLedger) CreditBank(ctx context.Context, tx repository.Store, userID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := tx.AdjustBankBalance(ctx, userID, amount); err != nil {
		return fmt.Errorf("credit time bank: %w", err)
	}
	return nil
}

// AccrueDebt записывает долг текущей датой
func (l *TimeLedger) AccrueDebt(ctx context.Context, tx repository.Store, userID int64, shortfall int64) (*models.DebtEntry, error) {
	if shortfall <= 0 {
		return nil, nil
	}

	debt := &models.DebtEntry{
		UserID:        userID,
		AmountSeconds: shortfall,
		DateIncurred:  l.clock.Now().Format(time.DateOnly),
	}
	if err := tx.AppendDebt(ctx, debt); err != nil {
		return nil, fmt.Errorf("accrue debt: %w", err)
	}
	return debt, nil
}

// debtUpdate новое состояние записи долга после отработки
type debtUpdate struct {
	ID     uint
	Amount int64
	Status models.DebtStatus
}

// allocateFIFO распределяет available по долгам от старых к новым.
// Полностью покрытые гасятся, первый не покрытый уменьшается, дальше не идем.
func allocateFIFO(debts []models.DebtEntry, available int64) ([]debtUpdate, int64) {
	var (
		updates []debtUpdate
		cleared int64
	)

	for _, d := range debts {
		left := available - cleared
		if left <= 0 {
			break
		}
		if d.AmountSeconds <= left {
			updates = append(updates, debtUpdate{ID: d.ID, Amount: 0, Status: models.DebtCleared})
			cleared += d.AmountSeconds
			continue
		}
		updates = append(updates, debtUpdate{ID: d.ID, Amount: d.AmountSeconds - left, Status: models.DebtPending})
		cleared += left
		break
	}

	return updates, cleared
}

// ClearDebtFIFO гасит долги отработанным временем, возвращает погашенную сумму
func (l *TimeLedger) ClearDebtFIFO(ctx context.Context, tx repository.Store, userID int64, available int64) (int64, error) {
	if available <= 0 {
		return 0, nil
	}

	debts, err := tx.PendingDebts(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load pending debts: %w", err)
	}

	updates, cleared := allocateFIFO(debts, available)
	for _, u := range updates {
		if err := tx.UpdateDebt(ctx, u.ID, u.Amount, u.Status); err != nil {
			return 0, fmt.Errorf("update debt %d: %w", u.ID, err)
		}
	}

	l.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"available": available,
		"cleared":   cleared,
		"entries":   len(updates),
	}).Info("Work debt cleared")

	return cleared, nil
}

// DebitBank списывает время из банка. При нехватке возвращает ShortfallError.
func (l *TimeLedger) DebitBank(ctx context.Context, tx repository.Store, userID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}

	ok, err := tx.DebitBankIfSufficient(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("debit time bank: %w", err)
	}
	if ok {
		l.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"seconds": amount,
		}).Info("Time bank debited")
		return nil
	}

	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return ErrUserNotRegistered
	}
	return &ShortfallError{Err: ErrInsufficientBank, Missing: amount - max(user.TimeBankSeconds, 0)}
}

// CurrentPeriodStart начало расчетного периода долга (календарный месяц)
func (l *TimeLedger) CurrentPeriodStart(now time.Time) time.Time {
	return clock.StartOfMonth(now)
}

// TotalPendingDebt непогашенный долг за текущий период
func (l *TimeLedger) TotalPendingDebt(ctx context.Context, store repository.Store, userID int64) (int64, error) {
	since := l.CurrentPeriodStart(l.clock.Now()).Format(time.DateOnly)
	total, err := store.SumPendingDebt(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("sum pending debt: %w", err)
	}
	return total, nil
}

// seconds целое число секунд между from и to, не меньше нуля
func seconds(from, to time.Time) int64 {
	return max(int64(to.Sub(from)/time.Second), 0)
}
