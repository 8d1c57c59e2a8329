package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"hr-time-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkdayWithBreakClosesNormally(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)

	e.clock.Set(at(12, 0))
	_, err = e.sessions.StartBreak(e.ctx, 1)
	require.NoError(t, err)

	e.clock.Set(at(12, 10))
	w, err := e.sessions.EndBreak(e.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(600), w.BreakSeconds)

	e.clock.Set(at(17, 30))
	res, err := e.sessions.EndWork(e.ctx, 1)
	require.NoError(t, err)
	require.False(t, res.NeedsEarlyLeaveDecision)
	require.NotNil(t, res.Closed)

	entry := res.Closed.Entry
	assert.Equal(t, int64(30000), entry.TotalWorkSeconds)
	assert.Equal(t, int64(600), entry.TotalBreakSeconds)
	assert.Equal(t, int64(entry.EndTime.Sub(entry.StartTime)/time.Second)-entry.TotalBreakSeconds, entry.TotalWorkSeconds)
	assert.Equal(t, models.WorkKindOffice, entry.WorkKind)
	assert.Equal(t, int64(3000), res.Closed.BreakCredited)

	assert.Equal(t, int64(3000), e.bank(t, 1))
	assert.Nil(t, e.session(t, 1))
	assert.Len(t, e.workLogs(t, 1), 1)
}

func TestEarlyLeaveNeedsDecisionAndBankCoversIt(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)
	require.NoError(t, e.store.AdjustBankBalance(e.ctx, 1, 3600))

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)

	e.clock.Set(at(13, 0))
	_, err = e.sessions.StartBreak(e.ctx, 1)
	require.NoError(t, err)
	e.clock.Set(at(13, 20))
	_, err = e.sessions.EndBreak(e.ctx, 1)
	require.NoError(t, err)

	e.clock.Set(at(17, 10))
	res, err := e.sessions.EndWork(e.ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.NeedsEarlyLeaveDecision)
	assert.Equal(t, int64(600), res.Shortfall)
	assert.Equal(t, int64(28200), res.WorkedSeconds)

	// ничего не изменилось
	assert.IsType(t, &models.Working{}, e.session(t, 1))
	assert.Empty(t, e.workLogs(t, 1))

	closed, err := e.sessions.CloseEarlyUsingBank(e.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(600), closed.BankDebited)
	assert.Equal(t, int64(28200), closed.Entry.TotalWorkSeconds)
	assert.Equal(t, int64(600), closed.Entry.BankDebitedSeconds)
	assert.Zero(t, closed.BreakCredited)

	assert.Equal(t, int64(3000), e.bank(t, 1))
	assert.Empty(t, e.pendingDebts(t, 1))
	assert.Nil(t, e.session(t, 1))
}

func TestCloseEarlyUsingBankInsufficient(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)
	require.NoError(t, e.store.AdjustBankBalance(e.ctx, 1, 100))

	_, err := e.sessions.StartWork(e.ctx, 1, true)
	require.NoError(t, err)

	e.clock.Set(at(16, 50))
	_, err = e.sessions.CloseEarlyUsingBank(e.ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientBank)
	assert.True(t, IsRejection(err))

	var shortfall *ShortfallError
	require.True(t, errors.As(err, &shortfall))
	assert.Equal(t, int64(500), shortfall.Missing)

	// транзакция откатилась
	assert.Equal(t, int64(100), e.bank(t, 1))
	assert.IsType(t, &models.Working{}, e.session(t, 1))
	assert.Empty(t, e.workLogs(t, 1))
}

func TestCloseEarlyWithDebtAccruesShortfall(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)

	e.clock.Set(at(16, 0))
	closed, err := e.sessions.CloseEarlyWithDebt(e.ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, closed.Debt)

	debts := e.pendingDebts(t, 1)
	require.Len(t, debts, 1)
	assert.Equal(t, int64(3600), debts[0].AmountSeconds)
	assert.Equal(t, "2025-08-04", debts[0].DateIncurred)
	assert.Zero(t, e.bank(t, 1))
}

func TestCloseEarlyForgivenLeavesNoDebt(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)

	e.clock.Set(at(12, 0))
	closed, err := e.sessions.CloseEarlyForgiven(e.ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, closed.Debt)
	assert.Equal(t, int64(10800), closed.Entry.TotalWorkSeconds)

	assert.Empty(t, e.pendingDebts(t, 1))
	assert.Zero(t, e.bank(t, 1))
}

func TestBreakBudgetIsNeverExceeded(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)

	_, err = e.sessions.StartBreak(e.ctx, 1)
	require.NoError(t, err)
	e.clock.Advance(time.Hour)
	_, err = e.sessions.EndBreak(e.ctx, 1)
	require.NoError(t, err)

	_, err = e.sessions.StartBreak(e.ctx, 1)
	assert.ErrorIs(t, err, ErrBreakBudgetExhausted)

	s := e.session(t, 1)
	require.IsType(t, &models.Working{}, s)
	assert.Equal(t, int64(3600), s.(*models.Working).BreakSeconds)
}

func TestTransitionPreconditions(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartBreak(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = e.sessions.EndBreak(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = e.sessions.EndWork(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = e.sessions.EndExtraWork(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)

	_, err = e.sessions.StartWork(e.ctx, 1, true)
	assert.ErrorIs(t, err, ErrAlreadyInSession)
	_, err = e.sessions.StartExtraWork(e.ctx, 1, models.StatusBankingTime)
	assert.ErrorIs(t, err, ErrAlreadyInSession)
	_, err = e.sessions.EndBreak(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNotOnBreak)
	_, err = e.sessions.EndExtraWork(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNotInExtraWork)

	_, err = e.sessions.StartBreak(e.ctx, 1)
	require.NoError(t, err)
	_, err = e.sessions.EndWork(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNotWorking)
	_, err = e.sessions.StartBreak(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNotWorking)

	_, err = e.sessions.StartWork(e.ctx, 99, false)
	assert.ErrorIs(t, err, ErrUserNotRegistered)
	_, err = e.sessions.StartExtraWork(e.ctx, 1, models.StatusWorking)
	assert.ErrorIs(t, err, ErrInvalidExtraWorkKind)
}

func TestClearingDebtFIFO(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	require.NoError(t, e.store.AppendDebt(e.ctx, &models.DebtEntry{UserID: 1, AmountSeconds: 300, DateIncurred: "2025-08-02"}))
	require.NoError(t, e.store.AppendDebt(e.ctx, &models.DebtEntry{UserID: 1, AmountSeconds: 500, DateIncurred: "2025-08-01"}))

	e.clock.Set(at(18, 0))
	_, err := e.sessions.StartExtraWork(e.ctx, 1, models.StatusClearingDebt)
	require.NoError(t, err)

	e.clock.Advance(700 * time.Second)
	res, err := e.sessions.EndExtraWork(e.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(700), res.ClearedSeconds)
	assert.Equal(t, int64(100), res.RemainingDebt)

	debts := e.pendingDebts(t, 1)
	require.Len(t, debts, 1)
	assert.Equal(t, "2025-08-02", debts[0].DateIncurred)
	assert.Equal(t, int64(100), debts[0].AmountSeconds)

	cleared, err := e.store.SumDebtClearedBetween(e.ctx, 1, at(0, 0), at(23, 59))
	require.NoError(t, err)
	assert.Equal(t, int64(700), cleared)
	assert.Nil(t, e.session(t, 1))
}

func TestClearingDebtSurplusIsNotBanked(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)
	require.NoError(t, e.store.AppendDebt(e.ctx, &models.DebtEntry{UserID: 1, AmountSeconds: 300, DateIncurred: "2025-08-01"}))

	_, err := e.sessions.StartExtraWork(e.ctx, 1, models.StatusClearingDebt)
	require.NoError(t, err)
	e.clock.Advance(time.Hour)

	res, err := e.sessions.EndExtraWork(e.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.ElapsedSeconds)
	assert.Equal(t, int64(300), res.ClearedSeconds)
	assert.Zero(t, res.RemainingDebt)
	assert.Zero(t, e.bank(t, 1))
}

func TestBankingTimeCreditsBank(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	e.clock.Set(at(10, 0))
	_, err := e.sessions.StartExtraWork(e.ctx, 1, models.StatusBankingTime)
	require.NoError(t, err)

	e.clock.Set(at(11, 30))
	res, err := e.sessions.EndExtraWork(e.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5400), res.BankedSeconds)
	assert.Equal(t, int64(5400), e.bank(t, 1))

	logs := e.workLogs(t, 1)
	require.Len(t, logs, 1)
	assert.Equal(t, models.WorkKindBanking, logs[0].WorkKind)
	assert.Equal(t, int64(5400), logs[0].TotalWorkSeconds)
}

func TestStatusSnapshot(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	snap, err := e.sessions.Status(e.ctx, 1)
	require.NoError(t, err)
	assert.True(t, snap.IsIdle())

	_, err = e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)
	e.clock.Set(at(11, 0))
	_, err = e.sessions.StartBreak(e.ctx, 1)
	require.NoError(t, err)
	e.clock.Set(at(11, 15))

	snap, err = e.sessions.Status(e.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnBreak, snap.Session.Status())
	assert.Equal(t, int64(8100), snap.ElapsedSeconds)
	assert.Equal(t, int64(900), snap.CurrentBreakSeconds)
	assert.Equal(t, int64(900), snap.BreakUsedSeconds)
	assert.Equal(t, int64(2700), snap.BreakRemainingSeconds)
	assert.Equal(t, int64(7200), snap.WorkedSeconds)

	_, err = e.sessions.Status(e.ctx, 2)
	assert.ErrorIs(t, err, ErrUserNotRegistered)
}

func TestOneWorkdayPerDate(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)
	e.clock.Set(at(11, 0))
	_, err = e.sessions.CloseEarlyForgiven(e.ctx, 1)
	require.NoError(t, err)

	closed, err := e.sessions.WorkdayClosed(e.ctx, 1)
	require.NoError(t, err)
	assert.True(t, closed)

	e.clock.Set(at(12, 0))
	_, err = e.sessions.StartWork(e.ctx, 1, true)
	assert.ErrorIs(t, err, ErrWorkdayAlreadyClosed)
	assert.True(t, IsRejection(err))
	assert.Nil(t, e.session(t, 1))

	// доп. работа в тот же день разрешена
	_, err = e.sessions.StartExtraWork(e.ctx, 1, models.StatusBankingTime)
	require.NoError(t, err)
	e.clock.Set(at(13, 0))
	_, err = e.sessions.EndExtraWork(e.ctx, 1)
	require.NoError(t, err)

	e.clock.Set(at(9, 0).AddDate(0, 0, 1))
	closed, err = e.sessions.WorkdayClosed(e.ctx, 1)
	require.NoError(t, err)
	assert.False(t, closed)
	_, err = e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)
}

func TestStartWorkDuringAbsence(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.absences.Register(e.ctx, 1, models.AbsenceTypeVacation, day(4), day(8))
	require.NoError(t, err)

	_, err = e.sessions.StartWork(e.ctx, 1, false)
	assert.ErrorIs(t, err, ErrOnAbsence)
	assert.True(t, IsRejection(err))
	assert.Contains(t, err.Error(), "04.08.2025")
	assert.Nil(t, e.session(t, 1))

	e.clock.Set(at(9, 0).AddDate(0, 0, 5))
	_, err = e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)
}

func TestConcurrentStartBreakHasOneWinner(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)
	e.clock.Set(at(12, 0))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		started  int
		rejected int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.sessions.StartBreak(e.ctx, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case errors.Is(err, ErrNotWorking):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	assert.Equal(t, 7, rejected)
	assert.IsType(t, &models.OnBreak{}, e.session(t, 1))
}

func TestConcurrentStartWorkCreatesOneSession(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		started  int
		rejected int
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.sessions.StartWork(e.ctx, 1, i%2 == 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case errors.Is(err, ErrAlreadyInSession):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	assert.Equal(t, 7, rejected)
	assert.IsType(t, &models.Working{}, e.session(t, 1))
}
