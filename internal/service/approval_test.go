package service

import (
	"sync"
	"testing"

	"hr-time-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	employeeID = int64(1)
	managerA   = int64(10)
	managerB   = int64(20)
	outsiderID = int64(30)
	adminID    = int64(40)
)

// newApprovalEnv сотрудник с двумя руководителями и начатым днем
func newApprovalEnv(t *testing.T) *testEnv {
	t.Helper()
	e := newTestEnv(t)
	e.addUser(t, managerA, models.RoleManager)
	e.addUser(t, managerB, models.RoleManager)
	e.addUser(t, outsiderID, models.RoleManager)
	e.addUser(t, adminID, models.RoleAdmin)
	e.addUser(t, employeeID, models.RoleEmployee, managerA, managerB)

	_, err := e.sessions.StartWork(e.ctx, employeeID, false)
	require.NoError(t, err)
	e.clock.Set(at(16, 0))
	return e
}

func (e *testEnv) earlyLeave(t *testing.T) *models.ApprovalRequest {
	t.Helper()
	user, err := e.users.Get(e.ctx, employeeID)
	require.NoError(t, err)

	req, recipients, err := e.approvals.CreateForRequester(e.ctx, user, models.RequestEarlyLeave,
		models.RequestPayload{Date: "2025-08-04"})
	require.NoError(t, err)
	assert.Equal(t, []int64{managerA, managerB}, recipients)
	return req
}

func TestTwoManagersFirstDecisionWins(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, res.SessionClosed)
	assert.Equal(t, models.RequestApproved, res.Request.Status)

	res, err = e.approvals.Decide(e.ctx, req.ID, managerB, DecisionDeny)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, res.Outcome)
	assert.Equal(t, models.RequestApproved, res.Request.Status)
	require.NotNil(t, res.Request.DecidedBy)
	assert.Equal(t, managerA, *res.Request.DecidedBy)

	stored, err := e.approvals.Get(e.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, stored.Status)

	// одобрение без прощения: долг на всю недоработку
	debts := e.pendingDebts(t, employeeID)
	require.Len(t, debts, 1)
	assert.Equal(t, int64(3600), debts[0].AmountSeconds)
	assert.Nil(t, e.session(t, employeeID))
}

func TestConcurrentDecisionsHaveOneWinner(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	deciders := []struct {
		id       int64
		decision Decision
	}{
		{managerA, DecisionApprove},
		{managerB, DecisionDeny},
		{managerA, DecisionApproveForgive},
		{managerB, DecisionApprove},
		{adminID, DecisionDeny},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []Decision
	)
	for _, d := range deciders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.approvals.Decide(e.ctx, req.ID, d.id, d.decision)
			if !assert.NoError(t, err) {
				return
			}
			if res.Outcome == OutcomeApplied {
				mu.Lock()
				winners = append(winners, d.decision)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)

	stored, err := e.approvals.Get(e.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, decisionStatus(winners[0]), stored.Status)

	debts := e.pendingDebts(t, employeeID)
	switch winners[0] {
	case DecisionApprove:
		assert.Len(t, debts, 1)
		assert.Nil(t, e.session(t, employeeID))
	case DecisionApproveForgive:
		assert.Empty(t, debts)
		assert.Nil(t, e.session(t, employeeID))
	case DecisionDeny:
		assert.Empty(t, debts)
		assert.NotNil(t, e.session(t, employeeID))
	}
}

func TestDenyLeavesSessionRunning(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerB, DecisionDeny)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.False(t, res.SessionClosed)
	assert.Equal(t, models.RequestDenied, res.Request.Status)

	assert.IsType(t, &models.Working{}, e.session(t, employeeID))
	assert.Empty(t, e.workLogs(t, employeeID))
}

func TestApproveForgiveClosesWithoutDebt(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerB, DecisionApproveForgive)
	require.NoError(t, err)
	assert.True(t, res.SessionClosed)
	require.NotNil(t, res.Close)
	assert.Nil(t, res.Close.Debt)
	assert.Empty(t, e.pendingDebts(t, employeeID))
}

func TestClosingWorkdayExpiresPendingEarlyLeave(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	closed, err := e.sessions.CloseEarlyForgiven(e.ctx, employeeID)
	require.NoError(t, err)
	require.Len(t, closed.Expired, 1)
	assert.Equal(t, req.ID, closed.Expired[0].ID)
	assert.Equal(t, models.RequestExpired, closed.Expired[0].Status)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, res.Outcome)
	assert.False(t, res.SessionClosed)
	assert.Equal(t, models.RequestExpired, res.Request.Status)
	assert.Nil(t, res.Request.DecidedBy)
	assert.Empty(t, e.pendingDebts(t, employeeID))
}

func TestStaleEarlyLeaveDoesNotCloseNextDay(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	// норма выполнена, день закрыт обычным путем
	e.clock.Set(at(18, 0))
	ended, err := e.sessions.EndWork(e.ctx, employeeID)
	require.NoError(t, err)
	require.NotNil(t, ended.Closed)
	require.Len(t, ended.Closed.Expired, 1)

	e.clock.Set(at(9, 0).AddDate(0, 0, 1))
	_, err = e.sessions.StartWork(e.ctx, employeeID, false)
	require.NoError(t, err)
	e.clock.Set(at(10, 0).AddDate(0, 0, 1))

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, res.Outcome)
	assert.False(t, res.SessionClosed)

	assert.IsType(t, &models.Working{}, e.session(t, employeeID))
	assert.Empty(t, e.pendingDebts(t, employeeID))
}

func TestEarlyLeaveForOtherDateLeavesSession(t *testing.T) {
	e := newApprovalEnv(t)

	req, _, err := e.approvals.Create(e.ctx, employeeID, models.RequestEarlyLeave,
		models.RequestPayload{Date: "2025-08-03"}, []int64{managerA})
	require.NoError(t, err)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.RequestApproved, res.Request.Status)
	assert.False(t, res.SessionClosed)
	assert.Equal(t, CloseSkippedOtherDay, res.CloseSkipped)

	assert.IsType(t, &models.Working{}, e.session(t, employeeID))
	assert.Empty(t, e.pendingDebts(t, employeeID))
}

func TestEarlyLeaveApprovedDuringBreak(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	_, err := e.sessions.StartBreak(e.ctx, employeeID)
	require.NoError(t, err)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.False(t, res.SessionClosed)
	assert.Equal(t, CloseSkippedOnBreak, res.CloseSkipped)

	assert.IsType(t, &models.OnBreak{}, e.session(t, employeeID))
	assert.Empty(t, e.pendingDebts(t, employeeID))
}

func TestExpireRequest(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	ok, err := e.approvals.Expire(e.ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.approvals.Expire(e.ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, res.Outcome)
	assert.Equal(t, models.RequestExpired, res.Request.Status)
	assert.IsType(t, &models.Working{}, e.session(t, employeeID))
}

func TestDecideAuthorization(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	_, err := e.approvals.Decide(e.ctx, req.ID, outsiderID, DecisionApprove)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = e.approvals.Decide(e.ctx, req.ID, employeeID, DecisionApprove)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = e.approvals.Decide(e.ctx, req.ID, 999, DecisionApprove)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = e.approvals.Decide(e.ctx, 12345, managerA, DecisionApprove)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = e.approvals.Decide(e.ctx, req.ID, managerA, DecisionAcknowledge)
	assert.ErrorIs(t, err, ErrDecisionNotAllowed)

	stored, err := e.approvals.Get(e.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)

	res, err := e.approvals.Decide(e.ctx, req.ID, adminID, DecisionDeny)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
}

func TestBankingNoticeIsAcknowledged(t *testing.T) {
	e := newApprovalEnv(t)

	req, _, err := e.approvals.Create(e.ctx, employeeID, models.RequestBankingNotice, models.RequestPayload{}, []int64{managerA})
	require.NoError(t, err)

	_, err = e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	assert.ErrorIs(t, err, ErrDecisionNotAllowed)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionAcknowledge)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAcknowledged, res.Request.Status)
}

func TestDayOffApprovalCreatesAbsence(t *testing.T) {
	e := newApprovalEnv(t)
	user, err := e.users.Get(e.ctx, employeeID)
	require.NoError(t, err)

	req, _, err := e.approvals.CreateForRequester(e.ctx, user, models.RequestDayOff, models.RequestPayload{Date: "2025-08-06"})
	require.NoError(t, err)

	res, err := e.approvals.Decide(e.ctx, req.ID, managerA, DecisionApprove)
	require.NoError(t, err)
	require.NotNil(t, res.Absence)
	assert.Equal(t, models.AbsenceTypeDayOff, res.Absence.Type)

	absence, err := e.store.CurrentAbsence(e.ctx, employeeID, "2025-08-06")
	require.NoError(t, err)
	require.NotNil(t, absence)
	assert.Equal(t, "2025-08-06", absence.StartDate)

	// рабочий день не тронут
	assert.NotNil(t, e.session(t, employeeID))
}

func TestRemoteWorkApproval(t *testing.T) {
	e := newApprovalEnv(t)
	user, err := e.users.Get(e.ctx, employeeID)
	require.NoError(t, err)

	ok, err := e.approvals.HasApproved(e.ctx, employeeID, models.RequestRemoteWork, "2025-08-05")
	require.NoError(t, err)
	assert.False(t, ok)

	req, _, err := e.approvals.CreateForRequester(e.ctx, user, models.RequestRemoteWork, models.RequestPayload{Date: "2025-08-05"})
	require.NoError(t, err)
	_, err = e.approvals.Decide(e.ctx, req.ID, managerB, DecisionApprove)
	require.NoError(t, err)

	ok, err = e.approvals.HasApproved(e.ctx, employeeID, models.RequestRemoteWork, "2025-08-05")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.approvals.HasApproved(e.ctx, employeeID, models.RequestRemoteWork, "2025-08-06")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateRequestValidation(t *testing.T) {
	e := newApprovalEnv(t)

	_, _, err := e.approvals.Create(e.ctx, employeeID, models.RequestEarlyLeave, models.RequestPayload{}, nil)
	assert.ErrorIs(t, err, ErrNoRecipients)
	_, _, err = e.approvals.Create(e.ctx, employeeID, models.RequestEarlyLeave, models.RequestPayload{}, []int64{0})
	assert.ErrorIs(t, err, ErrNoRecipients)
	_, _, err = e.approvals.Create(e.ctx, employeeID, models.RequestDayOff, models.RequestPayload{Date: "06.08.2025"}, []int64{managerA})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = e.approvals.Create(e.ctx, employeeID, models.RequestEarlyLeave, models.RequestPayload{}, []int64{managerA})
	assert.ErrorIs(t, err, ErrInvalidInput)

	req, recipients, err := e.approvals.Create(e.ctx, employeeID, models.RequestEarlyLeave,
		models.RequestPayload{Date: "2025-08-04"}, []int64{managerA, managerA})
	require.NoError(t, err)
	assert.Equal(t, []int64{managerA}, recipients)
	assert.Nil(t, req.Manager2ChatID)
}

func TestAttachMessages(t *testing.T) {
	e := newApprovalEnv(t)
	req := e.earlyLeave(t)

	require.NoError(t, e.approvals.AttachMessages(e.ctx, req, map[int64]int{managerA: 101, managerB: 202}))

	stored, err := e.approvals.Get(e.ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Manager1MessageID)
	require.NotNil(t, stored.Manager2MessageID)
	assert.Equal(t, 101, *stored.Manager1MessageID)
	assert.Equal(t, 202, *stored.Manager2MessageID)
}
