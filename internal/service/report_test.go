package service

import (
	"testing"
	"time"

	"hr-time-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployeeReport(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 1, models.RoleEmployee)

	_, err := e.sessions.StartWork(e.ctx, 1, true)
	require.NoError(t, err)
	e.clock.Set(at(18, 0))
	_, err = e.sessions.EndWork(e.ctx, 1)
	require.NoError(t, err)

	_, err = e.sessions.StartExtraWork(e.ctx, 1, models.StatusBankingTime)
	require.NoError(t, err)
	e.clock.Set(at(19, 0))
	_, err = e.sessions.EndExtraWork(e.ctx, 1)
	require.NoError(t, err)

	_, err = e.absences.Register(e.ctx, 1, models.AbsenceTypeSickLeave, day(5), day(6))
	require.NoError(t, err)

	r, err := e.reports.EmployeeReport(e.ctx, 1, day(1), day(31))
	require.NoError(t, err)
	assert.Equal(t, 1, r.DaysWorked)
	assert.Equal(t, int64(32400), r.WorkSeconds)
	assert.Equal(t, int64(32400), r.RemoteSeconds)
	assert.Equal(t, int64(3600), r.BankingSeconds)
	assert.Len(t, r.Absences, 1)

	r, err = e.reports.EmployeeReport(e.ctx, 1, day(5), day(5))
	require.NoError(t, err)
	assert.Zero(t, r.WorkSeconds)

	_, err = e.reports.EmployeeReport(e.ctx, 1, day(5), day(4))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestTeamStatus(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 10, models.RoleManager)
	e.addUser(t, 1, models.RoleEmployee, 10)
	e.addUser(t, 2, models.RoleEmployee, 10)
	e.addUser(t, 3, models.RoleEmployee, 10)
	e.addUser(t, 4, models.RoleEmployee, 10)

	_, err := e.sessions.StartWork(e.ctx, 1, false)
	require.NoError(t, err)
	_, err = e.absences.Register(e.ctx, 2, models.AbsenceTypeVacation, day(1), day(10))
	require.NoError(t, err)
	_, err = e.sessions.StartWork(e.ctx, 3, false)
	require.NoError(t, err)
	e.clock.Set(at(12, 30))
	_, err = e.sessions.CloseEarlyForgiven(e.ctx, 3)
	require.NoError(t, err)

	statuses, err := e.reports.TeamStatus(e.ctx, 10)
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	byID := map[int64]MemberStatus{}
	for _, st := range statuses {
		byID[st.User.ID] = st
	}
	assert.Equal(t, MemberInSession, byID[1].State)
	assert.Equal(t, MemberAbsent, byID[2].State)
	assert.Equal(t, MemberFinished, byID[3].State)
	assert.True(t, byID[3].FinishedAt.Equal(at(12, 30)))
	assert.Equal(t, MemberOffline, byID[4].State)

	_, err = e.reports.TeamStatus(e.ctx, 1)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestTeamReport(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, 10, models.RoleManager)
	e.addUser(t, 1, models.RoleEmployee, 10)
	e.addUser(t, 2, models.RoleEmployee)

	reports, err := e.reports.TeamReport(e.ctx, 10, day(1), day(31))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(1), reports[0].User.ID)
	assert.Equal(t, day(31), reports[0].To)
	assert.Equal(t, time.August, reports[0].From.Month())
}
