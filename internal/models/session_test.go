package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionEncodeDecode(t *testing.T) {
	loc := time.FixedZone("+07", 7*3600)
	start := time.Date(2025, 8, 4, 9, 0, 0, 0, loc)

	sessions := []Session{
		&Working{Start: start, BreakSeconds: 1200, Remote: true},
		&OnBreak{Working: Working{Start: start, BreakSeconds: 300}, BreakStart: start.Add(2 * time.Hour)},
		&ExtraWork{Kind: StatusClearingDebt, Start: start},
		&ExtraWork{Kind: StatusBankingTime, Start: start},
	}

	for _, s := range sessions {
		t.Run(string(s.Status()), func(t *testing.T) {
			rec, err := EncodeSession(7, s)
			require.NoError(t, err)
			assert.Equal(t, s.Status(), rec.Status)
			assert.Equal(t, time.UTC, rec.StartTime.Location())

			got, err := rec.Decode(loc)
			require.NoError(t, err)
			assert.Equal(t, s, got)
		})
	}
}

func TestSessionEncodeTruncatesToSecond(t *testing.T) {
	start := time.Date(2025, 8, 4, 9, 0, 0, 750_000_000, time.UTC)
	rec, err := EncodeSession(1, &Working{Start: start})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.StartTime.Nanosecond())
}

func TestSessionDecodeRejectsCorruptRows(t *testing.T) {
	now := time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  SessionRecord
	}{
		{name: "unknown status", rec: SessionRecord{UserID: 1, Status: "sleeping", StartTime: now}},
		{name: "break without start", rec: SessionRecord{UserID: 1, Status: StatusOnBreak, StartTime: now}},
		{name: "working with break start", rec: SessionRecord{UserID: 1, Status: StatusWorking, StartTime: now, BreakStartTime: &now}},
		{name: "extra work with break", rec: SessionRecord{UserID: 1, Status: StatusBankingTime, StartTime: now, BreakSeconds: 10}},
		{name: "no start time", rec: SessionRecord{UserID: 1, Status: StatusWorking}},
		{name: "negative break", rec: SessionRecord{UserID: 1, Status: StatusWorking, StartTime: now, BreakSeconds: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rec.Decode(time.UTC)
			assert.ErrorIs(t, err, ErrCorruptSession)
		})
	}
}

func TestEncodeRejectsUnknownExtraWork(t *testing.T) {
	_, err := EncodeSession(1, &ExtraWork{Kind: StatusWorking, Start: time.Now()})
	assert.ErrorIs(t, err, ErrCorruptSession)
}

func TestUserManagerIDs(t *testing.T) {
	one, two := int64(10), int64(20)
	zero := int64(0)

	assert.Empty(t, (&User{}).ManagerIDs())
	assert.Equal(t, []int64{10}, (&User{Manager1ID: &one, Manager2ID: &one}).ManagerIDs())
	assert.Equal(t, []int64{10, 20}, (&User{Manager1ID: &one, Manager2ID: &two}).ManagerIDs())
	assert.Equal(t, []int64{20}, (&User{Manager1ID: &zero, Manager2ID: &two}).ManagerIDs())
}

func TestWorkLogEntryIsValid(t *testing.T) {
	start := time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC)
	end := start.Add(8*time.Hour + 10*time.Minute)

	ok := &WorkLogEntry{UserID: 1, StartTime: start, EndTime: end, TotalBreakSeconds: 1200, TotalWorkSeconds: 28200}
	assert.True(t, ok.IsValid())

	wrong := *ok
	wrong.TotalWorkSeconds = 29400
	assert.False(t, wrong.IsValid())

	reversed := *ok
	reversed.EndTime = start.Add(-time.Minute)
	assert.False(t, reversed.IsValid())
}

func TestRoleCanDecide(t *testing.T) {
	assert.False(t, RoleEmployee.CanDecide())
	assert.True(t, RoleManager.CanDecide())
	assert.True(t, RoleAdmin.CanDecide())

	_, err := ParseRole("boss")
	assert.Error(t, err)
}
