package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"hr-time-bot/internal/clock"
	"hr-time-bot/internal/config"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testLoc = time.FixedZone("+07", 7*3600)

type testEnv struct {
	ctx       context.Context
	store     *repository.GormStore
	clock     *clock.Manual
	ledger    *TimeLedger
	sessions  *WorkSessionService
	approvals *ApprovalService
	users     *UserService
	absences  *AbsenceService
	reports   *ReportService
}

func at(hour, min int) time.Time {
	return time.Date(2025, time.August, 4, hour, min, 0, 0, testLoc)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := repository.NewGormStore(db, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.BotConfig{
		Timezone:               testLoc,
		DailyBreakLimitSeconds: 3600,
		MinWorkSeconds:         28800,
	}

	clk := clock.NewManual(at(9, 0))
	ledger := NewTimeLedger(cfg, clk, logger)
	sessions := NewWorkSessionService(store, ledger, clk, testLoc, logger)
	users := NewUserService(store, logger)

	return &testEnv{
		ctx:       context.Background(),
		store:     store,
		clock:     clk,
		ledger:    ledger,
		sessions:  sessions,
		approvals: NewApprovalService(store, sessions, clk, logger),
		users:     users,
		absences:  NewAbsenceService(store, logger),
		reports:   NewReportService(store, users, ledger, clk, testLoc, logger),
	}
}

// addUser сохраняет пользователя с руководителями
func (e *testEnv) addUser(t *testing.T, id int64, role models.Role, managers ...int64) *models.User {
	t.Helper()

	u := &models.User{ID: id, FullName: "User", Role: role}
	if len(managers) > 0 {
		u.Manager1ID = &managers[0]
	}
	if len(managers) > 1 {
		u.Manager2ID = &managers[1]
	}
	require.NoError(t, e.store.SaveUser(e.ctx, u))
	return u
}

func (e *testEnv) bank(t *testing.T, id int64) int64 {
	t.Helper()
	u, err := e.store.GetUser(e.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.TimeBankSeconds
}

func (e *testEnv) pendingDebts(t *testing.T, id int64) []models.DebtEntry {
	t.Helper()
	debts, err := e.store.PendingDebts(e.ctx, id)
	require.NoError(t, err)
	return debts
}

func (e *testEnv) workLogs(t *testing.T, id int64) []models.WorkLogEntry {
	t.Helper()
	logs, err := e.store.WorkLogsBetween(e.ctx, id, at(0, 0), at(0, 0).AddDate(0, 0, 1))
	require.NoError(t, err)
	return logs
}

func (e *testEnv) session(t *testing.T, id int64) models.Session {
	t.Helper()
	rec, err := e.store.GetSession(e.ctx, id)
	require.NoError(t, err)
	if rec == nil {
		return nil
	}
	s, err := rec.Decode(testLoc)
	require.NoError(t, err)
	return s
}
