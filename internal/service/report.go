package service

import (
	"context"
	"fmt"
	"hr-time-bot/internal/clock"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/repository"
	"time"

	"github.com/sirupsen/logrus"
)

// EmployeeReport итоги сотрудника за период
type EmployeeReport struct {
	User               *models.User
	From               time.Time
	To                 time.Time // включительно
	DaysWorked         int
	WorkSeconds        int64
	RemoteSeconds      int64
	BreakSeconds       int64
	BankingSeconds     int64
	BankDebitedSeconds int64
	DebtClearedSeconds int64
	PendingDebtSeconds int64
	Absences           []models.AbsencePeriod
}

type MemberState int

const (
	MemberOffline MemberState = iota
	MemberInSession
	MemberAbsent
	MemberFinished
)

// MemberStatus состояние сотрудника для сводки руководителя
type MemberStatus struct {
	User       *models.User
	State      MemberState
	Session    models.Session
	Absence    *models.AbsencePeriod
	FinishedAt time.Time
}

type ReportService struct {
	store  repository.Store
	users  *UserService
	ledger *TimeLedger
	clock  clock.Clock
	loc    *time.Location
	logger *logrus.Logger
}

func NewReportService(
	store repository.Store,
	users *UserService,
	ledger *TimeLedger,
	clk clock.Clock,
	loc *time.Location,
	logger *logrus.Logger,
) *ReportService {
	return &ReportService{
		store:  store,
		users:  users,
		ledger: ledger,
		clock:  clk,
		loc:    loc,
		logger: logger,
	}
}

// EmployeeReport считает итоги по дням from..to включительно
func (s *ReportService) EmployeeReport(ctx context.Context, userID int64, from, to time.Time) (*EmployeeReport, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.employeeReport(ctx, user, from, to)
}

func (s *ReportService) employeeReport(ctx context.Context, user *models.User, from, to time.Time) (*EmployeeReport, error) {
	from = clock.StartOfDay(from.In(s.loc))
	to = clock.StartOfDay(to.In(s.loc))
	if to.Before(from) {
		return nil, ErrInvalidPeriod
	}
	end := to.AddDate(0, 0, 1)

	report := &EmployeeReport{User: user, From: from, To: to}

	entries, err := s.store.WorkLogsBetween(ctx, user.ID, from, end)
	if err != nil {
		return nil, fmt.Errorf("load work log: %w", err)
	}

	days := map[string]struct{}{}
	for _, e := range entries {
		switch e.WorkKind {
		case models.WorkKindOffice, models.WorkKindRemote:
			report.WorkSeconds += e.TotalWorkSeconds
			report.BreakSeconds += e.TotalBreakSeconds
			report.BankDebitedSeconds += e.BankDebitedSeconds
			if e.WorkKind == models.WorkKindRemote {
				report.RemoteSeconds += e.TotalWorkSeconds
			}
			days[e.StartTime.In(s.loc).Format(time.DateOnly)] = struct{}{}
		case models.WorkKindBanking:
			report.BankingSeconds += e.TotalWorkSeconds
		}
	}
	report.DaysWorked = len(days)

	if report.DebtClearedSeconds, err = s.store.SumDebtClearedBetween(ctx, user.ID, from, end); err != nil {
		return nil, fmt.Errorf("sum cleared debt: %w", err)
	}
	if report.PendingDebtSeconds, err = s.ledger.TotalPendingDebt(ctx, s.store, user.ID); err != nil {
		return nil, err
	}

	report.Absences, err = s.store.AbsencesOverlapping(ctx, user.ID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("load absences: %w", err)
	}

	return report, nil
}

// TeamReport итоги по каждому сотруднику руководителя
func (s *ReportService) TeamReport(ctx context.Context, managerID int64, from, to time.Time) ([]*EmployeeReport, error) {
	members, err := s.team(ctx, managerID)
	if err != nil {
		return nil, err
	}

	reports := make([]*EmployeeReport, 0, len(members))
	for _, m := range members {
		r, err := s.employeeReport(ctx, m, from, to)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// TeamStatus кто сейчас работает, отсутствует, уже закончил или не выходил
func (s *ReportService) TeamStatus(ctx context.Context, managerID int64) ([]MemberStatus, error) {
	members, err := s.team(ctx, managerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := clock.StartOfDay(now)

	statuses := make([]MemberStatus, 0, len(members))
	for _, m := range members {
		st := MemberStatus{User: m}

		rec, err := s.store.GetSession(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if rec != nil {
			sess, err := rec.Decode(s.loc)
			if err != nil {
				return nil, err
			}
			st.State = MemberInSession
			st.Session = sess
			statuses = append(statuses, st)
			continue
		}

		absence, err := s.store.CurrentAbsence(ctx, m.ID, now.Format(time.DateOnly))
		if err != nil {
			return nil, fmt.Errorf("load absence: %w", err)
		}
		if absence != nil {
			st.State = MemberAbsent
			st.Absence = absence
			statuses = append(statuses, st)
			continue
		}

		last, err := s.store.LastWorkLogSince(ctx, m.ID, today)
		if err != nil {
			return nil, fmt.Errorf("load work log: %w", err)
		}
		if last != nil {
			st.State = MemberFinished
			st.FinishedAt = last.EndTime.In(s.loc)
		}
		statuses = append(statuses, st)
	}

	return statuses, nil
}

func (s *ReportService) team(ctx context.Context, managerID int64) ([]*models.User, error) {
	manager, err := s.users.Get(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if !manager.Role.CanDecide() {
		return nil, ErrNotAuthorized
	}
	return s.users.ManagedBy(ctx, manager)
}
