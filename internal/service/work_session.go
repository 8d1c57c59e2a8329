package service

import (
	"context"
	"errors"
	"fmt"
	"hr-time-bot/internal/clock"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/repository"
	"time"

	"github.com/sirupsen/logrus"
)

// closeMode как закрывается рабочий день
type closeMode int

const (
	closeNormal   closeMode = iota // норма выполнена, неиспользованный перерыв в банк
	closeWithBank                  // недоработка списывается из банка
	closeForgiven                  // недоработка прощена руководителем
	closeWithDebt                  // недоработка записывается в долг
)

// CloseResult итог закрытия рабочего дня
type CloseResult struct {
	Entry         *models.WorkLogEntry
	Shortfall     int64
	BankDebited   int64
	BreakCredited int64
	Debt          *models.DebtEntry
	// Expired запросы раннего ухода за этот день, снятые закрытием
	Expired []models.ApprovalRequest
}

// EndWorkResult либо закрытый день, либо требуется решение по раннему уходу
type EndWorkResult struct {
	NeedsEarlyLeaveDecision bool
	Shortfall               int64
	WorkedSeconds           int64
	Closed                  *CloseResult
}

// ExtraWorkResult итог отработки долга или работы в банк
type ExtraWorkResult struct {
	Kind           models.SessionStatus
	Start          time.Time
	End            time.Time
	ElapsedSeconds int64
	ClearedSeconds int64
	BankedSeconds  int64
	RemainingDebt  int64
}

// StatusSnapshot текущее состояние пользователя для показа
type StatusSnapshot struct {
	Session               models.Session // nil - сессии нет
	ElapsedSeconds        int64
	WorkedSeconds         int64
	BreakUsedSeconds      int64
	BreakRemainingSeconds int64
	CurrentBreakSeconds   int64
	BankSeconds           int64
	PendingDebtSeconds    int64
}

// IsIdle нет активной сессии
func (s *StatusSnapshot) IsIdle() bool {
	return s.Session == nil
}

// WorkSessionService конечный автомат рабочей сессии пользователя
type WorkSessionService struct {
	store  repository.Store
	ledger *TimeLedger
	clock  clock.Clock
	loc    *time.Location
	logger *logrus.Logger
}

func NewWorkSessionService(
	store repository.Store,
	ledger *TimeLedger,
	clk clock.Clock,
	loc *time.Location,
	logger *logrus.Logger,
) *WorkSessionService {
	return &WorkSessionService{
		store:  store,
		ledger: ledger,
		clock:  clk,
		loc:    loc,
		logger: logger,
	}
}

// loadSession читает и декодирует сессию. Нет записи - ErrNoSession.
func (s *WorkSessionService) loadSession(ctx context.Context, store repository.Store, userID int64) (models.Session, int64, error) {
	rec, err := store.GetSession(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		s.logger.WithField("user_id", userID).Warn("Operation on missing session")
		return nil, 0, ErrNoSession
	}

	sess, err := rec.Decode(s.loc)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Corrupt session row")
		return nil, 0, err
	}
	return sess, rec.Version, nil
}

func (s *WorkSessionService) requireUser(ctx context.Context, userID int64) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return ErrUserNotRegistered
	}
	return nil
}

// createSession вставляет новую сессию, если у пользователя ее нет
func (s *WorkSessionService) createSession(ctx context.Context, store repository.Store, userID int64, sess models.Session) error {
	rec, err := models.EncodeSession(userID, sess)
	if err != nil {
		return err
	}

	created, err := store.CreateSession(ctx, rec)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		return ErrAlreadyInSession
	}
	return nil
}

// replaceSession записывает новое состояние, если версия не изменилась
func (s *WorkSessionService) replaceSession(ctx context.Context, store repository.Store, userID int64, sess models.Session, version int64) error {
	rec, err := models.EncodeSession(userID, sess)
	if err != nil {
		return err
	}

	updated, err := store.UpdateSession(ctx, rec, version)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if !updated {
		return ErrSessionChanged
	}
	return nil
}

// StartWork начинает рабочий день в офисе или удаленно.
// Один рабочий день на дату, в день отсутствия начать нельзя.
func (s *WorkSessionService) StartWork(ctx context.Context, userID int64, remote bool) (*models.Working, error) {
	w := &models.Working{Start: s.clock.Now(), Remote: remote}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if user == nil {
			return ErrUserNotRegistered
		}

		today := w.Start.In(s.loc)
		absence, err := tx.CurrentAbsence(ctx, userID, today.Format(time.DateOnly))
		if err != nil {
			return fmt.Errorf("load absence: %w", err)
		}
		if absence != nil {
			return fmt.Errorf("%w: %s", ErrOnAbsence, FormatAbsence(absence))
		}

		done, err := tx.HasWorkdaySince(ctx, userID, clock.StartOfDay(today))
		if err != nil {
			return fmt.Errorf("load work log: %w", err)
		}
		if done {
			return ErrWorkdayAlreadyClosed
		}

		return s.createSession(ctx, tx, userID, w)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"remote":  remote,
		"start":   w.Start.Format("15:04"),
	}).Info("Workday started")

	return w, nil
}

// StartBreak уходит на перерыв, если лимит не исчерпан
func (s *WorkSessionService) StartBreak(ctx context.Context, userID int64) (*models.OnBreak, error) {
	var (
		b         *models.OnBreak
		remaining int64
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sess, version, err := s.loadSession(ctx, tx, userID)
		if err != nil {
			return err
		}

		w, ok := sess.(*models.Working)
		if !ok {
			return ErrNotWorking
		}

		if b, err = s.ledger.ConsumeBreak(w, s.clock.Now()); err != nil {
			return err
		}
		remaining = s.ledger.BreakRemaining(w)
		return s.replaceSession(ctx, tx, userID, b, version)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"remaining": remaining,
	}).Info("Break started")

	return b, nil
}

// EndBreak возвращается к работе
func (s *WorkSessionService) EndBreak(ctx context.Context, userID int64) (*models.Working, error) {
	var w *models.Working
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sess, version, err := s.loadSession(ctx, tx, userID)
		if err != nil {
			return err
		}

		b, ok := sess.(*models.OnBreak)
		if !ok {
			return ErrNotOnBreak
		}

		w = s.ledger.CloseBreak(b, s.clock.Now())
		return s.replaceSession(ctx, tx, userID, w, version)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"break_seconds": w.BreakSeconds,
	}).Info("Break ended")

	return w, nil
}

// EndWork закрывает день, если норма выполнена. Иначе ничего не меняет
// и сообщает недоработку, по которой нужно решение.
func (s *WorkSessionService) EndWork(ctx context.Context, userID int64) (*EndWorkResult, error) {
	var result *EndWorkResult

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sess, version, err := s.loadSession(ctx, tx, userID)
		if err != nil {
			return err
		}

		w, ok := sess.(*models.Working)
		if !ok {
			return ErrNotWorking
		}

		now := s.clock.Now()
		worked := s.ledger.Worked(w, now)
		if shortfall := s.ledger.Shortfall(worked); shortfall > 0 {
			result = &EndWorkResult{
				NeedsEarlyLeaveDecision: true,
				Shortfall:               shortfall,
				WorkedSeconds:           worked,
			}
			return nil
		}

		closed, err := s.closeWorkday(ctx, tx, userID, w, version, now, closeNormal)
		if err != nil {
			return err
		}
		result = &EndWorkResult{WorkedSeconds: worked, Closed: closed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.NeedsEarlyLeaveDecision {
		s.logger.WithFields(logrus.Fields{
			"user_id":   userID,
			"shortfall": result.Shortfall,
		}).Info("Early leave needs decision")
	}

	return result, nil
}

// CloseEarlyUsingBank закрывает день, покрывая недоработку из банка времени
func (s *WorkSessionService) CloseEarlyUsingBank(ctx context.Context, userID int64) (*CloseResult, error) {
	return s.closeEarly(ctx, userID, closeWithBank)
}

// CloseEarlyForgiven закрывает день без долга
func (s *WorkSessionService) CloseEarlyForgiven(ctx context.Context, userID int64) (*CloseResult, error) {
	return s.closeEarly(ctx, userID, closeForgiven)
}

// CloseEarlyWithDebt закрывает день и записывает недоработку в долг
func (s *WorkSessionService) CloseEarlyWithDebt(ctx context.Context, userID int64) (*CloseResult, error) {
	return s.closeEarly(ctx, userID, closeWithDebt)
}

func (s *WorkSessionService) closeEarly(ctx context.Context, userID int64, mode closeMode) (*CloseResult, error) {
	var result *CloseResult
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		result, err = s.closeEarlyTx(ctx, tx, userID, mode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// closeEarlyTx закрывает рабочий день внутри уже открытой транзакции
func (s *WorkSessionService) closeEarlyTx(ctx context.Context, tx repository.Store, userID int64, mode closeMode) (*CloseResult, error) {
	sess, version, err := s.loadSession(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	w, ok := sess.(*models.Working)
	if !ok {
		return nil, ErrNotWorking
	}

	now := s.clock.Now()
	if s.ledger.Shortfall(s.ledger.Worked(w, now)) == 0 {
		// пока ждали решения, норма уже выполнена
		mode = closeNormal
	}

	return s.closeWorkday(ctx, tx, userID, w, version, now, mode)
}

// closeForEarlyLeave закрывает день по одобренному раннему уходу только за дату запроса.
// Если закрывать нечего, день не трогается и возвращается причина.
func (s *WorkSessionService) closeForEarlyLeave(
	ctx context.Context,
	tx repository.Store,
	userID int64,
	date string,
	mode closeMode,
) (*CloseResult, CloseSkip, error) {
	sess, _, err := s.loadSession(ctx, tx, userID)
	if errors.Is(err, ErrNoSession) {
		return nil, CloseSkippedNoWorkday, nil
	}
	if err != nil {
		return nil, CloseNotSkipped, err
	}

	switch sess.(type) {
	case *models.Working, *models.OnBreak:
	default:
		return nil, CloseSkippedNoWorkday, nil
	}
	if sess.StartedAt().In(s.loc).Format(time.DateOnly) != date {
		return nil, CloseSkippedOtherDay, nil
	}
	if _, ok := sess.(*models.OnBreak); ok {
		return nil, CloseSkippedOnBreak, nil
	}

	closed, err := s.closeEarlyTx(ctx, tx, userID, mode)
	if err != nil {
		return nil, CloseNotSkipped, err
	}
	return closed, CloseNotSkipped, nil
}

// closeWorkday удаляет сессию, пишет журнал и двигает балансы в одной транзакции
func (s *WorkSessionService) closeWorkday(
	ctx context.Context,
	tx repository.Store,
	userID int64,
	w *models.Working,
	version int64,
	now time.Time,
	mode closeMode,
) (*CloseResult, error) {
	if now.Before(w.Start) {
		now = w.Start
	}

	deleted, err := tx.DeleteSession(ctx, userID, version)
	if err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}
	if !deleted {
		return nil, ErrSessionChanged
	}

	worked := s.ledger.Worked(w, now)
	result := &CloseResult{Shortfall: s.ledger.Shortfall(worked)}

	switch mode {
	case closeNormal:
		result.BreakCredited, err = s.ledger.CreditUnusedBreak(ctx, tx, userID, w)
	case closeWithBank:
		err = s.ledger.DebitBank(ctx, tx, userID, result.Shortfall)
		if err == nil {
			result.BankDebited = result.Shortfall
		}
	case closeForgiven:
	case closeWithDebt:
		result.Debt, err = s.ledger.AccrueDebt(ctx, tx, userID, result.Shortfall)
	default:
		err = fmt.Errorf("unknown close mode %d", mode)
	}
	if err != nil {
		return nil, err
	}

	entry := &models.WorkLogEntry{
		UserID:             userID,
		StartTime:          w.Start,
		EndTime:            now,
		TotalWorkSeconds:   worked,
		TotalBreakSeconds:  w.BreakSeconds,
		WorkKind:           w.WorkKind(),
		BankDebitedSeconds: result.BankDebited,
	}
	if err := tx.AppendWorkLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("append work log: %w", err)
	}
	result.Entry = entry

	if result.Expired, err = s.expireEarlyLeave(ctx, tx, userID, w.Start, now); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"worked":    worked,
		"shortfall": result.Shortfall,
		"mode":      mode,
		"expired":   len(result.Expired),
	}).Info("Workday closed")

	return result, nil
}

// expireEarlyLeave снимает ожидающие запросы раннего ухода за день закрытой сессии
func (s *WorkSessionService) expireEarlyLeave(ctx context.Context, tx repository.Store, userID int64, start, now time.Time) ([]models.ApprovalRequest, error) {
	pending, err := tx.PendingRequests(ctx, userID, models.RequestEarlyLeave)
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}

	date := start.In(s.loc).Format(time.DateOnly)
	var expired []models.ApprovalRequest
	for _, req := range pending {
		if req.Payload.Date != date {
			continue
		}
		ok, err := tx.ExpireRequestIfPending(ctx, req.ID, now)
		if err != nil {
			return nil, err
		}
		if ok {
			req.Status = models.RequestExpired
			req.DecidedAt = &now
			expired = append(expired, req)
		}
	}
	return expired, nil
}

// WorkdayClosed закрыт ли уже рабочий день на сегодня
func (s *WorkSessionService) WorkdayClosed(ctx context.Context, userID int64) (bool, error) {
	return s.store.HasWorkdaySince(ctx, userID, clock.StartOfDay(s.clock.Now().In(s.loc)))
}

// StartExtraWork начинает отработку долга или работу в банк времени
func (s *WorkSessionService) StartExtraWork(ctx context.Context, userID int64, kind models.SessionStatus) (*models.ExtraWork, error) {
	if kind != models.StatusClearingDebt && kind != models.StatusBankingTime {
		return nil, ErrInvalidExtraWorkKind
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	e := &models.ExtraWork{Kind: kind, Start: s.clock.Now()}
	if err := s.createSession(ctx, s.store, userID, e); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"kind":    kind,
	}).Info("Extra work started")

	return e, nil
}

// EndExtraWork завершает доп. работу: гасит долг или пополняет банк
func (s *WorkSessionService) EndExtraWork(ctx context.Context, userID int64) (*ExtraWorkResult, error) {
	var result *ExtraWorkResult

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sess, version, err := s.loadSession(ctx, tx, userID)
		if err != nil {
			return err
		}

		e, ok := sess.(*models.ExtraWork)
		if !ok {
			return ErrNotInExtraWork
		}

		now := s.clock.Now()
		if now.Before(e.Start) {
			now = e.Start
		}

		deleted, err := tx.DeleteSession(ctx, userID, version)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if !deleted {
			return ErrSessionChanged
		}

		result = &ExtraWorkResult{
			Kind:           e.Kind,
			Start:          e.Start,
			End:            now,
			ElapsedSeconds: seconds(e.Start, now),
		}

		switch e.Kind {
		case models.StatusClearingDebt:
			cleared, err := s.ledger.ClearDebtFIFO(ctx, tx, userID, result.ElapsedSeconds)
			if err != nil {
				return err
			}
			result.ClearedSeconds = cleared

			entry := &models.DebtClearLogEntry{
				UserID:         userID,
				StartTime:      e.Start,
				EndTime:        now,
				ClearedSeconds: cleared,
			}
			if err := tx.AppendDebtClearLog(ctx, entry); err != nil {
				return fmt.Errorf("append debt log: %w", err)
			}

			result.RemainingDebt, err = s.ledger.TotalPendingDebt(ctx, tx, userID)
			return err

		case models.StatusBankingTime:
			if err := s.ledger.CreditBank(ctx, tx, userID, result.ElapsedSeconds); err != nil {
				return err
			}
			result.BankedSeconds = result.ElapsedSeconds

			entry := &models.WorkLogEntry{
				UserID:           userID,
				StartTime:        e.Start,
				EndTime:          now,
				TotalWorkSeconds: result.ElapsedSeconds,
				WorkKind:         models.WorkKindBanking,
			}
			if err := tx.AppendWorkLog(ctx, entry); err != nil {
				return fmt.Errorf("append work log: %w", err)
			}
			return nil
		}

		return fmt.Errorf("%w: extra work kind %q", models.ErrCorruptSession, e.Kind)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"kind":    result.Kind,
		"elapsed": result.ElapsedSeconds,
		"cleared": result.ClearedSeconds,
		"banked":  result.BankedSeconds,
	}).Info("Extra work finished")

	return result, nil
}

// Status снимок текущего состояния без изменений
func (s *WorkSessionService) Status(ctx context.Context, userID int64) (*StatusSnapshot, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotRegistered
	}

	snap := &StatusSnapshot{BankSeconds: user.TimeBankSeconds}
	if snap.PendingDebtSeconds, err = s.ledger.TotalPendingDebt(ctx, s.store, userID); err != nil {
		return nil, err
	}

	rec, err := s.store.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return snap, nil
	}
	sess, err := rec.Decode(s.loc)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	snap.Session = sess
	snap.ElapsedSeconds = seconds(sess.StartedAt(), now)

	switch v := sess.(type) {
	case *models.Working:
		snap.WorkedSeconds = s.ledger.Worked(v, now)
		snap.BreakUsedSeconds = v.BreakSeconds
	case *models.OnBreak:
		snap.CurrentBreakSeconds = seconds(v.BreakStart, now)
		snap.BreakUsedSeconds = v.BreakSeconds + snap.CurrentBreakSeconds
		snap.WorkedSeconds = max(snap.ElapsedSeconds-snap.BreakUsedSeconds, 0)
	case *models.ExtraWork:
		snap.WorkedSeconds = snap.ElapsedSeconds
	}
	snap.BreakRemainingSeconds = max(s.ledger.BreakLimit()-snap.BreakUsedSeconds, 0)

	return snap, nil
}
