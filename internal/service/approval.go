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

type Decision string

const (
	DecisionApprove        Decision = "approve"
	DecisionDeny           Decision = "deny"
	DecisionApproveForgive Decision = "approve_no_debt"
	DecisionAcknowledge    Decision = "ack"
)

// ParseDecision разбирает решение из данных кнопки
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionApprove, DecisionDeny, DecisionApproveForgive, DecisionAcknowledge:
		return d, nil
	}
	return "", fmt.Errorf("%w: decision %q", ErrInvalidInput, s)
}

type DecideOutcome int

const (
	OutcomeApplied DecideOutcome = iota
	OutcomeAlreadyResolved
)

// CloseSkip почему одобренный ранний уход не закрыл день
type CloseSkip int

const (
	CloseNotSkipped CloseSkip = iota
	CloseSkippedNoWorkday
	CloseSkippedOnBreak
	CloseSkippedOtherDay
)

// DecideResult итог решения. При AlreadyResolved Request содержит сохраненный статус.
type DecideResult struct {
	Outcome       DecideOutcome
	Request       *models.ApprovalRequest
	SessionClosed bool
	CloseSkipped  CloseSkip
	Close         *CloseResult
	Absence       *models.AbsencePeriod
}

// ApprovalService запросы руководителям и однократное решение по ним
type ApprovalService struct {
	store    repository.Store
	sessions *WorkSessionService
	clock    clock.Clock
	logger   *logrus.Logger
}

func NewApprovalService(
	store repository.Store,
	sessions *WorkSessionService,
	clk clock.Clock,
	logger *logrus.Logger,
) *ApprovalService {
	return &ApprovalService{
		store:    store,
		sessions: sessions,
		clock:    clk,
		logger:   logger,
	}
}

// Create сохраняет запрос и возвращает адресатов без повторов
func (s *ApprovalService) Create(
	ctx context.Context,
	requesterID int64,
	reqType models.RequestType,
	payload models.RequestPayload,
	recipients []int64,
) (*models.ApprovalRequest, []int64, error) {
	var ids []int64
	for _, id := range recipients {
		if id == 0 || containsID(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil, ErrNoRecipients
	}
	if len(ids) > 2 {
		ids = ids[:2]
	}
	if reqType == models.RequestDayOff || reqType == models.RequestRemoteWork || reqType == models.RequestEarlyLeave {
		if _, err := time.Parse(time.DateOnly, payload.Date); err != nil {
			return nil, nil, fmt.Errorf("%w: request date %q", ErrInvalidInput, payload.Date)
		}
	}

	req := &models.ApprovalRequest{
		RequesterID:    requesterID,
		Type:           reqType,
		Payload:        payload,
		Manager1ChatID: &ids[0],
	}
	if len(ids) == 2 {
		req.Manager2ChatID = &ids[1]
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	return req, ids, nil
}

// CreateForRequester отправляет запрос руководителям пользователя
func (s *ApprovalService) CreateForRequester(
	ctx context.Context,
	user *models.User,
	reqType models.RequestType,
	payload models.RequestPayload,
) (*models.ApprovalRequest, []int64, error) {
	return s.Create(ctx, user.ID, reqType, payload, user.ManagerIDs())
}

// AttachMessages запоминает сообщения с карточкой запроса: chat id -> message id
func (s *ApprovalService) AttachMessages(ctx context.Context, req *models.ApprovalRequest, messages map[int64]int) error {
	var msg1, msg2 *int
	if req.Manager1ChatID != nil {
		if id, ok := messages[*req.Manager1ChatID]; ok {
			msg1 = &id
		}
	}
	if req.Manager2ChatID != nil {
		if id, ok := messages[*req.Manager2ChatID]; ok {
			msg2 = &id
		}
	}

	if err := s.store.SetRequestMessages(ctx, req.ID, msg1, msg2); err != nil {
		return fmt.Errorf("attach request messages: %w", err)
	}
	req.Manager1MessageID = msg1
	req.Manager2MessageID = msg2
	return nil
}

func (s *ApprovalService) Get(ctx context.Context, id uint) (*models.ApprovalRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// HasApproved есть ли одобренный запрос данного типа на дату (YYYY-MM-DD)
func (s *ApprovalService) HasApproved(ctx context.Context, userID int64, reqType models.RequestType, date string) (bool, error) {
	reqs, err := s.store.ApprovedRequests(ctx, userID, reqType)
	if err != nil {
		return false, fmt.Errorf("load approved requests: %w", err)
	}
	for _, r := range reqs {
		if r.Payload.Date == date {
			return true, nil
		}
	}
	return false, nil
}

// decisionAllowed подтверждение только для уведомлений, одобрение и отказ для остальных
func decisionAllowed(reqType models.RequestType, d Decision) bool {
	switch d {
	case DecisionAcknowledge:
		return reqType.IsNotice()
	case DecisionApprove, DecisionDeny:
		return !reqType.IsNotice()
	case DecisionApproveForgive:
		return reqType == models.RequestEarlyLeave
	}
	return false
}

func decisionStatus(d Decision) models.RequestStatus {
	switch d {
	case DecisionApprove, DecisionApproveForgive:
		return models.RequestApproved
	case DecisionDeny:
		return models.RequestDenied
	case DecisionAcknowledge:
		return models.RequestAcknowledged
	}
	return models.RequestPending
}

// canDecide роль руководителя и запрос адресован ему; администратор решает любой запрос
func canDecide(decider *models.User, req *models.ApprovalRequest) bool {
	switch decider.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return req.IsRecipient(decider.ID)
	case models.RoleEmployee:
		return false
	}
	return false
}

// Decide применяет решение ровно один раз. Проигравший гонку получает AlreadyResolved.
func (s *ApprovalService) Decide(ctx context.Context, requestID uint, deciderID int64, decision Decision) (*DecideResult, error) {
	decider, err := s.store.GetUser(ctx, deciderID)
	if err != nil {
		return nil, fmt.Errorf("load decider: %w", err)
	}
	if decider == nil || !decider.Role.CanDecide() {
		return nil, ErrNotAuthorized
	}

	var result *DecideResult
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("load request: %w", err)
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if !canDecide(decider, req) {
			return ErrNotAuthorized
		}
		if !decisionAllowed(req.Type, decision) {
			return ErrDecisionNotAllowed
		}

		if req.Status != models.RequestPending {
			result = &DecideResult{Outcome: OutcomeAlreadyResolved, Request: req}
			return nil
		}

		status := decisionStatus(decision)
		applied, err := tx.UpdateRequestStatusIfPending(ctx, req.ID, status, decider.ID, s.clock.Now())
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if !applied {
			stored, err := tx.GetRequest(ctx, req.ID)
			if err != nil {
				return fmt.Errorf("reload request: %w", err)
			}
			result = &DecideResult{Outcome: OutcomeAlreadyResolved, Request: stored}
			return nil
		}

		decidedAt := s.clock.Now()
		req.Status = status
		req.DecidedBy = &decider.ID
		req.DecidedAt = &decidedAt
		result = &DecideResult{Outcome: OutcomeApplied, Request: req}

		return s.applyEffects(ctx, tx, req, decision, result)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"decider":    deciderID,
		"decision":   decision,
		"applied":    result.Outcome == OutcomeApplied,
		"status":     result.Request.Status,
	}).Info("Request decided")

	return result, nil
}

// applyEffects последствия решения в той же транзакции, что и смена статуса
func (s *ApprovalService) applyEffects(
	ctx context.Context,
	tx repository.Store,
	req *models.ApprovalRequest,
	decision Decision,
	result *DecideResult,
) error {
	if decision == DecisionDeny || decision == DecisionAcknowledge {
		return nil
	}

	switch req.Type {
	case models.RequestEarlyLeave:
		mode := closeWithDebt
		if decision == DecisionApproveForgive {
			mode = closeForgiven
		}

		closed, skip, err := s.sessions.closeForEarlyLeave(ctx, tx, req.RequesterID, req.Payload.Date, mode)
		if err != nil {
			return err
		}
		if skip != CloseNotSkipped {
			s.logger.WithFields(logrus.Fields{
				"user_id": req.RequesterID,
				"date":    req.Payload.Date,
				"skip":    skip,
			}).Warn("Early leave approved but workday was not closed")
			result.CloseSkipped = skip
			return nil
		}
		result.SessionClosed = true
		result.Close = closed

	case models.RequestDayOff:
		absence := &models.AbsencePeriod{
			UserID:    req.RequesterID,
			StartDate: req.Payload.Date,
			EndDate:   req.Payload.Date,
			Type:      models.AbsenceTypeDayOff,
		}
		conflict, err := tx.HasAbsenceConflict(ctx, absence.UserID, absence.StartDate, absence.EndDate)
		if err != nil {
			return fmt.Errorf("check absence conflict: %w", err)
		}
		if conflict {
			s.logger.WithFields(logrus.Fields{
				"user_id": req.RequesterID,
				"date":    req.Payload.Date,
			}).Warn("Day off approved over existing absence")
			return nil
		}
		if err := tx.CreateAbsence(ctx, absence); err != nil {
			return fmt.Errorf("create day off: %w", err)
		}
		result.Absence = absence

	case models.RequestRemoteWork, models.RequestBankingNotice:
	}

	return nil
}

// Expire снимает запрос, который так и не дошел до руководителей
func (s *ApprovalService) Expire(ctx context.Context, id uint) (bool, error) {
	ok, err := s.store.ExpireRequestIfPending(ctx, id, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("expire request: %w", err)
	}
	return ok, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
