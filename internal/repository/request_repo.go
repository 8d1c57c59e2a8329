package repository

import (
	"context"
	"errors"
	"hr-time-bot/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RequestRepository interface {
	CreateRequest(ctx context.Context, req *models.ApprovalRequest) error
	GetRequest(ctx context.Context, id uint) (*models.ApprovalRequest, error)
	UpdateRequestStatusIfPending(ctx context.Context, id uint, status models.RequestStatus, decidedBy int64, decidedAt time.Time) (bool, error)
	SetRequestMessages(ctx context.Context, id uint, msg1ID, msg2ID *int) error
	ApprovedRequests(ctx context.Context, userID int64, reqType models.RequestType) ([]models.ApprovalRequest, error)
	PendingRequests(ctx context.Context, userID int64, reqType models.RequestType) ([]models.ApprovalRequest, error)
	ExpireRequestIfPending(ctx context.Context, id uint, at time.Time) (bool, error)
}

type GormRequestRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormRequestRepository(db *gorm.DB, logger *logrus.Logger) (*GormRequestRepository, error) {
	if err := db.AutoMigrate(&models.ApprovalRequest{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate requests table")
		return nil, err
	}

	return &GormRequestRepository{db: db, logger: logger}, nil
}

func (r *GormRequestRepository) CreateRequest(ctx context.Context, req *models.ApprovalRequest) error {
	req.Status = models.RequestPending
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create request")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"id":           req.ID,
		"requester_id": req.RequesterID,
		"type":         req.Type,
	}).Info("Approval request created")

	return nil
}

func (r *GormRequestRepository) GetRequest(ctx context.Context, id uint) (*models.ApprovalRequest, error) {
	var req models.ApprovalRequest
	result := r.db.WithContext(ctx).First(&req, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithField("id", id).Debug("Request not found")
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get request")
		return nil, result.Error
	}

	return &req, nil
}

// UpdateRequestStatusIfPending переводит запрос в конечный статус, только если он еще pending.
// true - решение принято этим вызовом.
func (r *GormRequestRepository) UpdateRequestStatusIfPending(ctx context.Context, id uint, status models.RequestStatus, decidedBy int64, decidedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]any{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": decidedAt.UTC(),
		})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to update request status")
		return false, result.Error
	}

	applied := result.RowsAffected == 1
	r.logger.WithFields(logrus.Fields{
		"id":         id,
		"status":     status,
		"decided_by": decidedBy,
		"applied":    applied,
	}).Info("Request decision")

	return applied, nil
}

func (r *GormRequestRepository) SetRequestMessages(ctx context.Context, id uint, msg1ID, msg2ID *int) error {
	updates := map[string]any{}
	if msg1ID != nil {
		updates["manager_1_message_id"] = *msg1ID
	}
	if msg2ID != nil {
		updates["manager_2_message_id"] = *msg2ID
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).Where("id = ?", id).Updates(updates).Error
}

func (r *GormRequestRepository) ApprovedRequests(ctx context.Context, userID int64, reqType models.RequestType) ([]models.ApprovalRequest, error) {
	var reqs []models.ApprovalRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND type = ? AND status = ?", userID, reqType, models.RequestApproved).
		Find(&reqs).Error
	return reqs, err
}

func (r *GormRequestRepository) PendingRequests(ctx context.Context, userID int64, reqType models.RequestType) ([]models.ApprovalRequest, error) {
	var reqs []models.ApprovalRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND type = ? AND status = ?", userID, reqType, models.RequestPending).
		Order("id").
		Find(&reqs).Error
	return reqs, err
}

// ExpireRequestIfPending снимает запрос без решения руководителя, decided_by остается пустым
func (r *GormRequestRepository) ExpireRequestIfPending(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]any{
			"status":     models.RequestExpired,
			"decided_at": at.UTC(),
		})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to expire request")
		return false, result.Error
	}

	applied := result.RowsAffected == 1
	r.logger.WithFields(logrus.Fields{
		"id":      id,
		"applied": applied,
	}).Info("Request expired")

	return applied, nil
}
