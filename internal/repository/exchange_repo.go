package repository

import (
	"context"
	"errors"
	"time"

	"reciclo/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrExchangeNotFound      = errors.New("交换请求不存在")
	ErrExchangeStatusInvalid = errors.New("交换请求状态不合法")
)

type ExchangeRepository struct {
	db *gorm.DB
}

func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func (r *ExchangeRepository) Create(ctx context.Context, tx *gorm.DB, request *model.ExchangeRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(request).Error
}

func (r *ExchangeRepository) GetByID(ctx context.Context, exchangeID int64) (*model.ExchangeRequest, error) {
	var request model.ExchangeRequest
	err := r.db.WithContext(ctx).Where("id = ?", exchangeID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	return &request, nil
}

// GetByIDForUpdate 在事务内加行锁读取交换请求
//
// 【关键点】交换相关的事务统一先锁交换行、再锁账户行。
// 接受路径需要先看账户余额才能决定终态，若先锁账户再碰交换行，
// 会和取消/超时路径（先改交换行再退款）形成相反的加锁顺序而死锁。
func (r *ExchangeRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, exchangeID int64) (*model.ExchangeRequest, error) {
	var request model.ExchangeRequest
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", exchangeID).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	return &request, nil
}

// UpdateStatus 状态流转，带前置状态比较（CAS，同挂单）
func (r *ExchangeRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, exchangeID int64, fromStatus, toStatus string) error {
	if !model.ExchangeCanTransitionTo(fromStatus, toStatus) {
		return ErrExchangeStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.ExchangeRequest{}).
		Where("id = ? AND status = ?", exchangeID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrExchangeStatusInvalid
	}
	return nil
}

// ListByUser 用户相关的交换请求（发起或接收）
func (r *ExchangeRepository) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.ExchangeRequest, int64, error) {
	var requests []*model.ExchangeRequest
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.ExchangeRequest{}).
		Where("requester_id = ? OR receiver_id = ?", userID, userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, total, err
}

// GetExpiredPending 已过期但仍为 PENDING 的交换请求
func (r *ExchangeRepository) GetExpiredPending(ctx context.Context, limit int) ([]*model.ExchangeRequest, error) {
	var requests []*model.ExchangeRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", model.ExchangeStatusPending, time.Now()).
		Limit(limit).
		Find(&requests).Error
	return requests, err
}
