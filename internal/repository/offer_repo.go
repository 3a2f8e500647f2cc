package repository

import (
	"context"
	"errors"

	"reciclo/internal/model"

	"gorm.io/gorm"
)

var (
	ErrOfferNotFound      = errors.New("挂单不存在")
	ErrOfferStatusInvalid = errors.New("挂单状态不合法")
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) Create(ctx context.Context, tx *gorm.DB, offer *model.CoinOffer) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(offer).Error
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID int64) (*model.CoinOffer, error) {
	var offer model.CoinOffer
	err := r.db.WithContext(ctx).Where("id = ?", offerID).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

// UpdateStatus 状态流转，带前置状态比较
//
// WHERE status = fromStatus 使状态变更成为一次 CAS：
// 并发的购买/取消只有一个能把 ACTIVE 改走，其余 0 行受影响判为状态不合法。
func (r *OfferRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, offerID int64, fromStatus, toStatus string) error {
	if !model.OfferCanTransitionTo(fromStatus, toStatus) {
		return ErrOfferStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.CoinOffer{}).
		Where("id = ? AND status = ?", offerID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOfferStatusInvalid
	}
	return nil
}

// ListVisible 对某用户可见的挂单中列表：非定向的，或定向给该用户的
func (r *OfferRepository) ListVisible(ctx context.Context, viewerID int64, page, pageSize int) ([]*model.CoinOffer, int64, error) {
	var offers []*model.CoinOffer
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.CoinOffer{}).
		Where("status = ?", model.OfferStatusActive).
		Where("target_user_id IS NULL OR target_user_id = ?", viewerID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&offers).Error

	return offers, total, err
}

func (r *OfferRepository) ListBySeller(ctx context.Context, sellerID int64, page, pageSize int) ([]*model.CoinOffer, int64, error) {
	var offers []*model.CoinOffer
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CoinOffer{}).Where("seller_id = ?", sellerID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&offers).Error

	return offers, total, err
}
