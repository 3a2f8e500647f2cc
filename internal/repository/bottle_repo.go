package repository

import (
	"context"

	"reciclo/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BottleRepository struct {
	db *gorm.DB
}

func NewBottleRepository(db *gorm.DB) *BottleRepository {
	return &BottleRepository{db: db}
}

func (r *BottleRepository) Create(ctx context.Context, tx *gorm.DB, bottle *model.Bottle) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(bottle).Error
}

// TotalQuantity 用户累计回收瓶数
func (r *BottleRepository) TotalQuantity(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Bottle{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

func (r *BottleRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Bottle, int64, error) {
	var bottles []*model.Bottle
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Bottle{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&bottles).Error

	return bottles, total, err
}

// UpsertHistory 月度汇总行：首次创建，已存在则数量累加
func (r *BottleRepository) UpsertHistory(ctx context.Context, tx *gorm.DB, userID int64, month string, quantity int64) error {
	if tx == nil {
		tx = r.db
	}

	history := &model.RecyclingHistory{
		UserID:   userID,
		Month:    month,
		Quantity: quantity,
	}

	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("quantity + ?", quantity),
			}),
		}).
		Create(history).Error
}

// ListMonths 用户有回收记录的月份键（去重）
func (r *BottleRepository) ListMonths(ctx context.Context, userID int64) ([]string, error) {
	var months []string
	err := r.db.WithContext(ctx).
		Model(&model.RecyclingHistory{}).
		Where("user_id = ?", userID).
		Order("month ASC").
		Distinct().
		Pluck("month", &months).Error
	return months, err
}

// MaxMonthlyQuantity 单月最高回收瓶数
func (r *BottleRepository) MaxMonthlyQuantity(ctx context.Context, userID int64) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&model.RecyclingHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(quantity), 0)").
		Scan(&max).Error
	return max, err
}

func (r *BottleRepository) ListHistory(ctx context.Context, userID int64) ([]*model.RecyclingHistory, error) {
	var histories []*model.RecyclingHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("month ASC").
		Find(&histories).Error
	return histories, err
}
