package repository

import (
	"context"

	"reciclo/internal/model"

	"gorm.io/gorm"
)

type Model3DRepository struct {
	db *gorm.DB
}

func NewModel3DRepository(db *gorm.DB) *Model3DRepository {
	return &Model3DRepository{db: db}
}

func (r *Model3DRepository) Create(ctx context.Context, tx *gorm.DB, m *model.Model3D) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(m).Error
}

// CountByUserID 用户累计上传模型数（MODELS_UPLOADED 统计项）
func (r *Model3DRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Model3D{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
