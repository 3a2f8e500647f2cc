package repository

import (
	"context"
	"time"

	"reciclo/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// ListUnlockedIDs 用户已解锁的成就ID集合
func (r *AchievementRepository) ListUnlockedIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.UserAchievement{}).
		Where("user_id = ? AND unlocked_at IS NOT NULL", userID).
		Pluck("achievement_id", &ids).Error
	if err != nil {
		return nil, err
	}

	unlocked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		unlocked[id] = true
	}
	return unlocked, nil
}

// EnsureRow 惰性创建 (user, achievement) 行，已存在则不动
func (r *AchievementRepository) EnsureRow(ctx context.Context, tx *gorm.DB, userID, achievementID int64) error {
	if tx == nil {
		tx = r.db
	}

	row := &model.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
	}

	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

// Unlock 解锁成就，至多一次
//
// 【关键点】WHERE unlocked_at IS NULL 保证 NULL -> 时间戳的转换只发生一次：
// 并发的两次评估只有一个能改到这一行，另一个 0 行受影响，据此判断是否发奖。
func (r *AchievementRepository) Unlock(ctx context.Context, tx *gorm.DB, userID, achievementID int64) (bool, error) {
	if tx == nil {
		tx = r.db
	}

	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ? AND unlocked_at IS NULL", userID, achievementID).
		Update("unlocked_at", &now)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *AchievementRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.UserAchievement, error) {
	var rows []*model.UserAchievement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	return rows, err
}
