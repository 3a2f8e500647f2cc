package model

import (
	"time"
)

// ============================================================================
// 成就系统
// ============================================================================
//
// 成就目录（AchievementDefinition）是只读配置，启动时从配置文件加载一次，
// 不落库。用户的解锁状态（UserAchievement）才是持久化数据。
//
// criteria_type 是封闭枚举，每种类型对应 UserStats 中的一项统计值，
// 通过 ValueFor 做映射查找，而不是链式条件判断。
// ============================================================================

// 成就判定条件类型
const (
	CriteriaBottlesTotal      = "BOTTLES_TOTAL"      // 累计回收瓶数
	CriteriaUserLevel         = "USER_LEVEL"         // 当前等级
	CriteriaMonthlyBottles    = "MONTHLY_BOTTLES"    // 单月最高回收瓶数
	CriteriaConsecutiveMonths = "CONSECUTIVE_MONTHS" // 最长连续回收月份数
	CriteriaModelsUploaded    = "MODELS_UPLOADED"    // 累计上传模型数
)

// IsValidCriteriaType 校验条件类型枚举
func IsValidCriteriaType(criteriaType string) bool {
	switch criteriaType {
	case CriteriaBottlesTotal, CriteriaUserLevel, CriteriaMonthlyBottles,
		CriteriaConsecutiveMonths, CriteriaModelsUploaded:
		return true
	}
	return false
}

// AchievementDefinition 成就定义（配置数据，非表）
type AchievementDefinition struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	IconName      string `json:"icon_name"`
	CriteriaType  string `json:"criteria_type"`
	CriteriaValue int64  `json:"criteria_value"`
}

// UserAchievement 用户成就解锁表
// 唯一键 (user_id, achievement_id)；unlocked_at 只允许从 NULL 变为时间戳一次
type UserAchievement struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64      `gorm:"uniqueIndex:uk_user_achievement;not null" json:"user_id"`
	AchievementID int64      `gorm:"uniqueIndex:uk_user_achievement;not null" json:"achievement_id"`
	UnlockedAt    *time.Time `json:"unlocked_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (UserAchievement) TableName() string {
	return "user_achievement"
}

// Unlocked 是否已解锁
func (ua *UserAchievement) Unlocked() bool {
	return ua.UnlockedAt != nil
}

// UserStats 成就判定所需的用户统计值，一次性聚合出来
type UserStats struct {
	BottlesTotal      int64
	UserLevel         int64
	MonthlyBottles    int64
	ConsecutiveMonths int64
	ModelsUploaded    int64
}

// ValueFor 按条件类型取对应统计值，未知类型返回 0
func (s *UserStats) ValueFor(criteriaType string) int64 {
	switch criteriaType {
	case CriteriaBottlesTotal:
		return s.BottlesTotal
	case CriteriaUserLevel:
		return s.UserLevel
	case CriteriaMonthlyBottles:
		return s.MonthlyBottles
	case CriteriaConsecutiveMonths:
		return s.ConsecutiveMonths
	case CriteriaModelsUploaded:
		return s.ModelsUploaded
	}
	return 0
}

// QualifiedAchievements 从目录中筛出满足阈值且尚未解锁的成就
//
// unlocked 是该用户已解锁的成就ID集合。已解锁的成就直接跳过，
// 因此用更新后的集合重复调用返回空 —— 解锁天然幂等。
func QualifiedAchievements(catalog []AchievementDefinition, unlocked map[int64]bool, stats *UserStats) []AchievementDefinition {
	var qualified []AchievementDefinition
	for _, def := range catalog {
		if unlocked[def.ID] {
			continue
		}
		if stats.ValueFor(def.CriteriaType) >= def.CriteriaValue {
			qualified = append(qualified, def)
		}
	}
	return qualified
}
