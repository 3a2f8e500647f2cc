package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testCatalog() []AchievementDefinition {
	return []AchievementDefinition{
		{ID: 1, Title: "回收新手", CriteriaType: CriteriaBottlesTotal, CriteriaValue: 10},
		{ID: 2, Title: "回收达人", CriteriaType: CriteriaBottlesTotal, CriteriaValue: 100},
		{ID: 3, Title: "崭露头角", CriteriaType: CriteriaUserLevel, CriteriaValue: 5},
		{ID: 4, Title: "月度冠军", CriteriaType: CriteriaMonthlyBottles, CriteriaValue: 50},
		{ID: 5, Title: "持之以恒", CriteriaType: CriteriaConsecutiveMonths, CriteriaValue: 3},
		{ID: 6, Title: "创意工匠", CriteriaType: CriteriaModelsUploaded, CriteriaValue: 5},
	}
}

func TestValueFor(t *testing.T) {
	stats := &UserStats{
		BottlesTotal:      120,
		UserLevel:         7,
		MonthlyBottles:    55,
		ConsecutiveMonths: 4,
		ModelsUploaded:    2,
	}

	assert.Equal(t, int64(120), stats.ValueFor(CriteriaBottlesTotal))
	assert.Equal(t, int64(7), stats.ValueFor(CriteriaUserLevel))
	assert.Equal(t, int64(55), stats.ValueFor(CriteriaMonthlyBottles))
	assert.Equal(t, int64(4), stats.ValueFor(CriteriaConsecutiveMonths))
	assert.Equal(t, int64(2), stats.ValueFor(CriteriaModelsUploaded))
	assert.Equal(t, int64(0), stats.ValueFor("UNKNOWN"))
}

func TestQualifiedAchievements_Thresholds(t *testing.T) {
	stats := &UserStats{BottlesTotal: 10, UserLevel: 4}

	qualified := QualifiedAchievements(testCatalog(), map[int64]bool{}, stats)

	// 正好到达阈值算满足；等级4不满足阈值5
	assert.Len(t, qualified, 1)
	assert.Equal(t, int64(1), qualified[0].ID)
}

func TestQualifiedAchievements_SkipsUnlocked(t *testing.T) {
	stats := &UserStats{BottlesTotal: 150, UserLevel: 7}
	unlocked := map[int64]bool{1: true, 3: true}

	qualified := QualifiedAchievements(testCatalog(), unlocked, stats)

	assert.Len(t, qualified, 1)
	assert.Equal(t, int64(2), qualified[0].ID)
}

func TestQualifiedAchievements_IdempotentAfterUnlock(t *testing.T) {
	stats := &UserStats{BottlesTotal: 20}
	unlocked := map[int64]bool{}

	first := QualifiedAchievements(testCatalog(), unlocked, stats)
	assert.Len(t, first, 1)

	// 解锁后用更新的集合重算，不再返回
	for _, def := range first {
		unlocked[def.ID] = true
	}
	second := QualifiedAchievements(testCatalog(), unlocked, stats)
	assert.Empty(t, second)
}

func TestQualifiedAchievements_NoneQualified(t *testing.T) {
	stats := &UserStats{BottlesTotal: 5, UserLevel: 1}
	assert.Empty(t, QualifiedAchievements(testCatalog(), map[int64]bool{}, stats))
}

func TestUserAchievement_Unlocked(t *testing.T) {
	ua := &UserAchievement{}
	assert.False(t, ua.Unlocked())

	now := time.Now()
	ua.UnlockedAt = &now
	assert.True(t, ua.Unlocked())
}

func TestIsValidCriteriaType(t *testing.T) {
	assert.True(t, IsValidCriteriaType(CriteriaBottlesTotal))
	assert.True(t, IsValidCriteriaType(CriteriaUserLevel))
	assert.True(t, IsValidCriteriaType(CriteriaMonthlyBottles))
	assert.True(t, IsValidCriteriaType(CriteriaConsecutiveMonths))
	assert.True(t, IsValidCriteriaType(CriteriaModelsUploaded))
	assert.False(t, IsValidCriteriaType("BOTTLES_WEEKLY"))
	assert.False(t, IsValidCriteriaType(""))
}
