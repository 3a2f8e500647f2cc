package service

import (
	"testing"

	"reciclo/internal/config"
	"reciclo/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestLoadCatalog(t *testing.T) {
	cfg := &config.Config{
		Achievements: []config.AchievementConfig{
			{ID: 1, Title: "回收新手", CriteriaType: model.CriteriaBottlesTotal, CriteriaValue: 10},
			{ID: 2, Title: "崭露头角", CriteriaType: model.CriteriaUserLevel, CriteriaValue: 5},
		},
	}

	catalog := loadCatalog(cfg)

	assert.Len(t, catalog, 2)
	assert.Equal(t, int64(1), catalog[0].ID)
	assert.Equal(t, model.CriteriaBottlesTotal, catalog[0].CriteriaType)
	assert.Equal(t, int64(5), catalog[1].CriteriaValue)
}

func TestLoadCatalog_SkipsInvalidEntries(t *testing.T) {
	cfg := &config.Config{
		Achievements: []config.AchievementConfig{
			{ID: 1, Title: "合法条目", CriteriaType: model.CriteriaBottlesTotal, CriteriaValue: 10},
			{ID: 2, Title: "未知类型", CriteriaType: "WEEKLY_BOTTLES", CriteriaValue: 10},
			{ID: 3, Title: "非法阈值", CriteriaType: model.CriteriaUserLevel, CriteriaValue: 0},
			{ID: 4, Title: "负阈值", CriteriaType: model.CriteriaUserLevel, CriteriaValue: -1},
		},
	}

	catalog := loadCatalog(cfg)

	assert.Len(t, catalog, 1)
	assert.Equal(t, int64(1), catalog[0].ID)
}

func TestLoadCatalog_Empty(t *testing.T) {
	catalog := loadCatalog(&config.Config{})
	assert.Empty(t, catalog)
}
