package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"reciclo/internal/config"
	"reciclo/internal/model"
	"reciclo/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrInvalidModelName = errors.New("模型名称不能为空")
)

// ContentService 内容事件入口
//
// 模型的文件与图片由外部存储服务处理；这里只登记上传事实，
// 发放固定经验并触发成就评估（MODELS_UPLOADED 统计项）。
type ContentService struct {
	db                 *gorm.DB
	cfg                *config.Config
	model3dRepo        *repository.Model3DRepository
	progressionService *ProgressionService
	achievementService *AchievementService
}

func NewContentService(db *gorm.DB, cfg *config.Config,
	progression *ProgressionService, achievement *AchievementService) *ContentService {
	return &ContentService{
		db:                 db,
		cfg:                cfg,
		model3dRepo:        repository.NewModel3DRepository(db),
		progressionService: progression,
		achievementService: achievement,
	}
}

type ModelUploadResult struct {
	ModelID         int64                         `json:"model_id"`
	Level           int64                         `json:"level"`
	LeveledUp       bool                          `json:"leveled_up"`
	NewAchievements []model.AchievementDefinition `json:"new_achievements"`
}

// RecordModelUpload 登记一次模型上传
func (s *ContentService) RecordModelUpload(ctx context.Context, userID int64, name, description string) (*ModelUploadResult, error) {
	if name == "" {
		return nil, ErrInvalidModelName
	}

	m := &model.Model3D{
		UserID:      userID,
		Name:        name,
		Description: description,
	}
	if err := s.model3dRepo.Create(ctx, nil, m); err != nil {
		return nil, fmt.Errorf("创建模型记录失败: %w", err)
	}

	leveledUp, level, err := s.progressionService.AddExperience(ctx, userID, s.cfg.Business.ModelUploadXP)
	if err != nil {
		return nil, fmt.Errorf("发放上传经验失败: %w", err)
	}

	// 同回收流程：成就评估失败不影响已登记的上传
	newAchievements, err := s.achievementService.Evaluate(ctx, userID)
	if err != nil {
		log.Printf("[ContentService] 成就评估失败（上传结果不受影响）: userID=%d, err=%v", userID, err)
		newAchievements = nil
	}

	return &ModelUploadResult{
		ModelID:         m.ID,
		Level:           level,
		LeveledUp:       leveledUp,
		NewAchievements: newAchievements,
	}, nil
}
