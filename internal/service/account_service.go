package service

import (
	"context"
	"fmt"

	"reciclo/internal/model"
	"reciclo/internal/repository"

	"gorm.io/gorm"
)

// AccountService 账户查询入口
type AccountService struct {
	db                 *gorm.DB
	accountRepo        *repository.AccountRepository
	bottleRepo         *repository.BottleRepository
	achievementService *AchievementService
}

func NewAccountService(db *gorm.DB, achievement *AchievementService) *AccountService {
	return &AccountService{
		db:                 db,
		accountRepo:        repository.NewAccountRepository(db),
		bottleRepo:         repository.NewBottleRepository(db),
		achievementService: achievement,
	}
}

func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return s.accountRepo.GetOrCreate(ctx, userID)
}

// Dashboard 用户面板：余额、成长进度、月度历史与成就状态
type Dashboard struct {
	Account      *model.Account            `json:"account"`
	NextLevelXP  int64                     `json:"next_level_xp"`
	History      []*model.RecyclingHistory `json:"history"`
	Achievements []AchievementStatus       `json:"achievements"`
}

func (s *AccountService) GetDashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取账户信息失败: %w", err)
	}

	history, err := s.bottleRepo.ListHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询月度汇总失败: %w", err)
	}

	achievements, err := s.achievementService.ListWithStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Account:      account,
		NextLevelXP:  model.NextLevelThreshold(account.Level),
		History:      history,
		Achievements: achievements,
	}, nil
}
