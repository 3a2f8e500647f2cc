package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"reciclo/internal/config"
	"reciclo/internal/model"
	"reciclo/internal/repository"
	"reciclo/pkg/idgen"
	"reciclo/pkg/metrics"

	"gorm.io/gorm"
)

// AchievementService 成就引擎
//
// 成就目录来自配置，启动时加载一次。评估流程：
// 一次性聚合用户统计值 -> 筛出满足阈值且未解锁的成就 ->
// 逐个 CAS 解锁（至多一次）-> 奖励汇总后一次性入账。
//
// 设计上可以在任何改变统计值的事件后安全地重复调用：
// 已解锁的成就再评估是空操作，不是错误。
type AchievementService struct {
	db              *gorm.DB
	cfg             *config.Config
	catalog         []model.AchievementDefinition
	accountRepo     *repository.AccountRepository
	bottleRepo      *repository.BottleRepository
	achievementRepo *repository.AchievementRepository
	model3dRepo     *repository.Model3DRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewAchievementService(db *gorm.DB, cfg *config.Config) *AchievementService {
	return &AchievementService{
		db:              db,
		cfg:             cfg,
		catalog:         loadCatalog(cfg),
		accountRepo:     repository.NewAccountRepository(db),
		bottleRepo:      repository.NewBottleRepository(db),
		achievementRepo: repository.NewAchievementRepository(db),
		model3dRepo:     repository.NewModel3DRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// loadCatalog 从配置构建成就目录，非法条目跳过并告警
func loadCatalog(cfg *config.Config) []model.AchievementDefinition {
	catalog := make([]model.AchievementDefinition, 0, len(cfg.Achievements))
	for _, a := range cfg.Achievements {
		if !model.IsValidCriteriaType(a.CriteriaType) {
			log.Printf("[AchievementService] 跳过非法成就配置: id=%d, criteria_type=%s", a.ID, a.CriteriaType)
			continue
		}
		if a.CriteriaValue <= 0 {
			log.Printf("[AchievementService] 跳过非法成就配置: id=%d, criteria_value=%d", a.ID, a.CriteriaValue)
			continue
		}
		catalog = append(catalog, model.AchievementDefinition{
			ID:            a.ID,
			Title:         a.Title,
			Description:   a.Description,
			IconName:      a.IconName,
			CriteriaType:  a.CriteriaType,
			CriteriaValue: a.CriteriaValue,
		})
	}
	log.Printf("[AchievementService] 成就目录加载完成: %d 条", len(catalog))
	return catalog
}

// Catalog 只读成就目录
func (s *AchievementService) Catalog() []model.AchievementDefinition {
	return s.catalog
}

// gatherStats 一次性聚合评估所需的全部统计值
func (s *AchievementService) gatherStats(ctx context.Context, userID int64) (*model.UserStats, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取账户信息失败: %w", err)
	}

	bottlesTotal, err := s.bottleRepo.TotalQuantity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("统计回收总量失败: %w", err)
	}

	monthlyMax, err := s.bottleRepo.MaxMonthlyQuantity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("统计单月最高回收量失败: %w", err)
	}

	months, err := s.bottleRepo.ListMonths(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询回收月份失败: %w", err)
	}

	modelsUploaded, err := s.model3dRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("统计上传模型数失败: %w", err)
	}

	return &model.UserStats{
		BottlesTotal:      bottlesTotal,
		UserLevel:         account.Level,
		MonthlyBottles:    monthlyMax,
		ConsecutiveMonths: model.LongestConsecutiveMonths(months),
		ModelsUploaded:    modelsUploaded,
	}, nil
}

// Evaluate 评估并解锁满足条件的成就，返回本次新解锁的成就列表
func (s *AchievementService) Evaluate(ctx context.Context, userID int64) ([]model.AchievementDefinition, error) {
	stats, err := s.gatherStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked, err := s.achievementRepo.ListUnlockedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询已解锁成就失败: %w", err)
	}

	qualified := model.QualifiedAchievements(s.catalog, unlocked, stats)
	if len(qualified) == 0 {
		return nil, nil
	}

	var newlyUnlocked []model.AchievementDefinition

	err = s.db.Transaction(func(tx *gorm.DB) error {
		newlyUnlocked = newlyUnlocked[:0]

		for _, def := range qualified {
			if err := s.achievementRepo.EnsureRow(ctx, tx, userID, def.ID); err != nil {
				return fmt.Errorf("创建成就记录失败: %w", err)
			}

			// 并发评估时只有一个调用能真正解锁，其余视为已解锁跳过
			fresh, err := s.achievementRepo.Unlock(ctx, tx, userID, def.ID)
			if err != nil {
				return fmt.Errorf("解锁成就失败: %w", err)
			}
			if !fresh {
				continue
			}

			newlyUnlocked = append(newlyUnlocked, def)

			payload, _ := json.Marshal(map[string]interface{}{
				"user_id":        userID,
				"achievement_id": def.ID,
				"title":          def.Title,
				"unlocked_at":    time.Now().Format(time.RFC3339),
			})
			outboxMsg := &model.OutboxMessage{
				MessageKey: fmt.Sprintf("%d:%d", userID, def.ID),
				Topic:      s.cfg.Kafka.Topic.AchievementUnlocked,
				Payload:    string(payload),
				Status:     model.OutboxStatusPending,
			}
			if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
				return fmt.Errorf("写入消息失败: %w", err)
			}
		}

		if len(newlyUnlocked) == 0 {
			return nil
		}

		// 奖励汇总后一次性入账
		reward := s.cfg.Business.AchievementReward * int64(len(newlyUnlocked))

		if _, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.accountRepo.AddCoins(ctx, tx, userID, model.CoinTypeReputation, reward); err != nil {
			return fmt.Errorf("发放成就奖励失败: %w", err)
		}

		trans := &model.CoinTransaction{
			TransactionNo:   idgen.GenerateTransactionNo(),
			SenderID:        nil, // 系统发放
			ReceiverID:      userID,
			CoinType:        model.CoinTypeReputation,
			Amount:          reward,
			TransactionType: model.TransactionTypeSystem,
			Notes:           fmt.Sprintf("成就奖励 x%d", len(newlyUnlocked)),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(newlyUnlocked) > 0 {
		metrics.AchievementsUnlocked.Add(float64(len(newlyUnlocked)))
		log.Printf("[AchievementService] 解锁成就: userID=%d, count=%d", userID, len(newlyUnlocked))
	}

	return newlyUnlocked, nil
}

// AchievementStatus 成就及其解锁状态，用于面板展示
type AchievementStatus struct {
	model.AchievementDefinition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ListWithStatus 按目录顺序返回全部成就及该用户的解锁状态
func (s *AchievementService) ListWithStatus(ctx context.Context, userID int64) ([]AchievementStatus, error) {
	rows, err := s.achievementRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询成就记录失败: %w", err)
	}

	unlockedAt := make(map[int64]*time.Time, len(rows))
	for _, row := range rows {
		if row.Unlocked() {
			unlockedAt[row.AchievementID] = row.UnlockedAt
		}
	}

	statuses := make([]AchievementStatus, 0, len(s.catalog))
	for _, def := range s.catalog {
		at, ok := unlockedAt[def.ID]
		statuses = append(statuses, AchievementStatus{
			AchievementDefinition: def,
			Unlocked:              ok,
			UnlockedAt:            at,
		})
	}
	return statuses, nil
}
