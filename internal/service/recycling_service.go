package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"reciclo/internal/config"
	"reciclo/internal/infrastructure/lock"
	"reciclo/internal/model"
	"reciclo/internal/repository"
	"reciclo/pkg/idgen"
	"reciclo/pkg/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity = errors.New("回收数量必须大于0")
)

// RecyclingService 回收记录器
//
// 把一次回收提交转换为：回收记录 + 币奖励 + 经验 + 月度汇总，
// 全部在一个事务内落库；之后触发成就评估。
//
// 【关键点】成就评估与回收事务解耦（失败隔离）：
// 成就环节出错只记日志，已提交的回收记录和币奖励不回滚。
type RecyclingService struct {
	db                 *gorm.DB
	redisClient        *redis.Client
	cfg                *config.Config
	accountRepo        *repository.AccountRepository
	bottleRepo         *repository.BottleRepository
	transactionRepo    *repository.TransactionRepository
	outboxRepo         *repository.OutboxRepository
	progressionService *ProgressionService
	achievementService *AchievementService
}

func NewRecyclingService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config,
	progression *ProgressionService, achievement *AchievementService) *RecyclingService {
	return &RecyclingService{
		db:                 db,
		redisClient:        redisClient,
		cfg:                cfg,
		accountRepo:        repository.NewAccountRepository(db),
		bottleRepo:         repository.NewBottleRepository(db),
		transactionRepo:    repository.NewTransactionRepository(db),
		outboxRepo:         repository.NewOutboxRepository(db),
		progressionService: progression,
		achievementService: achievement,
	}
}

type RecycleRequest struct {
	UserID     int64
	BottleType string
	Volume     string
	Quantity   int64
}

type RecycleResult struct {
	CoinsEarned      int64                         `json:"coins_earned"`
	ReputationEarned int64                         `json:"reputation_earned"`
	Level            int64                         `json:"level"`
	LeveledUp        bool                          `json:"leveled_up"`
	NewAchievements  []model.AchievementDefinition `json:"new_achievements"`
}

// RecordRecycling 记录一次回收并发放奖励
func (s *RecyclingService) RecordRecycling(ctx context.Context, req *RecycleRequest) (*RecycleResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	// 奖励表按容量查基础奖励，未知容量走兜底值
	coinsEarned := s.cfg.Business.BottleReward(req.Volume) * req.Quantity
	reputationEarned := coinsEarned / 2

	// 按用户维度加锁，序列化同一用户的并发提交
	recycleLock := lock.NewRecycleLock(s.redisClient, req.UserID, uuid.NewString())
	if err := recycleLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer recycleLock.Unlock(ctx)

	if _, err := s.accountRepo.GetOrCreate(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("获取账户信息失败: %w", err)
	}

	month := time.Now().Format(model.MonthKeyFormat)

	// 回收币和声望币各一条系统流水，注入量能从流水表完整对出
	legs := model.BuildRecyclingRewardLegs(req.UserID, coinsEarned, reputationEarned,
		fmt.Sprintf("回收奖励-%s x%d", req.Volume, req.Quantity), idgen.GenerateTransactionNo)

	var leveledUp bool
	var level int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		bottle := &model.Bottle{
			UserID:     req.UserID,
			BottleType: req.BottleType,
			Volume:     req.Volume,
			Quantity:   req.Quantity,
		}
		if err := s.bottleRepo.Create(ctx, tx, bottle); err != nil {
			return fmt.Errorf("创建回收记录失败: %w", err)
		}

		account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		if err := s.accountRepo.AddCoins(ctx, tx, req.UserID, model.CoinTypeRecycling, coinsEarned); err != nil {
			return fmt.Errorf("发放回收币失败: %w", err)
		}
		if err := s.accountRepo.AddCoins(ctx, tx, req.UserID, model.CoinTypeReputation, reputationEarned); err != nil {
			return fmt.Errorf("发放声望币失败: %w", err)
		}

		// 经验值等于获得的回收币数量
		leveledUp, err = s.progressionService.applyExperienceLocked(ctx, tx, account, coinsEarned)
		if err != nil {
			return fmt.Errorf("更新经验失败: %w", err)
		}
		level = account.Level

		if err := s.bottleRepo.UpsertHistory(ctx, tx, req.UserID, month, req.Quantity); err != nil {
			return fmt.Errorf("更新月度汇总失败: %w", err)
		}

		for _, leg := range legs {
			if err := s.transactionRepo.Create(ctx, tx, leg); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}

		if len(legs) > 0 {
			payload, _ := json.Marshal(map[string]interface{}{
				"transaction_no":    legs[0].TransactionNo,
				"user_id":           req.UserID,
				"coin_type":         model.CoinTypeRecycling,
				"amount":            coinsEarned,
				"reputation_amount": reputationEarned,
				"type":              model.TransactionTypeSystem,
			})
			outboxMsg := &model.OutboxMessage{
				MessageKey: legs[0].TransactionNo,
				Topic:      s.cfg.Kafka.Topic.CoinTransaction,
				Payload:    string(payload),
				Status:     model.OutboxStatusPending,
			}
			if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
				return fmt.Errorf("写入消息失败: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecyclingSubmissions.Inc()
	metrics.CoinTransactions.WithLabelValues(model.TransactionTypeSystem).Add(float64(len(legs)))
	if leveledUp {
		metrics.LevelUps.Inc()
	}

	log.Printf("回收成功: userID=%d, volume=%s, quantity=%d, coins=%d",
		req.UserID, req.Volume, req.Quantity, coinsEarned)

	// 成就评估失败不影响已落库的回收结果
	newAchievements, err := s.achievementService.Evaluate(ctx, req.UserID)
	if err != nil {
		log.Printf("[RecyclingService] 成就评估失败（回收结果不受影响）: userID=%d, err=%v", req.UserID, err)
		newAchievements = nil
	}

	return &RecycleResult{
		CoinsEarned:      coinsEarned,
		ReputationEarned: reputationEarned,
		Level:            level,
		LeveledUp:        leveledUp,
		NewAchievements:  newAchievements,
	}, nil
}
