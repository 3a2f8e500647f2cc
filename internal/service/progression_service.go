package service

import (
	"context"
	"errors"
	"fmt"

	"reciclo/internal/model"
	"reciclo/internal/repository"
	"reciclo/pkg/metrics"

	"gorm.io/gorm"
)

// ProgressionService 成长引擎：经验获取与升级
//
// 引擎本身无状态，所有状态在账户表里。经验与等级的更新
// 必须在同一个事务内、持有账户行锁时一并持久化。
type ProgressionService struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
	}
}

// AddExperience 给用户增加经验
//
// xp 非正数时不做任何事，返回"没有升级"。
// 升级判定见 model.Account.GainExperience：一次大额经验可能连升多级。
func (s *ProgressionService) AddExperience(ctx context.Context, userID int64, xp int64) (bool, int64, error) {
	if xp <= 0 {
		// 空操作不留副作用：只读查询，账户不存在也不建行
		account, err := s.accountRepo.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return false, 1, nil
			}
			return false, 0, fmt.Errorf("获取账户信息失败: %w", err)
		}
		return false, account.Level, nil
	}

	if _, err := s.accountRepo.GetOrCreate(ctx, userID); err != nil {
		return false, 0, fmt.Errorf("获取账户信息失败: %w", err)
	}

	var leveledUp bool
	var level int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		leveledUp = locked.GainExperience(xp)
		level = locked.Level

		return s.accountRepo.UpdateProgress(ctx, tx, userID, locked.Level, locked.Experience)
	})
	if err != nil {
		return false, 0, err
	}

	if leveledUp {
		metrics.LevelUps.Inc()
	}

	return leveledUp, level, nil
}

// applyExperienceLocked 在已持有账户行锁的事务内增加经验
// 供回收流程复用：扣币、加经验、升级在同一个事务里落库
func (s *ProgressionService) applyExperienceLocked(ctx context.Context, tx *gorm.DB, account *model.Account, xp int64) (bool, error) {
	leveledUp := account.GainExperience(xp)
	if err := s.accountRepo.UpdateProgress(ctx, tx, account.UserID, account.Level, account.Experience); err != nil {
		return false, err
	}
	return leveledUp, nil
}
