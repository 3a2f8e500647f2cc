package repository

import (
	"context"
	"errors"

	"reciclo/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByUserIDForUpdate 在事务内加行锁读取账户
// 锁会持有到事务提交，保证"读-检查-写"序列不被并发打断
func (r *AccountRepository) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetPairForUpdate 在事务内按 user_id 升序加锁读取两个账户
//
// 【关键点】涉及两个账户的操作（购买、交换）必须按固定顺序加锁：
// 若 A->B 与 B->A 两个操作以相反顺序加锁，会互相持锁等待造成死锁。
// 统一按 user_id 升序加锁后，环路不可能出现。
func (r *AccountRepository) GetPairForUpdate(ctx context.Context, tx *gorm.DB, userIDA, userIDB int64) (*model.Account, *model.Account, error) {
	first, second := userIDA, userIDB
	if first > second {
		first, second = second, first
	}

	firstAccount, err := r.GetByUserIDForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	secondAccount, err := r.GetByUserIDForUpdate(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == userIDA {
		return firstAccount, secondAccount, nil
	}
	return secondAccount, firstAccount, nil
}

// AddCoins 增加某币种余额
func (r *AccountRepository) AddCoins(ctx context.Context, tx *gorm.DB, userID int64, coinType string, amount int64) error {
	if amount == 0 {
		return nil
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			balanceColumn(coinType): gorm.Expr(balanceColumn(coinType)+" + ?", amount),
			"version":               gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeductCoins 扣减某币种余额
// WHERE 条件带余额校验，保证余额永不为负；0 行受影响即余额不足
func (r *AccountRepository) DeductCoins(ctx context.Context, tx *gorm.DB, userID int64, coinType string, amount int64) error {
	if amount == 0 {
		return nil
	}

	column := balanceColumn(coinType)
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ? AND "+column+" >= ?", userID, amount).
		Updates(map[string]interface{}{
			column:    gorm.Expr(column+" - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBalanceNotEnough
	}
	return nil
}

// DeductPair 扣减两种币（交换托管用），调用方需已确认余额充足并持有行锁
func (r *AccountRepository) DeductPair(ctx context.Context, tx *gorm.DB, userID int64, pair model.CoinPair) error {
	if err := r.DeductCoins(ctx, tx, userID, model.CoinTypeRecycling, pair.Recycling); err != nil {
		return err
	}
	return r.DeductCoins(ctx, tx, userID, model.CoinTypeReputation, pair.Reputation)
}

// AddPair 增加两种币（交换退还/结算用）
func (r *AccountRepository) AddPair(ctx context.Context, tx *gorm.DB, userID int64, pair model.CoinPair) error {
	if err := r.AddCoins(ctx, tx, userID, model.CoinTypeRecycling, pair.Recycling); err != nil {
		return err
	}
	return r.AddCoins(ctx, tx, userID, model.CoinTypeReputation, pair.Reputation)
}

// UpdateProgress 持久化等级与经验（必须在持有该账户行锁的事务内调用）
func (r *AccountRepository) UpdateProgress(ctx context.Context, tx *gorm.DB, userID int64, level, experience int64) error {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"level":      level,
			"experience": experience,
			"version":    gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) GetOrCreate(ctx context.Context, userID int64) (*model.Account, error) {
	account, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}

	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	newAccount := &model.Account{
		UserID: userID,
		Level:  1,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error

	if err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, userID)
}

func balanceColumn(coinType string) string {
	if coinType == model.CoinTypeReputation {
		return "reputation_coins"
	}
	return "recycling_coins"
}
