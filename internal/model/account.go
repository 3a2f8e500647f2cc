package model

import (
	"time"
)

// 币种常量
const (
	CoinTypeRecycling  = "recycling"  // 回收币：回收瓶子获得，市场上被出售/赠送的标的
	CoinTypeReputation = "reputation" // 声望币：成就奖励与购买结算货币
)

// IsValidCoinType 校验币种枚举
func IsValidCoinType(coinType string) bool {
	return coinType == CoinTypeRecycling || coinType == CoinTypeReputation
}

// Account 用户账户表
// 记录用户的两种币余额与成长进度，是整个虚拟经济系统的核心数据
//
// 不变量：两种币余额永不为负；level >= 1；experience >= 0。
// 余额只允许在 service 层的数据库事务内、持有行锁时修改。
type Account struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64     `gorm:"uniqueIndex;not null" json:"user_id"`        // 用户ID，业务方传入
	RecyclingCoins  int64     `gorm:"not null;default:0" json:"recycling_coins"`  // 回收币余额
	ReputationCoins int64     `gorm:"not null;default:0" json:"reputation_coins"` // 声望币余额
	Level           int64     `gorm:"not null;default:1" json:"level"`            // 当前等级
	Experience      int64     `gorm:"not null;default:0" json:"experience"`       // 当前等级内的经验值
	Version         int       `gorm:"not null;default:0" json:"version"`          // 乐观锁版本号
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// Balance 按币种取余额
func (a *Account) Balance(coinType string) int64 {
	if coinType == CoinTypeReputation {
		return a.ReputationCoins
	}
	return a.RecyclingCoins
}

// NextLevelThreshold 升到下一级所需经验，随等级线性增长
// 1级需要100，2级需要200，以此类推
func NextLevelThreshold(level int64) int64 {
	return level * 100
}

// GainExperience 增加经验并处理升级
//
// xp 必须为正数，否则不做任何事并返回 false。
// 一次大额经验可能连升多级：每次循环消耗当前等级的阈值后重新计算阈值。
// 返回本次调用是否至少升了一级。
func (a *Account) GainExperience(xp int64) bool {
	if xp <= 0 {
		return false
	}

	a.Experience += xp
	leveledUp := false

	threshold := NextLevelThreshold(a.Level)
	for a.Experience >= threshold {
		a.Experience -= threshold
		a.Level++
		leveledUp = true
		threshold = NextLevelThreshold(a.Level)
	}

	return leveledUp
}
