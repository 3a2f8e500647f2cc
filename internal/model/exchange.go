package model

import (
	"time"
)

// 交换请求状态常量
const (
	ExchangeStatusPending   = "PENDING"   // 等待对方响应，发起方的币已托管
	ExchangeStatusAccepted  = "ACCEPTED"  // 已接受（终态）
	ExchangeStatusRejected  = "REJECTED"  // 已拒绝（终态）
	ExchangeStatusCancelled = "CANCELLED" // 已取消（终态）
)

// ValidExchangeTransitions 交换状态机：PENDING 之后都是终态
var ValidExchangeTransitions = map[string][]string{
	ExchangeStatusPending: {ExchangeStatusAccepted, ExchangeStatusRejected, ExchangeStatusCancelled},
}

// ExchangeCanTransitionTo 校验交换状态流转是否合法
func ExchangeCanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidExchangeTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// CoinPair 一组两种币的数量，用于描述交换的某一侧
type CoinPair struct {
	Recycling  int64
	Reputation int64
}

// IsZero 两种币都为零
func (p CoinPair) IsZero() bool {
	return p.Recycling == 0 && p.Reputation == 0
}

// IsNegative 任一币数量为负
func (p CoinPair) IsNegative() bool {
	return p.Recycling < 0 || p.Reputation < 0
}

// ExchangeRequest 直接交换请求表
//
// 发起方（requester）提出：我给你 offer_* 的币，换你 request_* 的币。
// 【托管设计】创建时立即扣除发起方的 offer_* 币；接收方的币不托管，
// 因此接受时必须重新检查接收方余额，不足则自动拒绝并退还托管。
type ExchangeRequest struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ExchangeNo             string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"exchange_no"`
	RequesterID            int64     `gorm:"index;not null" json:"requester_id"`
	ReceiverID             int64     `gorm:"index;not null" json:"receiver_id"`
	OfferRecyclingCoins    int64     `gorm:"not null;default:0" json:"offer_recycling_coins"`
	OfferReputationCoins   int64     `gorm:"not null;default:0" json:"offer_reputation_coins"`
	RequestRecyclingCoins  int64     `gorm:"not null;default:0" json:"request_recycling_coins"`
	RequestReputationCoins int64     `gorm:"not null;default:0" json:"request_reputation_coins"`
	Message                string    `gorm:"type:varchar(256)" json:"message"`
	Status                 string    `gorm:"type:varchar(20);index;not null" json:"status"`
	ExpiresAt              time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt              time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ExchangeRequest) TableName() string {
	return "exchange_request"
}

// Offered 发起方给出的币
func (e *ExchangeRequest) Offered() CoinPair {
	return CoinPair{Recycling: e.OfferRecyclingCoins, Reputation: e.OfferReputationCoins}
}

// Requested 发起方索要的币
func (e *ExchangeRequest) Requested() CoinPair {
	return CoinPair{Recycling: e.RequestRecyclingCoins, Reputation: e.RequestReputationCoins}
}

// ValidateExchange 创建交换请求前的参数校验
//
// 两侧都必须有东西：给出的币和索要的币都不能全为零，也不能出现负数。
func ValidateExchange(offered, requested CoinPair) bool {
	if offered.IsNegative() || requested.IsNegative() {
		return false
	}
	if offered.IsZero() || requested.IsZero() {
		return false
	}
	return true
}

// CanAfford 账户余额是否足以支付一组币
func CanAfford(account *Account, pair CoinPair) bool {
	return account.RecyclingCoins >= pair.Recycling && account.ReputationCoins >= pair.Reputation
}
