package model

import (
	"time"
)

// ============================================================================
// 转账流水
// ============================================================================

// 流水类型常量
const (
	TransactionTypePurchase = "PURCHASE" // 市场购买
	TransactionTypeGift     = "GIFT"     // 市场赠送
	TransactionTypeExchange = "EXCHANGE" // 直接交换
	TransactionTypeSystem   = "SYSTEM"   // 系统发放（回收奖励、成就奖励）
)

// CoinTransaction 币转账流水表
// 记录每一笔完成的转账，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 系统发放的流水 sender_id 为空，表示币是注入而非转移
// 3. 每笔流水记录来源挂单/交换编号 —— 便于对账
type CoinTransaction struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	SenderID        *int64    `gorm:"index" json:"sender_id"` // 为空表示系统发放
	ReceiverID      int64     `gorm:"index;not null" json:"receiver_id"`
	OfferNo         string    `gorm:"type:varchar(64);index" json:"offer_no"`    // 来源挂单（可空）
	ExchangeNo      string    `gorm:"type:varchar(64);index" json:"exchange_no"` // 来源交换（可空）
	CoinType        string    `gorm:"type:varchar(20);not null" json:"coin_type"`
	Amount          int64     `gorm:"not null" json:"amount"`
	TransactionType string    `gorm:"type:varchar(20);not null" json:"transaction_type"`
	PricePaid       int64     `gorm:"not null;default:0" json:"price_paid"` // 成交时支付的声望币总价
	Notes           string    `gorm:"type:varchar(256)" json:"notes"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CoinTransaction) TableName() string {
	return "coin_transaction"
}

// BuildRecyclingRewardLegs 把一次回收发放拆成系统流水
//
// 回收币和声望币各记一条（数量为零的跳过），sender 为空表示系统注入，
// 保证每一笔入账都能从流水表单独对出来。
func BuildRecyclingRewardLegs(userID, recyclingCoins, reputationCoins int64, notes string, noGen func() string) []*CoinTransaction {
	type leg struct {
		coinType string
		amount   int64
	}
	legs := []leg{
		{CoinTypeRecycling, recyclingCoins},
		{CoinTypeReputation, reputationCoins},
	}

	var result []*CoinTransaction
	for _, l := range legs {
		if l.amount <= 0 {
			continue
		}
		result = append(result, &CoinTransaction{
			TransactionNo:   noGen(),
			SenderID:        nil, // 系统发放
			ReceiverID:      userID,
			CoinType:        l.coinType,
			Amount:          l.amount,
			TransactionType: TransactionTypeSystem,
			Notes:           notes,
		})
	}
	return result
}

// BuildExchangeLegs 把一次成交的交换拆成流水记录
//
// 每个非零的 币种×方向 生成一条流水，最多四条：
// 发起方托管的币流向接收方，接收方的币流向发起方。
func BuildExchangeLegs(e *ExchangeRequest, noGen func() string) []*CoinTransaction {
	requesterID := e.RequesterID
	receiverID := e.ReceiverID

	type leg struct {
		sender   int64
		receiver int64
		coinType string
		amount   int64
	}
	legs := []leg{
		{requesterID, receiverID, CoinTypeRecycling, e.OfferRecyclingCoins},
		{requesterID, receiverID, CoinTypeReputation, e.OfferReputationCoins},
		{receiverID, requesterID, CoinTypeRecycling, e.RequestRecyclingCoins},
		{receiverID, requesterID, CoinTypeReputation, e.RequestReputationCoins},
	}

	var result []*CoinTransaction
	for _, l := range legs {
		if l.amount <= 0 {
			continue
		}
		sender := l.sender
		result = append(result, &CoinTransaction{
			TransactionNo:   noGen(),
			SenderID:        &sender,
			ReceiverID:      l.receiver,
			ExchangeNo:      e.ExchangeNo,
			CoinType:        l.coinType,
			Amount:          l.amount,
			TransactionType: TransactionTypeExchange,
		})
	}
	return result
}
