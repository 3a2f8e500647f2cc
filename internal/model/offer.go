package model

import (
	"math"
	"time"
)

// 挂单类型常量
const (
	OfferTypeSale = "sale" // 出售：买家用声望币购买
	OfferTypeGift = "gift" // 赠送：价格强制为 0
)

// 挂单状态常量
const (
	OfferStatusActive    = "ACTIVE"    // 挂单中，币已托管
	OfferStatusCompleted = "COMPLETED" // 已成交（终态）
	OfferStatusCancelled = "CANCELLED" // 已取消（终态）
)

// ValidOfferTransitions 挂单状态机：ACTIVE 之后都是终态
var ValidOfferTransitions = map[string][]string{
	OfferStatusActive: {OfferStatusCompleted, OfferStatusCancelled},
}

// OfferCanTransitionTo 校验挂单状态流转是否合法
func OfferCanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidOfferTransitions[currentStatus]
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

// CoinOffer 市场挂单表
//
// 【托管设计】创建挂单时立即从卖家余额扣除 amount（托管），
// 成交时托管的币转给买家，取消时退还卖家。
// 这保证余额永不为负，也避免了成交时再查卖家余额的竞态。
type CoinOffer struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OfferNo      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"offer_no"`
	SellerID     int64     `gorm:"index;not null" json:"seller_id"`
	TargetUserID *int64    `gorm:"index" json:"target_user_id"` // 定向挂单：只有该用户可以购买
	CoinType     string    `gorm:"type:varchar(20);not null" json:"coin_type"`
	Amount       int64     `gorm:"not null" json:"amount"`
	PricePerCoin float64   `gorm:"not null;default:0" json:"price_per_coin"` // 单价（声望币）
	OfferType    string    `gorm:"type:varchar(10);not null" json:"offer_type"`
	Status       string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CoinOffer) TableName() string {
	return "coin_offer"
}

// TotalPrice 成交总价：floor(amount * price_per_coin)，赠送单恒为 0
func (o *CoinOffer) TotalPrice() int64 {
	if o.OfferType == OfferTypeGift {
		return 0
	}
	return int64(math.Floor(float64(o.Amount) * o.PricePerCoin))
}

// IsTargeted 是否为定向挂单
func (o *CoinOffer) IsTargeted() bool {
	return o.TargetUserID != nil
}

// CanBePurchasedBy 校验买家资格：不能买自己的单，定向单只有目标用户可买
func (o *CoinOffer) CanBePurchasedBy(buyerID int64) bool {
	if buyerID == o.SellerID {
		return false
	}
	if o.TargetUserID != nil && *o.TargetUserID != buyerID {
		return false
	}
	return true
}

// ValidateOffer 创建挂单前的参数校验
//
// 出售单要求单价大于 0；赠送单的单价会被强制归零（返回修正后的单价）。
func ValidateOffer(coinType string, amount int64, pricePerCoin float64, offerType string) (float64, bool) {
	if !IsValidCoinType(coinType) {
		return 0, false
	}
	if amount <= 0 {
		return 0, false
	}
	switch offerType {
	case OfferTypeSale:
		if pricePerCoin <= 0 {
			return 0, false
		}
		return pricePerCoin, true
	case OfferTypeGift:
		return 0, true
	}
	return 0, false
}
