package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOffer_Sale(t *testing.T) {
	price, ok := ValidateOffer(CoinTypeRecycling, 10, 1.5, OfferTypeSale)
	assert.True(t, ok)
	assert.Equal(t, 1.5, price)

	// 出售单必须有正单价
	_, ok = ValidateOffer(CoinTypeRecycling, 10, 0, OfferTypeSale)
	assert.False(t, ok)
	_, ok = ValidateOffer(CoinTypeRecycling, 10, -1, OfferTypeSale)
	assert.False(t, ok)
}

func TestValidateOffer_GiftForcesZeroPrice(t *testing.T) {
	price, ok := ValidateOffer(CoinTypeRecycling, 10, 99.9, OfferTypeGift)
	assert.True(t, ok)
	assert.Equal(t, float64(0), price)
}

func TestValidateOffer_InvalidInputs(t *testing.T) {
	_, ok := ValidateOffer("gold", 10, 1, OfferTypeSale)
	assert.False(t, ok)

	_, ok = ValidateOffer(CoinTypeRecycling, 0, 1, OfferTypeSale)
	assert.False(t, ok)

	_, ok = ValidateOffer(CoinTypeRecycling, -5, 1, OfferTypeSale)
	assert.False(t, ok)

	_, ok = ValidateOffer(CoinTypeRecycling, 10, 1, "auction")
	assert.False(t, ok)
}

func TestTotalPrice_Floor(t *testing.T) {
	offer := &CoinOffer{OfferType: OfferTypeSale, Amount: 7, PricePerCoin: 1.5}
	// 7 * 1.5 = 10.5，向下取整
	assert.Equal(t, int64(10), offer.TotalPrice())

	offer = &CoinOffer{OfferType: OfferTypeSale, Amount: 10, PricePerCoin: 2}
	assert.Equal(t, int64(20), offer.TotalPrice())
}

func TestTotalPrice_GiftIsFree(t *testing.T) {
	offer := &CoinOffer{OfferType: OfferTypeGift, Amount: 100, PricePerCoin: 5}
	assert.Equal(t, int64(0), offer.TotalPrice())
}

func TestCanBePurchasedBy(t *testing.T) {
	open := &CoinOffer{SellerID: 1}
	assert.False(t, open.CanBePurchasedBy(1), "不能购买自己的挂单")
	assert.True(t, open.CanBePurchasedBy(2))

	target := int64(3)
	targeted := &CoinOffer{SellerID: 1, TargetUserID: &target}
	assert.True(t, targeted.CanBePurchasedBy(3))
	assert.False(t, targeted.CanBePurchasedBy(2), "定向挂单只有目标用户可买")
	assert.False(t, targeted.CanBePurchasedBy(1))
}

func TestOfferCanTransitionTo(t *testing.T) {
	assert.True(t, OfferCanTransitionTo(OfferStatusActive, OfferStatusCompleted))
	assert.True(t, OfferCanTransitionTo(OfferStatusActive, OfferStatusCancelled))

	// 终态不能再流转
	assert.False(t, OfferCanTransitionTo(OfferStatusCompleted, OfferStatusCancelled))
	assert.False(t, OfferCanTransitionTo(OfferStatusCancelled, OfferStatusActive))
	assert.False(t, OfferCanTransitionTo(OfferStatusCompleted, OfferStatusActive))
}
