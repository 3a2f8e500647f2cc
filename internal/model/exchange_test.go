package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateExchange(t *testing.T) {
	// 正常：两侧都有东西
	assert.True(t, ValidateExchange(
		CoinPair{Recycling: 10},
		CoinPair{Reputation: 5},
	))

	// 两种币同时给出也合法
	assert.True(t, ValidateExchange(
		CoinPair{Recycling: 10, Reputation: 2},
		CoinPair{Recycling: 1},
	))

	// 任一侧全为零不合法
	assert.False(t, ValidateExchange(CoinPair{}, CoinPair{Recycling: 5}))
	assert.False(t, ValidateExchange(CoinPair{Recycling: 5}, CoinPair{}))
	assert.False(t, ValidateExchange(CoinPair{}, CoinPair{}))

	// 负数不合法
	assert.False(t, ValidateExchange(CoinPair{Recycling: -1}, CoinPair{Reputation: 5}))
	assert.False(t, ValidateExchange(CoinPair{Recycling: 1}, CoinPair{Reputation: -5}))
}

func TestCanAfford(t *testing.T) {
	account := &Account{RecyclingCoins: 10, ReputationCoins: 5}

	assert.True(t, CanAfford(account, CoinPair{Recycling: 10, Reputation: 5}))
	assert.True(t, CanAfford(account, CoinPair{Recycling: 3}))
	assert.False(t, CanAfford(account, CoinPair{Recycling: 11}))
	assert.False(t, CanAfford(account, CoinPair{Reputation: 6}))
	assert.False(t, CanAfford(account, CoinPair{Recycling: 10, Reputation: 6}))
}

func TestExchangeCanTransitionTo(t *testing.T) {
	assert.True(t, ExchangeCanTransitionTo(ExchangeStatusPending, ExchangeStatusAccepted))
	assert.True(t, ExchangeCanTransitionTo(ExchangeStatusPending, ExchangeStatusRejected))
	assert.True(t, ExchangeCanTransitionTo(ExchangeStatusPending, ExchangeStatusCancelled))

	// 终态不能再流转
	assert.False(t, ExchangeCanTransitionTo(ExchangeStatusAccepted, ExchangeStatusCancelled))
	assert.False(t, ExchangeCanTransitionTo(ExchangeStatusRejected, ExchangeStatusPending))
	assert.False(t, ExchangeCanTransitionTo(ExchangeStatusCancelled, ExchangeStatusAccepted))
}

func testNoGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("TXN%d", n)
	}
}

func TestBuildExchangeLegs_AllFour(t *testing.T) {
	e := &ExchangeRequest{
		ExchangeNo:             "EXC1",
		RequesterID:            1,
		ReceiverID:             2,
		OfferRecyclingCoins:    10,
		OfferReputationCoins:   3,
		RequestRecyclingCoins:  5,
		RequestReputationCoins: 1,
	}

	legs := BuildExchangeLegs(e, testNoGen())

	assert.Len(t, legs, 4)
	for _, leg := range legs {
		assert.Equal(t, "EXC1", leg.ExchangeNo)
		assert.Equal(t, TransactionTypeExchange, leg.TransactionType)
		assert.NotNil(t, leg.SenderID)
		assert.Positive(t, leg.Amount)
	}

	// 前两条：发起方 -> 接收方
	assert.Equal(t, int64(1), *legs[0].SenderID)
	assert.Equal(t, int64(2), legs[0].ReceiverID)
	assert.Equal(t, CoinTypeRecycling, legs[0].CoinType)
	assert.Equal(t, int64(10), legs[0].Amount)

	// 后两条：接收方 -> 发起方
	assert.Equal(t, int64(2), *legs[2].SenderID)
	assert.Equal(t, int64(1), legs[2].ReceiverID)
	assert.Equal(t, int64(5), legs[2].Amount)
}

func TestBuildExchangeLegs_SkipsZeroLegs(t *testing.T) {
	e := &ExchangeRequest{
		ExchangeNo:            "EXC2",
		RequesterID:           1,
		ReceiverID:            2,
		OfferRecyclingCoins:   10,
		RequestRecyclingCoins: 5,
	}

	legs := BuildExchangeLegs(e, testNoGen())

	assert.Len(t, legs, 2)
	assert.Equal(t, CoinTypeRecycling, legs[0].CoinType)
	assert.Equal(t, CoinTypeRecycling, legs[1].CoinType)
}

func TestBuildExchangeLegs_UniqueTransactionNos(t *testing.T) {
	e := &ExchangeRequest{
		ExchangeNo:             "EXC3",
		RequesterID:            1,
		ReceiverID:             2,
		OfferRecyclingCoins:    1,
		OfferReputationCoins:   1,
		RequestRecyclingCoins:  1,
		RequestReputationCoins: 1,
	}

	legs := BuildExchangeLegs(e, testNoGen())

	seen := make(map[string]bool)
	for _, leg := range legs {
		assert.False(t, seen[leg.TransactionNo])
		seen[leg.TransactionNo] = true
	}
}
