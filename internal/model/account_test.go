package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextLevelThreshold(t *testing.T) {
	assert.Equal(t, int64(100), NextLevelThreshold(1))
	assert.Equal(t, int64(200), NextLevelThreshold(2))
	assert.Equal(t, int64(1000), NextLevelThreshold(10))
}

func TestGainExperience_NoLevelUp(t *testing.T) {
	a := &Account{Level: 1, Experience: 0}

	leveledUp := a.GainExperience(50)

	assert.False(t, leveledUp)
	assert.Equal(t, int64(1), a.Level)
	assert.Equal(t, int64(50), a.Experience)
}

func TestGainExperience_SingleLevelUp(t *testing.T) {
	a := &Account{Level: 1, Experience: 80}

	leveledUp := a.GainExperience(30)

	assert.True(t, leveledUp)
	assert.Equal(t, int64(2), a.Level)
	assert.Equal(t, int64(10), a.Experience)
}

func TestGainExperience_MultiLevelUp(t *testing.T) {
	// 1级拿到250经验：消耗100升到2级，剩150；
	// 2级阈值200不够再升，停在2级/150
	a := &Account{Level: 1, Experience: 0}

	leveledUp := a.GainExperience(250)

	assert.True(t, leveledUp)
	assert.Equal(t, int64(2), a.Level)
	assert.Equal(t, int64(150), a.Experience)
}

func TestGainExperience_ExactThreshold(t *testing.T) {
	a := &Account{Level: 1, Experience: 0}

	leveledUp := a.GainExperience(100)

	assert.True(t, leveledUp)
	assert.Equal(t, int64(2), a.Level)
	assert.Equal(t, int64(0), a.Experience)
}

func TestGainExperience_LargeAmount(t *testing.T) {
	// 100+200+300=600 正好升到4级
	a := &Account{Level: 1, Experience: 0}

	leveledUp := a.GainExperience(600)

	assert.True(t, leveledUp)
	assert.Equal(t, int64(4), a.Level)
	assert.Equal(t, int64(0), a.Experience)
}

func TestGainExperience_NonPositive(t *testing.T) {
	a := &Account{Level: 3, Experience: 42}

	assert.False(t, a.GainExperience(0))
	assert.False(t, a.GainExperience(-10))
	assert.Equal(t, int64(3), a.Level)
	assert.Equal(t, int64(42), a.Experience)
}

func TestBalance(t *testing.T) {
	a := &Account{RecyclingCoins: 100, ReputationCoins: 30}

	assert.Equal(t, int64(100), a.Balance(CoinTypeRecycling))
	assert.Equal(t, int64(30), a.Balance(CoinTypeReputation))
}

func TestIsValidCoinType(t *testing.T) {
	assert.True(t, IsValidCoinType(CoinTypeRecycling))
	assert.True(t, IsValidCoinType(CoinTypeReputation))
	assert.False(t, IsValidCoinType("gold"))
	assert.False(t, IsValidCoinType(""))
}
