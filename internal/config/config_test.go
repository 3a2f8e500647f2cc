package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBottleReward(t *testing.T) {
	b := &BusinessConfig{
		BottleRewards:       map[string]int64{"500ml": 5, "2l": 12},
		DefaultBottleReward: 3,
	}

	assert.Equal(t, int64(5), b.BottleReward("500ml"))
	assert.Equal(t, int64(12), b.BottleReward("2l"))
	// 未知容量走兜底
	assert.Equal(t, int64(3), b.BottleReward("330ml"))
	assert.Equal(t, int64(3), b.BottleReward(""))
}

func TestLoadConfig(t *testing.T) {
	content := `
server:
  port: 9090
mysql:
  host: localhost
  port: 3306
  user: test
  password: test
  database: test
redis:
  host: localhost
  port: 6379
kafka:
  brokers:
    - localhost:9092
  topic:
    coin_transaction: coin-txn
    achievement_unlocked: achievement
business:
  bottle_rewards:
    500ml: 5
  default_bottle_reward: 4
  achievement_reward: 15
achievements:
  - id: 1
    title: 回收新手
    criteria_type: BOTTLES_TOTAL
    criteria_value: 10
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := LoadConfig(path)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "coin-txn", cfg.Kafka.Topic.CoinTransaction)
	assert.Equal(t, int64(5), cfg.Business.BottleRewards["500ml"])
	assert.Equal(t, int64(4), cfg.Business.DefaultBottleReward)
	assert.Equal(t, int64(15), cfg.Business.AchievementReward)

	require.Len(t, cfg.Achievements, 1)
	assert.Equal(t, "BOTTLES_TOTAL", cfg.Achievements[0].CriteriaType)
	assert.Equal(t, int64(10), cfg.Achievements[0].CriteriaValue)
}

func TestLoadConfig_Defaults(t *testing.T) {
	content := `
server:
  port: 8080
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := LoadConfig(path)

	assert.Equal(t, int64(5), cfg.Business.DefaultBottleReward)
	assert.Equal(t, int64(10), cfg.Business.AchievementReward)
	assert.Equal(t, int64(20), cfg.Business.ModelUploadXP)
	assert.Equal(t, 7, cfg.Business.ExchangeExpiryDays)
	assert.Equal(t, 5, cfg.Business.MaxRetryCount)
}
