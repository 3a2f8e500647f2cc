package service

import (
	"testing"
	"time"

	"reciclo/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB 基于 sqlmock 的 gorm 连接
// 期望按声明顺序匹配，因此也能校验加锁/写入的先后次序
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	return gdb, mock
}

// newTestRedis 进程内 redis，分布式锁走真实命令
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				CoinTransaction:     "coin-transaction",
				AchievementUnlocked: "achievement-unlocked",
			},
		},
		Business: config.BusinessConfig{
			DefaultBottleReward: 5,
			AchievementReward:   10,
			ModelUploadXP:       20,
			ExchangeExpiryDays:  7,
			MaxRetryCount:       5,
		},
	}
}

func accountRows(userID, recyclingCoins, reputationCoins int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "recycling_coins", "reputation_coins", "level", "experience", "version",
	}).AddRow(userID, userID, recyclingCoins, reputationCoins, 1, 0, 0)
}

// pendingExchangeRows 发起方1给出10回收币，向接收方2索要5声望币
func pendingExchangeRows(exchangeID int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "exchange_no", "requester_id", "receiver_id",
		"offer_recycling_coins", "offer_reputation_coins",
		"request_recycling_coins", "request_reputation_coins",
		"message", "status", "expires_at",
	}).AddRow(exchangeID, "EXC20260801120000_00000001", 1, 2, 10, 0, 0, 5, "", "PENDING",
		time.Now().Add(24*time.Hour))
}
