package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	MySQL        MySQLConfig         `mapstructure:"mysql"`
	Redis        RedisConfig         `mapstructure:"redis"`
	Kafka        KafkaConfig         `mapstructure:"kafka"`
	Business     BusinessConfig      `mapstructure:"business"`
	Achievements []AchievementConfig `mapstructure:"achievements"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	CoinTransaction     string `mapstructure:"coin_transaction"`
	AchievementUnlocked string `mapstructure:"achievement_unlocked"`
}

// BusinessConfig 业务规则配置
//
// bottle_rewards 是回收奖励表：容量标签 -> 每个瓶子的基础回收币奖励。
// 未知容量使用 default_bottle_reward 兜底。
type BusinessConfig struct {
	BottleRewards       map[string]int64 `mapstructure:"bottle_rewards"`
	DefaultBottleReward int64            `mapstructure:"default_bottle_reward"`
	AchievementReward   int64            `mapstructure:"achievement_reward"`
	ModelUploadXP       int64            `mapstructure:"model_upload_xp"`
	ExchangeExpiryDays  int              `mapstructure:"exchange_expiry_days"`
	MaxRetryCount       int              `mapstructure:"max_retry_count"`
}

// BottleReward 查询某个容量标签对应的单瓶奖励
func (b *BusinessConfig) BottleReward(volume string) int64 {
	if reward, ok := b.BottleRewards[volume]; ok {
		return reward
	}
	return b.DefaultBottleReward
}

// AchievementConfig 成就目录条目
//
// 成就目录是只读配置数据，启动时一次性加载，运行期不可变。
// criteria_type 是封闭枚举（见 model 包），criteria_value 是解锁阈值。
type AchievementConfig struct {
	ID            int64  `mapstructure:"id"`
	Title         string `mapstructure:"title"`
	Description   string `mapstructure:"description"`
	IconName      string `mapstructure:"icon_name"`
	CriteriaType  string `mapstructure:"criteria_type"`
	CriteriaValue int64  `mapstructure:"criteria_value"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	applyDefaults(config)

	GlobalConfig = config
	return config
}

func applyDefaults(config *Config) {
	if config.Business.DefaultBottleReward <= 0 {
		config.Business.DefaultBottleReward = 5
	}
	if config.Business.AchievementReward <= 0 {
		config.Business.AchievementReward = 10
	}
	if config.Business.ModelUploadXP <= 0 {
		config.Business.ModelUploadXP = 20
	}
	if config.Business.ExchangeExpiryDays <= 0 {
		config.Business.ExchangeExpiryDays = 7
	}
	if config.Business.MaxRetryCount <= 0 {
		config.Business.MaxRetryCount = 5
	}
}
