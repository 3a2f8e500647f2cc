package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 业务指标，挂在 /metrics 上由 Prometheus 抓取
var (
	RecyclingSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reciclo_recycling_submissions_total",
		Help: "回收提交成功次数",
	})

	CoinTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reciclo_coin_transactions_total",
		Help: "完成的币转账流水数，按流水类型划分",
	}, []string{"type"})

	AchievementsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reciclo_achievements_unlocked_total",
		Help: "解锁的成就总数",
	})

	LevelUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reciclo_level_ups_total",
		Help: "用户升级次数",
	})
)
