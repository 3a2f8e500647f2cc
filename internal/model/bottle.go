package model

import (
	"sort"
	"time"
)

// MonthKeyFormat 回收历史的月份键格式（如 "2026-08"）
const MonthKeyFormat = "2006-01"

// Bottle 回收记录表
// 每次提交回收生成一条记录，只追加不修改
type Bottle struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	BottleType string    `gorm:"type:varchar(100);not null" json:"bottle_type"` // 如 "1A: 品牌1, 2L"
	Volume     string    `gorm:"type:varchar(32);not null" json:"volume"`       // 容量标签，对应奖励表的键
	Quantity   int64     `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Bottle) TableName() string {
	return "bottle"
}

// RecyclingHistory 月度回收汇总表
// 每个 (用户, 自然月) 一行，首次提交时创建，数量单调递增
type RecyclingHistory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:uk_user_month;not null" json:"user_id"`
	Month     string    `gorm:"type:varchar(7);uniqueIndex:uk_user_month;not null" json:"month"` // "YYYY-MM"
	Quantity  int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RecyclingHistory) TableName() string {
	return "recycling_history"
}

// LongestConsecutiveMonths 计算最长的连续回收月份数
//
// 入参是去重后的月份键列表（"YYYY-MM"），顺序不限。
// 算法：按时间排序后，相邻两项正好相差一个自然月则连续计数加一（跨年也成立），
// 出现断档则重置为 1，返回观察到的最大值；没有任何历史时返回 0。
func LongestConsecutiveMonths(months []string) int64 {
	if len(months) == 0 {
		return 0
	}

	dates := make([]time.Time, 0, len(months))
	seen := make(map[string]struct{}, len(months))
	for _, m := range months {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}

		t, err := time.Parse(MonthKeyFormat, m)
		if err != nil {
			// 非法的月份键不参与计算
			continue
		}
		dates = append(dates, t)
	}
	if len(dates) == 0 {
		return 0
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var maxStreak, streak int64 = 1, 1
	for i := 1; i < len(dates); i++ {
		prev, cur := dates[i-1], dates[i]
		monthsApart := (cur.Year()-prev.Year())*12 + int(cur.Month()) - int(prev.Month())
		if monthsApart == 1 {
			streak++
		} else {
			streak = 1
		}
		if streak > maxStreak {
			maxStreak = streak
		}
	}

	return maxStreak
}
