package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLongestConsecutiveMonths_Empty(t *testing.T) {
	assert.Equal(t, int64(0), LongestConsecutiveMonths(nil))
	assert.Equal(t, int64(0), LongestConsecutiveMonths([]string{}))
}

func TestLongestConsecutiveMonths_SingleMonth(t *testing.T) {
	assert.Equal(t, int64(1), LongestConsecutiveMonths([]string{"2026-03"}))
}

func TestLongestConsecutiveMonths_Consecutive(t *testing.T) {
	months := []string{"2026-01", "2026-02", "2026-03"}
	assert.Equal(t, int64(3), LongestConsecutiveMonths(months))
}

func TestLongestConsecutiveMonths_WithGap(t *testing.T) {
	// 1-2月连续，4-5-6月连续，最长为3
	months := []string{"2026-01", "2026-02", "2026-04", "2026-05", "2026-06"}
	assert.Equal(t, int64(3), LongestConsecutiveMonths(months))
}

func TestLongestConsecutiveMonths_YearRollover(t *testing.T) {
	// 跨年：12月到次年1月算连续
	months := []string{"2025-11", "2025-12", "2026-01", "2026-02"}
	assert.Equal(t, int64(4), LongestConsecutiveMonths(months))
}

func TestLongestConsecutiveMonths_Unordered(t *testing.T) {
	months := []string{"2026-03", "2026-01", "2026-02"}
	assert.Equal(t, int64(3), LongestConsecutiveMonths(months))
}

func TestLongestConsecutiveMonths_Duplicates(t *testing.T) {
	months := []string{"2026-01", "2026-01", "2026-02"}
	assert.Equal(t, int64(2), LongestConsecutiveMonths(months))
}

func TestLongestConsecutiveMonths_InvalidKeys(t *testing.T) {
	// 非法键不参与计算
	months := []string{"garbage", "2026-01", "2026-02"}
	assert.Equal(t, int64(2), LongestConsecutiveMonths(months))

	assert.Equal(t, int64(0), LongestConsecutiveMonths([]string{"not-a-month"}))
}

func TestLongestConsecutiveMonths_SameMonthDifferentYear(t *testing.T) {
	// 相隔整整一年不算连续
	months := []string{"2025-06", "2026-06"}
	assert.Equal(t, int64(1), LongestConsecutiveMonths(months))
}
