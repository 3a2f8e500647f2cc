package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextID_Unique(t *testing.T) {
	const n = 10000
	ids := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		id := NextID()
		assert.False(t, ids[id], "ID 重复: %d", id)
		ids[id] = true
	}
}

func TestNextID_Monotonic(t *testing.T) {
	prev := NextID()
	for i := 0; i < 1000; i++ {
		id := NextID()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNextID_Concurrent(t *testing.T) {
	const goroutines = 10
	const perGoroutine = 1000

	var mu sync.Mutex
	ids := make(map[int64]bool, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, NextID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				assert.False(t, ids[id], "并发生成出现重复ID")
				ids[id] = true
			}
		}()
	}
	wg.Wait()
}

func TestBusinessNos(t *testing.T) {
	txnNo := GenerateTransactionNo()
	assert.True(t, strings.HasPrefix(txnNo, "TXN"))
	assert.Len(t, txnNo, 3+14+8)

	offerNo := GenerateOfferNo()
	assert.True(t, strings.HasPrefix(offerNo, "OFR"))

	exchangeNo := GenerateExchangeNo()
	assert.True(t, strings.HasPrefix(exchangeNo, "EXC"))

	assert.NotEqual(t, GenerateTransactionNo(), GenerateTransactionNo())
}
