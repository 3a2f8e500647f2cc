package job

import (
	"context"
	"log"
	"time"

	"reciclo/internal/service"
)

// ExchangeTimeoutJob 周期性取消过期的交换请求并退还托管
type ExchangeTimeoutJob struct {
	exchangeService *service.ExchangeService
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewExchangeTimeoutJob(exchangeService *service.ExchangeService) *ExchangeTimeoutJob {
	return &ExchangeTimeoutJob{
		exchangeService: exchangeService,
		stopCh:          make(chan struct{}),
		interval:        time.Minute,
		batchSize:       100,
	}
}

func (j *ExchangeTimeoutJob) Start(ctx context.Context) {
	log.Println("[ExchangeTimeoutJob] 交换超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ExchangeTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ExchangeTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			j.cancelExpiredExchanges(ctx)
		}
	}
}

func (j *ExchangeTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *ExchangeTimeoutJob) cancelExpiredExchanges(ctx context.Context) {
	cancelled, err := j.exchangeService.CancelExpired(ctx, j.batchSize)
	if err != nil {
		log.Printf("[ExchangeTimeoutJob] 查询过期交换失败: %v", err)
		return
	}

	if cancelled > 0 {
		log.Printf("[ExchangeTimeoutJob] 本次取消 %d 个过期交换请求", cancelled)
	}
}
