package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"reciclo/internal/config"
	"reciclo/internal/infrastructure/lock"
	"reciclo/internal/model"
	"reciclo/internal/repository"
	"reciclo/pkg/idgen"
	"reciclo/pkg/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSelfExchange             = errors.New("不能和自己交换")
	ErrInvalidExchange          = errors.New("交换必须同时给出和索要至少一种币")
	ErrNotReceiver              = errors.New("只有接收方可以响应交换请求")
	ErrNotRequester             = errors.New("只有发起方可以取消交换请求")
	ErrReceiverBalanceNotEnough = errors.New("接收方余额不足，交换已自动拒绝")
)

// ExchangeService 市场引擎：直接交换
//
// 【托管协议】创建请求时立即扣除发起方给出的币；接收方的币不托管。
// 因此接受时必须重新检查接收方余额 —— 这是协议里唯一残留的竞态，
// 检查不通过时自动拒绝并退还发起方托管，而不是让交换带着透支完成。
type ExchangeService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	exchangeRepo    *repository.ExchangeRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewExchangeService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ExchangeService {
	return &ExchangeService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		exchangeRepo:    repository.NewExchangeRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CreateExchangeRequest struct {
	RequesterID            int64
	ReceiverID             int64
	OfferRecyclingCoins    int64
	OfferReputationCoins   int64
	RequestRecyclingCoins  int64
	RequestReputationCoins int64
	Message                string
}

// CreateExchange 创建交换请求（托管扣款与请求创建同一事务）
func (s *ExchangeService) CreateExchange(ctx context.Context, req *CreateExchangeRequest) (*model.ExchangeRequest, error) {
	if req.ReceiverID == req.RequesterID {
		return nil, ErrSelfExchange
	}

	offered := model.CoinPair{Recycling: req.OfferRecyclingCoins, Reputation: req.OfferReputationCoins}
	requested := model.CoinPair{Recycling: req.RequestRecyclingCoins, Reputation: req.RequestReputationCoins}
	if !model.ValidateExchange(offered, requested) {
		return nil, ErrInvalidExchange
	}

	if _, err := s.accountRepo.GetOrCreate(ctx, req.RequesterID); err != nil {
		return nil, fmt.Errorf("获取账户信息失败: %w", err)
	}
	// 提前建好接收方账户，响应时不再需要建行
	if _, err := s.accountRepo.GetOrCreate(ctx, req.ReceiverID); err != nil {
		return nil, fmt.Errorf("获取接收方账户失败: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.Business.ExchangeExpiryDays) * 24 * time.Hour)

	request := &model.ExchangeRequest{
		ExchangeNo:             idgen.GenerateExchangeNo(),
		RequesterID:            req.RequesterID,
		ReceiverID:             req.ReceiverID,
		OfferRecyclingCoins:    req.OfferRecyclingCoins,
		OfferReputationCoins:   req.OfferReputationCoins,
		RequestRecyclingCoins:  req.RequestRecyclingCoins,
		RequestReputationCoins: req.RequestReputationCoins,
		Message:                req.Message,
		Status:                 model.ExchangeStatusPending,
		ExpiresAt:              expiresAt,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		requester, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, req.RequesterID)
		if err != nil {
			return err
		}

		if !model.CanAfford(requester, offered) {
			return repository.ErrBalanceNotEnough
		}

		// 托管：立即扣除发起方给出的币
		if err := s.accountRepo.DeductPair(ctx, tx, req.RequesterID, offered); err != nil {
			return err
		}

		if err := s.exchangeRepo.Create(ctx, tx, request); err != nil {
			return fmt.Errorf("创建交换请求失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("交换请求创建成功: exchangeNo=%s, requesterID=%d, receiverID=%d",
		request.ExchangeNo, req.RequesterID, req.ReceiverID)

	return request, nil
}

// RespondToExchange 接收方响应交换请求
//
// accept=false：退还发起方托管，状态置为 REJECTED。
// accept=true：在事务内重查接收方余额；不足则自动拒绝（退托管 + REJECTED
// 正常提交），向调用方返回 ErrReceiverBalanceNotEnough；足够则双向转账，
// 每个非零的币种×方向写一条流水（最多四条）。
func (s *ExchangeService) RespondToExchange(ctx context.Context, exchangeID, callerID int64, accept bool) (*model.ExchangeRequest, error) {
	request, err := s.exchangeRepo.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, err
	}

	if request.ReceiverID != callerID {
		return nil, ErrNotReceiver
	}
	if request.Status != model.ExchangeStatusPending {
		return nil, repository.ErrExchangeStatusInvalid
	}

	exchangeLock := lock.NewExchangeLock(s.redisClient, exchangeID, uuid.NewString())
	if err := exchangeLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer exchangeLock.Unlock(ctx)

	if !accept {
		if err := s.reject(ctx, request); err != nil {
			return nil, err
		}
		request.Status = model.ExchangeStatusRejected
		return request, nil
	}

	offered := request.Offered()
	requested := request.Requested()

	autoRejected := false

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 先锁交换行再锁账户行：与取消/超时路径保持同一加锁顺序，
		// 否则并发的接受与取消会以相反顺序持锁互等（死锁）
		locked, err := s.exchangeRepo.GetByIDForUpdate(ctx, tx, exchangeID)
		if err != nil {
			return err
		}
		if locked.Status != model.ExchangeStatusPending {
			return repository.ErrExchangeStatusInvalid
		}

		_, receiverAcc, err := s.accountRepo.GetPairForUpdate(ctx, tx, request.RequesterID, request.ReceiverID)
		if err != nil {
			return err
		}

		// 接受时重查：接收方的币没有托管，创建后余额可能已经变了
		if !model.CanAfford(receiverAcc, requested) {
			if err := s.exchangeRepo.UpdateStatus(ctx, tx, exchangeID, model.ExchangeStatusPending, model.ExchangeStatusRejected); err != nil {
				return err
			}
			if err := s.accountRepo.AddPair(ctx, tx, request.RequesterID, offered); err != nil {
				return err
			}
			// 自动拒绝需要正常提交，错误在事务外返回给调用方
			autoRejected = true
			return nil
		}

		if err := s.exchangeRepo.UpdateStatus(ctx, tx, exchangeID, model.ExchangeStatusPending, model.ExchangeStatusAccepted); err != nil {
			return err
		}

		// 接收方的币转给发起方
		if err := s.accountRepo.DeductPair(ctx, tx, request.ReceiverID, requested); err != nil {
			return err
		}
		if err := s.accountRepo.AddPair(ctx, tx, request.RequesterID, requested); err != nil {
			return err
		}

		// 发起方托管的币转给接收方
		if err := s.accountRepo.AddPair(ctx, tx, request.ReceiverID, offered); err != nil {
			return err
		}

		legs := model.BuildExchangeLegs(request, idgen.GenerateTransactionNo)
		for _, leg := range legs {
			if err := s.transactionRepo.Create(ctx, tx, leg); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"exchange_no":  request.ExchangeNo,
			"requester_id": request.RequesterID,
			"receiver_id":  request.ReceiverID,
			"legs":         len(legs),
			"type":         model.TransactionTypeExchange,
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: request.ExchangeNo,
			Topic:      s.cfg.Kafka.Topic.CoinTransaction,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if autoRejected {
		log.Printf("交换自动拒绝（接收方余额不足）: exchangeNo=%s", request.ExchangeNo)
		return nil, ErrReceiverBalanceNotEnough
	}

	metrics.CoinTransactions.WithLabelValues(model.TransactionTypeExchange).Inc()
	log.Printf("交换完成: exchangeNo=%s, requesterID=%d, receiverID=%d",
		request.ExchangeNo, request.RequesterID, request.ReceiverID)

	request.Status = model.ExchangeStatusAccepted
	return request, nil
}

// CancelExchange 发起方取消交换请求，退还托管的币
func (s *ExchangeService) CancelExchange(ctx context.Context, exchangeID, callerID int64) error {
	request, err := s.exchangeRepo.GetByID(ctx, exchangeID)
	if err != nil {
		return err
	}

	if request.RequesterID != callerID {
		return ErrNotRequester
	}
	if request.Status != model.ExchangeStatusPending {
		return repository.ErrExchangeStatusInvalid
	}

	// 取消也是结算操作，和响应路径共用同一把交换粒度锁
	exchangeLock := lock.NewExchangeLock(s.redisClient, exchangeID, uuid.NewString())
	if err := exchangeLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer exchangeLock.Unlock(ctx)

	err = s.terminate(ctx, request, model.ExchangeStatusCancelled)
	if err != nil {
		return err
	}

	log.Printf("交换请求已取消: exchangeNo=%s, requesterID=%d", request.ExchangeNo, request.RequesterID)
	return nil
}

// CancelExpired 取消过期的 PENDING 请求并退还托管（后台任务调用）
func (s *ExchangeService) CancelExpired(ctx context.Context, limit int) (int, error) {
	requests, err := s.exchangeRepo.GetExpiredPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, request := range requests {
		// 拿不到交换锁说明有人正在响应，留给下一轮
		exchangeLock := lock.NewExchangeLock(s.redisClient, request.ID, uuid.NewString())
		acquired, err := exchangeLock.TryLock(ctx)
		if err != nil || !acquired {
			continue
		}

		err = s.terminate(ctx, request, model.ExchangeStatusCancelled)
		exchangeLock.Unlock(ctx)
		if err != nil {
			// 并发响应先到是正常情况，跳过即可
			if errors.Is(err, repository.ErrExchangeStatusInvalid) {
				continue
			}
			log.Printf("[ExchangeService] 取消过期交换失败: exchangeNo=%s, err=%v", request.ExchangeNo, err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// ListByUser 用户相关的交换请求
func (s *ExchangeService) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.ExchangeRequest, int64, error) {
	return s.exchangeRepo.ListByUser(ctx, userID, page, pageSize)
}

func (s *ExchangeService) reject(ctx context.Context, request *model.ExchangeRequest) error {
	return s.terminate(ctx, request, model.ExchangeStatusRejected)
}

// terminate 把 PENDING 请求转到非成功终态并退还发起方托管，单个事务
func (s *ExchangeService) terminate(ctx context.Context, request *model.ExchangeRequest, toStatus string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.exchangeRepo.UpdateStatus(ctx, tx, request.ID, model.ExchangeStatusPending, toStatus); err != nil {
			return err
		}

		if _, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, request.RequesterID); err != nil {
			return err
		}
		return s.accountRepo.AddPair(ctx, tx, request.RequesterID, request.Offered())
	})
}
