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
	ErrInvalidOffer     = errors.New("挂单参数不合法")
	ErrNotOwner         = errors.New("只有卖家本人可以取消挂单")
	ErrNotEligibleBuyer = errors.New("无权购买该挂单")
)

// MarketService 市场引擎：挂单的创建、取消与购买
//
// 【托管协议】创建挂单时立即从卖家余额扣除标的币（托管）；
// 取消时退还，成交时转给买家。余额因此永不为负，
// 结算时也不需要再查卖家余额。
//
// 所有余额变动都在单个数据库事务内完成，涉及两个账户时
// 按 user_id 升序加行锁（见 AccountRepository.GetPairForUpdate）。
type MarketService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	offerRepo       *repository.OfferRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewMarketService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *MarketService {
	return &MarketService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		offerRepo:       repository.NewOfferRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CreateOfferRequest struct {
	SellerID     int64
	CoinType     string
	Amount       int64
	PricePerCoin float64
	OfferType    string
	TargetUserID *int64
}

// CreateOffer 创建挂单（托管扣款与挂单创建同一事务）
func (s *MarketService) CreateOffer(ctx context.Context, req *CreateOfferRequest) (*model.CoinOffer, error) {
	price, ok := model.ValidateOffer(req.CoinType, req.Amount, req.PricePerCoin, req.OfferType)
	if !ok {
		return nil, ErrInvalidOffer
	}
	if req.TargetUserID != nil && *req.TargetUserID == req.SellerID {
		return nil, ErrInvalidOffer
	}

	if _, err := s.accountRepo.GetOrCreate(ctx, req.SellerID); err != nil {
		return nil, fmt.Errorf("获取账户信息失败: %w", err)
	}

	offer := &model.CoinOffer{
		OfferNo:      idgen.GenerateOfferNo(),
		SellerID:     req.SellerID,
		TargetUserID: req.TargetUserID,
		CoinType:     req.CoinType,
		Amount:       req.Amount,
		PricePerCoin: price,
		OfferType:    req.OfferType,
		Status:       model.OfferStatusActive,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, req.SellerID); err != nil {
			return err
		}

		// 托管：立即扣除卖家余额，挂单取消前这些币不可再花
		if err := s.accountRepo.DeductCoins(ctx, tx, req.SellerID, req.CoinType, req.Amount); err != nil {
			return err
		}

		if err := s.offerRepo.Create(ctx, tx, offer); err != nil {
			return fmt.Errorf("创建挂单失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("挂单创建成功: offerNo=%s, sellerID=%d, coinType=%s, amount=%d",
		offer.OfferNo, req.SellerID, req.CoinType, req.Amount)

	return offer, nil
}

// CancelOffer 卖家取消挂单，退还托管的币
func (s *MarketService) CancelOffer(ctx context.Context, offerID, callerID int64) error {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return err
	}

	if offer.SellerID != callerID {
		return ErrNotOwner
	}
	if offer.Status != model.OfferStatusActive {
		return repository.ErrOfferStatusInvalid
	}

	offerLock := lock.NewOfferLock(s.redisClient, offerID, uuid.NewString())
	if err := offerLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer offerLock.Unlock(ctx)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// CAS：并发的购买先到则这里 0 行受影响，整个取消回滚
		if err := s.offerRepo.UpdateStatus(ctx, tx, offerID, model.OfferStatusActive, model.OfferStatusCancelled); err != nil {
			return err
		}

		if _, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, offer.SellerID); err != nil {
			return err
		}
		return s.accountRepo.AddCoins(ctx, tx, offer.SellerID, offer.CoinType, offer.Amount)
	})
	if err != nil {
		return err
	}

	log.Printf("挂单已取消: offerNo=%s, sellerID=%d, refund=%d", offer.OfferNo, offer.SellerID, offer.Amount)
	return nil
}

// PurchaseOffer 购买挂单
//
// 整个购买是一个事务：挂单置为 COMPLETED、买家付款、卖家收款、
// 托管的币转给买家、写流水，要么全部生效，要么挂单保持 ACTIVE 且余额不变。
func (s *MarketService) PurchaseOffer(ctx context.Context, offerID, buyerID int64) (*model.CoinTransaction, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.Status != model.OfferStatusActive {
		return nil, repository.ErrOfferStatusInvalid
	}
	if !offer.CanBePurchasedBy(buyerID) {
		return nil, ErrNotEligibleBuyer
	}

	if _, err := s.accountRepo.GetOrCreate(ctx, buyerID); err != nil {
		return nil, fmt.Errorf("获取账户信息失败: %w", err)
	}

	offerLock := lock.NewOfferLock(s.redisClient, offerID, uuid.NewString())
	if err := offerLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer offerLock.Unlock(ctx)

	totalPrice := offer.TotalPrice()

	transactionType := model.TransactionTypePurchase
	if offer.OfferType == model.OfferTypeGift {
		transactionType = model.TransactionTypeGift
	}

	sellerID := offer.SellerID
	trans := &model.CoinTransaction{
		TransactionNo:   idgen.GenerateTransactionNo(),
		SenderID:        &sellerID,
		ReceiverID:      buyerID,
		OfferNo:         offer.OfferNo,
		CoinType:        offer.CoinType,
		Amount:          offer.Amount,
		TransactionType: transactionType,
		PricePaid:       totalPrice,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// CAS：先把挂单从 ACTIVE 改走，并发的购买/取消在这里分出胜负
		if err := s.offerRepo.UpdateStatus(ctx, tx, offerID, model.OfferStatusActive, model.OfferStatusCompleted); err != nil {
			return err
		}

		buyer, _, err := s.accountRepo.GetPairForUpdate(ctx, tx, buyerID, offer.SellerID)
		if err != nil {
			return err
		}

		if offer.OfferType == model.OfferTypeSale {
			if buyer.ReputationCoins < totalPrice {
				return repository.ErrBalanceNotEnough
			}
			if err := s.accountRepo.DeductCoins(ctx, tx, buyerID, model.CoinTypeReputation, totalPrice); err != nil {
				return err
			}
			if err := s.accountRepo.AddCoins(ctx, tx, offer.SellerID, model.CoinTypeReputation, totalPrice); err != nil {
				return err
			}
		}

		// 创建挂单时托管的币转给买家，不再从卖家余额扣减
		if err := s.accountRepo.AddCoins(ctx, tx, buyerID, offer.CoinType, offer.Amount); err != nil {
			return err
		}

		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"transaction_no": trans.TransactionNo,
			"offer_no":       offer.OfferNo,
			"seller_id":      offer.SellerID,
			"buyer_id":       buyerID,
			"coin_type":      offer.CoinType,
			"amount":         offer.Amount,
			"price_paid":     totalPrice,
			"type":           transactionType,
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: trans.TransactionNo,
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

	metrics.CoinTransactions.WithLabelValues(transactionType).Inc()
	log.Printf("购买成功: offerNo=%s, buyerID=%d, amount=%d, pricePaid=%d",
		offer.OfferNo, buyerID, offer.Amount, totalPrice)

	return trans, nil
}

// ListVisibleOffers 对某用户可见的挂单中列表
func (s *MarketService) ListVisibleOffers(ctx context.Context, viewerID int64, page, pageSize int) ([]*model.CoinOffer, int64, error) {
	return s.offerRepo.ListVisible(ctx, viewerID, page, pageSize)
}

// ListMyOffers 某用户自己发布的挂单
func (s *MarketService) ListMyOffers(ctx context.Context, sellerID int64, page, pageSize int) ([]*model.CoinOffer, int64, error) {
	return s.offerRepo.ListBySeller(ctx, sellerID, page, pageSize)
}

// ListTransactions 用户收支流水
func (s *MarketService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.CoinTransaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}
