package handler

import (
	"errors"
	"strconv"

	"reciclo/internal/config"
	"reciclo/internal/repository"
	"reciclo/internal/service"
	"reciclo/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService     *service.AccountService
	recyclingService   *service.RecyclingService
	progressionService *service.ProgressionService
	achievementService *service.AchievementService
	contentService     *service.ContentService
	marketService      *service.MarketService
	exchangeService    *service.ExchangeService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	progression := service.NewProgressionService(db)
	achievement := service.NewAchievementService(db, cfg)

	return &Handler{
		accountService:     service.NewAccountService(db, achievement),
		recyclingService:   service.NewRecyclingService(db, rdb, cfg, progression, achievement),
		progressionService: progression,
		achievementService: achievement,
		contentService:     service.NewContentService(db, cfg, progression, achievement),
		marketService:      service.NewMarketService(db, rdb, cfg),
		exchangeService:    service.NewExchangeService(db, rdb, cfg),
	}
}

// businessError 把服务层哨兵错误映射到业务错误码
func businessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrBalanceNotEnough),
		errors.Is(err, service.ErrReceiverBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, repository.ErrOfferStatusInvalid),
		errors.Is(err, repository.ErrExchangeStatusInvalid):
		response.BusinessError(c, response.CodeStatusInvalid, err.Error())
	case errors.Is(err, repository.ErrOfferNotFound),
		errors.Is(err, repository.ErrExchangeNotFound),
		errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeEntityNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotReceiver),
		errors.Is(err, service.ErrNotRequester),
		errors.Is(err, service.ErrNotEligibleBuyer):
		response.BusinessError(c, response.CodePermissionDenied, err.Error())
	case errors.Is(err, service.ErrInvalidModelName):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrSelfExchange),
		errors.Is(err, service.ErrInvalidExchange),
		errors.Is(err, service.ErrInvalidOffer),
		errors.Is(err, service.ErrInvalidQuantity):
		response.BusinessError(c, response.CodeInvalidTrade, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		response.ParamError(c, "user_id 参数错误")
		return 0, false
	}
	return userID, true
}

func parsePaging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// ============================================================
// 账户相关接口
// ============================================================

// GetBalance 查询用户余额与成长进度
// GET /api/v1/account/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":          account.UserID,
		"recycling_coins":  account.RecyclingCoins,
		"reputation_coins": account.ReputationCoins,
		"level":            account.Level,
		"experience":       account.Experience,
	})
}

// GetDashboard 用户面板
// GET /api/v1/account/dashboard?user_id=xxx
func (h *Handler) GetDashboard(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.accountService.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, dashboard)
}

// ============================================================
// 回收与内容接口
// ============================================================

// RecycleRequest 回收提交请求
type RecycleRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	BottleType string `json:"bottle_type" binding:"required"`
	Volume     string `json:"volume" binding:"required"` // 容量标签，如 "500ml"、"2l"
	Quantity   int64  `json:"quantity" binding:"required,gt=0"`
}

// Recycle 提交回收
// POST /api/v1/recycle/bottles
func (h *Handler) Recycle(c *gin.Context) {
	var req RecycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.recyclingService.RecordRecycling(c.Request.Context(), &service.RecycleRequest{
		UserID:     req.UserID,
		BottleType: req.BottleType,
		Volume:     req.Volume,
		Quantity:   req.Quantity,
	})
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, result)
}

// ModelUploadRequest 模型上传登记请求
type ModelUploadRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UploadModel 登记模型上传（文件本体由外部存储服务处理）
// POST /api/v1/models3d/upload
func (h *Handler) UploadModel(c *gin.Context) {
	var req ModelUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.contentService.RecordModelUpload(c.Request.Context(), req.UserID, req.Name, req.Description)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 成就接口
// ============================================================

// ListAchievements 成就列表及解锁状态
// GET /api/v1/achievements?user_id=xxx
func (h *Handler) ListAchievements(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	statuses, err := h.achievementService.ListWithStatus(c.Request.Context(), userID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{"list": statuses})
}

// EvaluateAchievements 主动触发一次成就评估
// POST /api/v1/achievements/evaluate
func (h *Handler) EvaluateAchievements(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	newlyUnlocked, err := h.achievementService.Evaluate(c.Request.Context(), req.UserID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{"newly_unlocked": newlyUnlocked})
}

// ============================================================
// 市场：挂单接口
// ============================================================

// CreateOfferRequest 创建挂单请求
type CreateOfferRequest struct {
	SellerID     int64   `json:"seller_id" binding:"required"`
	CoinType     string  `json:"coin_type" binding:"required"`
	Amount       int64   `json:"amount" binding:"required,gt=0"`
	PricePerCoin float64 `json:"price_per_coin"`
	OfferType    string  `json:"offer_type" binding:"required,oneof=sale gift"`
	TargetUserID *int64  `json:"target_user_id"`
}

// CreateOffer 创建挂单
// POST /api/v1/coin-offers
func (h *Handler) CreateOffer(c *gin.Context) {
	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	offer, err := h.marketService.CreateOffer(c.Request.Context(), &service.CreateOfferRequest{
		SellerID:     req.SellerID,
		CoinType:     req.CoinType,
		Amount:       req.Amount,
		PricePerCoin: req.PricePerCoin,
		OfferType:    req.OfferType,
		TargetUserID: req.TargetUserID,
	})
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, offer)
}

// ListOffers 可见的挂单中列表
// GET /api/v1/coin-offers?user_id=xxx&page=1&page_size=10
func (h *Handler) ListOffers(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	page, pageSize := parsePaging(c)

	offers, total, err := h.marketService.ListVisibleOffers(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      offers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListMyOffers 我发布的挂单
// GET /api/v1/my-offers?user_id=xxx
func (h *Handler) ListMyOffers(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	page, pageSize := parsePaging(c)

	offers, total, err := h.marketService.ListMyOffers(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      offers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CancelOffer 取消挂单
// POST /api/v1/coin-offers/:id/cancel
func (h *Handler) CancelOffer(c *gin.Context) {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "挂单ID错误")
		return
	}

	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.marketService.CancelOffer(c.Request.Context(), offerID, req.UserID); err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "挂单已取消"})
}

// PurchaseOffer 购买挂单
// POST /api/v1/coin-offers/:id/purchase
func (h *Handler) PurchaseOffer(c *gin.Context) {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "挂单ID错误")
		return
	}

	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.marketService.PurchaseOffer(c.Request.Context(), offerID, req.UserID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, trans)
}

// ListTransactions 收支流水
// GET /api/v1/transactions?user_id=xxx
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	page, pageSize := parsePaging(c)

	transactions, total, err := h.marketService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 市场：交换接口
// ============================================================

// CreateExchangeRequest 创建交换请求
type CreateExchangeRequest struct {
	RequesterID            int64  `json:"requester_id" binding:"required"`
	ReceiverID             int64  `json:"receiver_id" binding:"required"`
	OfferRecyclingCoins    int64  `json:"offer_recycling_coins" binding:"gte=0"`
	OfferReputationCoins   int64  `json:"offer_reputation_coins" binding:"gte=0"`
	RequestRecyclingCoins  int64  `json:"request_recycling_coins" binding:"gte=0"`
	RequestReputationCoins int64  `json:"request_reputation_coins" binding:"gte=0"`
	Message                string `json:"message"`
}

// CreateExchange 创建交换请求
// POST /api/v1/exchange-requests
func (h *Handler) CreateExchange(c *gin.Context) {
	var req CreateExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	request, err := h.exchangeService.CreateExchange(c.Request.Context(), &service.CreateExchangeRequest{
		RequesterID:            req.RequesterID,
		ReceiverID:             req.ReceiverID,
		OfferRecyclingCoins:    req.OfferRecyclingCoins,
		OfferReputationCoins:   req.OfferReputationCoins,
		RequestRecyclingCoins:  req.RequestRecyclingCoins,
		RequestReputationCoins: req.RequestReputationCoins,
		Message:                req.Message,
	})
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, request)
}

// ListExchanges 我相关的交换请求
// GET /api/v1/exchange-requests?user_id=xxx
func (h *Handler) ListExchanges(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	page, pageSize := parsePaging(c)

	requests, total, err := h.exchangeService.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      requests,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// RespondToExchange 响应交换请求
// POST /api/v1/exchange-requests/:id/respond
func (h *Handler) RespondToExchange(c *gin.Context) {
	exchangeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "交换请求ID错误")
		return
	}

	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	request, err := h.exchangeService.RespondToExchange(c.Request.Context(), exchangeID, req.UserID, *req.Accept)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, request)
}

// CancelExchange 取消交换请求
// POST /api/v1/exchange-requests/:id/cancel
func (h *Handler) CancelExchange(c *gin.Context) {
	exchangeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "交换请求ID错误")
		return
	}

	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.exchangeService.CancelExchange(c.Request.Context(), exchangeID, req.UserID); err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "交换请求已取消"})
}
