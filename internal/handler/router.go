package handler

import (
	"reciclo/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 账户相关
		account := api.Group("/account")
		{
			account.GET("/balance", h.GetBalance)
			account.GET("/dashboard", h.GetDashboard)
		}

		// 回收相关
		api.POST("/recycle/bottles", h.Recycle)

		// 模型上传
		api.POST("/models3d/upload", h.UploadModel)

		// 成就相关
		api.GET("/achievements", h.ListAchievements)
		api.POST("/achievements/evaluate", h.EvaluateAchievements)

		// 挂单相关
		offers := api.Group("/coin-offers")
		{
			offers.POST("", h.CreateOffer)
			offers.GET("", h.ListOffers)
			offers.POST("/:id/cancel", h.CancelOffer)
			offers.POST("/:id/purchase", h.PurchaseOffer)
		}
		api.GET("/my-offers", h.ListMyOffers)

		// 流水查询
		api.GET("/transactions", h.ListTransactions)

		// 交换相关
		exchanges := api.Group("/exchange-requests")
		{
			exchanges.POST("", h.CreateExchange)
			exchanges.GET("", h.ListExchanges)
			exchanges.POST("/:id/respond", h.RespondToExchange)
			exchanges.POST("/:id/cancel", h.CancelExchange)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
