package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegisterRoutes 注册中间件与全部 API 路由
func RegisterRoutes(r *gin.Engine, market *MarketHandler, token *TokenHandler, explorer *ExplorerHandler, logger *logrus.Logger) {
	r.Use(RequestID(), AccessLog(logger))

	api := r.Group("/api")
	api.GET("/status", market.GetStatus)
	api.GET("/tokens/:address", token.GetToken)
	api.GET("/tokens/:address/validate", token.ValidateToken)
	api.GET("/tokens/:address/transfers", explorer.GetTokenTransfers)
	api.GET("/addresses/:address/transactions", explorer.GetAddressTransactions)
	api.GET("/blocks/:number", explorer.GetBlock)
	api.GET("/transactions/:hash/receipt", explorer.GetTransactionReceipt)

	markets := api.Group("/markets")
	markets.GET("", market.ListMarkets)
	markets.POST("", market.CreateMarket)
	markets.GET("/:id", market.GetMarketDetail)
	markets.POST("/:id/resolve", market.ResolveMarket)
	markets.POST("/:id/refresh", market.RefreshSupply)
	markets.POST("/:id/bets", market.PlaceBet)
	markets.POST("/:id/contract", market.AttachContract)
}
