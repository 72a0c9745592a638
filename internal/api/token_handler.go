package api

import (
	"net/http"

	"MilestoneMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenHandler 代币信息查询
type TokenHandler struct {
	marketService *service.MarketService
	logger        *logrus.Logger
}

func NewTokenHandler(svc *service.MarketService, logger *logrus.Logger) *TokenHandler {
	return &TokenHandler{marketService: svc, logger: logger}
}

// GetToken 校验地址并返回 ERC20 快照
// @Summary 查询代币信息
// @Param address path string true "ERC20 合约地址"
// @Success 200 {object} model.TokenInfo
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/tokens/{address} [get]
func (h *TokenHandler) GetToken(c *gin.Context) {
	info, err := h.marketService.FetchTokenInfo(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, h.logger, "FetchTokenInfo", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// ValidateToken 宽松校验，元数据不可用时返回占位值
// @Summary 校验代币（宽松）
// @Param address path string true "ERC20 合约地址"
// @Success 200 {object} model.TokenInfo
// @Failure 400 {object} map[string]string
// @Router /api/tokens/{address}/validate [get]
func (h *TokenHandler) ValidateToken(c *gin.Context) {
	info, err := h.marketService.ValidateToken(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, h.logger, "ValidateToken", err)
		return
	}
	c.JSON(http.StatusOK, info)
}
