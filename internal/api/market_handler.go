package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"MilestoneMarket/internal/model"
	"MilestoneMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MarketHandler 预测市场接口
type MarketHandler struct {
	marketService *service.MarketService
	reader        service.StateReader
	logger        *logrus.Logger
}

// NewMarketHandler 创建 MarketHandler。reader 为 nil 时详情只返回本地状态
func NewMarketHandler(svc *service.MarketService, reader service.StateReader, logger *logrus.Logger) *MarketHandler {
	return &MarketHandler{
		marketService: svc,
		reader:        reader,
		logger:        logger,
	}
}

// createMarketBody threshold 可以是 JSON 数字或十进制字符串
type createMarketBody struct {
	TokenAddress string          `json:"tokenAddress" binding:"required"`
	Question     string          `json:"question"`
	Threshold    json.RawMessage `json:"threshold" binding:"required"`
	Deadline     int64           `json:"deadline"`
}

type attachContractBody struct {
	Contract string `json:"contract" binding:"required"`
}

// ListMarkets 市场列表
// GET /api/markets?filter=all|active|resolved
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	filter := service.Filter(c.DefaultQuery("filter", string(service.FilterAll)))
	markets, err := h.marketService.ListMarkets(filter)
	if err != nil {
		respondError(c, h.logger, "ListMarkets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filter": filter,
		"total":  len(markets),
		"items":  h.marketService.Views(markets),
	})
}

// CreateMarket 创建市场
// @Summary 创建预测市场
// @Param body body createMarketBody true "tokenAddress/question/threshold(base units)/deadline(ms)"
// @Success 201 {object} service.MarketView
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/markets [post]
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var body createMarketBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	threshold, err := parseBigInt(body.Threshold)
	if err != nil {
		respondError(c, h.logger, "CreateMarket", err)
		return
	}

	m, err := h.marketService.CreateMarket(c.Request.Context(), service.CreateMarketRequest{
		TokenAddress: body.TokenAddress,
		Question:     body.Question,
		Threshold:    threshold,
		Deadline:     body.Deadline,
	})
	if err != nil {
		respondError(c, h.logger, "CreateMarket", err)
		return
	}
	c.JSON(http.StatusCreated, h.marketService.View(m))
}

// GetMarketDetail 市场详情（含链上合并后的有效状态）
// GET /api/markets/:id
func (h *MarketHandler) GetMarketDetail(c *gin.Context) {
	detail, err := h.marketService.GetMarketDetail(c.Request.Context(), c.Param("id"), h.reader)
	if err != nil {
		respondError(c, h.logger, "GetMarketDetail", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ResolveMarket 结算
// POST /api/markets/:id/resolve
func (h *MarketHandler) ResolveMarket(c *gin.Context) {
	id := c.Param("id")
	if err := h.marketService.ResolveMarket(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "ResolveMarket", err)
		return
	}
	h.respondMarket(c, id, http.StatusOK)
}

// RefreshSupply 尽力刷新供应量，刷新失败仍返回当前记录
// POST /api/markets/:id/refresh
func (h *MarketHandler) RefreshSupply(c *gin.Context) {
	id := c.Param("id")
	h.marketService.UpdateMarketSupply(c.Request.Context(), id)
	h.respondMarket(c, id, http.StatusOK)
}

// PlaceBet 链下下注
// POST /api/markets/:id/bets
func (h *MarketHandler) PlaceBet(c *gin.Context) {
	var body service.BetRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body.Side = model.BetSide(strings.ToUpper(string(body.Side)))
	m, err := h.marketService.PlaceBet(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		respondError(c, h.logger, "PlaceBet", err)
		return
	}
	c.JSON(http.StatusOK, h.marketService.View(m))
}

// AttachContract 绑定链上市场合约
// POST /api/markets/:id/contract
func (h *MarketHandler) AttachContract(c *gin.Context) {
	var body attachContractBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.marketService.AttachContract(c.Request.Context(), c.Param("id"), body.Contract)
	if err != nil {
		respondError(c, h.logger, "AttachContract", err)
		return
	}
	c.JSON(http.StatusOK, h.marketService.View(m))
}

// GetStatus 引擎状态：市场数量与最近一次错误
// GET /api/status
func (h *MarketHandler) GetStatus(c *gin.Context) {
	markets := h.marketService.Markets()
	counts := make(map[string]int)
	for _, m := range markets {
		counts[string(h.marketService.GetStatus(m))]++
	}
	c.JSON(http.StatusOK, gin.H{
		"markets":   len(markets),
		"byStatus":  counts,
		"lastError": h.marketService.LastError(),
	})
}

func (h *MarketHandler) respondMarket(c *gin.Context, id string, code int) {
	m, err := h.marketService.GetMarket(id)
	if err != nil {
		respondError(c, h.logger, "GetMarket", err)
		return
	}
	c.JSON(code, h.marketService.View(m))
}

var errBadThreshold = errors.New("threshold must be a base-10 integer")

// parseBigInt 解析 JSON 数字或字符串形式的大整数
func parseBigInt(raw json.RawMessage) (*big.Int, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errBadThreshold
	}
	return v, nil
}
