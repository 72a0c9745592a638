package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"MilestoneMarket/internal/chain"
	"MilestoneMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ChainExplorer 链上数据透传查询，由 *chain.Client 实现
type ChainExplorer interface {
	GetTransactionsByAddress(ctx context.Context, address, fromBlock, toBlock string) ([]chain.AssetTransfer, error)
	GetERC20Transfers(ctx context.Context, tokenAddress, fromBlock, toBlock string) ([]chain.AssetTransfer, error)
	GetBlock(ctx context.Context, blockNumber string) (json.RawMessage, error)
	GetTransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error)
}

var (
	errBadBlock = errors.New("block must be a hex number or one of latest, earliest, pending, safe, finalized")
	errBadHash  = errors.New("transaction hash must be 0x followed by 64 hex characters")

	blockPattern = regexp.MustCompile(`^(0x[0-9a-fA-F]+|latest|earliest|pending|safe|finalized)$`)
	hashPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// ExplorerHandler 转账、区块、回执查询
type ExplorerHandler struct {
	chain  ChainExplorer
	logger *logrus.Logger
}

func NewExplorerHandler(explorer ChainExplorer, logger *logrus.Logger) *ExplorerHandler {
	return &ExplorerHandler{chain: explorer, logger: logger}
}

// blockRange 读取 fromBlock/toBlock 查询参数，空值交给客户端使用默认区间
func blockRange(c *gin.Context) (string, string, error) {
	from, to := c.Query("fromBlock"), c.Query("toBlock")
	for _, b := range []string{from, to} {
		if b != "" && !blockPattern.MatchString(b) {
			return "", "", errBadBlock
		}
	}
	return from, to, nil
}

// GetTokenTransfers 代币转账记录
// GET /api/tokens/:address/transfers?fromBlock=&toBlock=
func (h *ExplorerHandler) GetTokenTransfers(c *gin.Context) {
	address := c.Param("address")
	if !service.ValidAddress(address) {
		respondError(c, h.logger, "GetERC20Transfers", service.ErrInvalidAddressFormat)
		return
	}
	from, to, err := blockRange(c)
	if err != nil {
		respondError(c, h.logger, "GetERC20Transfers", err)
		return
	}
	transfers, err := h.chain.GetERC20Transfers(c.Request.Context(), address, from, to)
	if err != nil {
		respondError(c, h.logger, "GetERC20Transfers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(transfers), "items": transfers})
}

// GetAddressTransactions 地址发出的转账
// GET /api/addresses/:address/transactions?fromBlock=&toBlock=
func (h *ExplorerHandler) GetAddressTransactions(c *gin.Context) {
	address := c.Param("address")
	if !service.ValidAddress(address) {
		respondError(c, h.logger, "GetTransactionsByAddress", service.ErrInvalidAddressFormat)
		return
	}
	from, to, err := blockRange(c)
	if err != nil {
		respondError(c, h.logger, "GetTransactionsByAddress", err)
		return
	}
	transfers, err := h.chain.GetTransactionsByAddress(c.Request.Context(), address, from, to)
	if err != nil {
		respondError(c, h.logger, "GetTransactionsByAddress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(transfers), "items": transfers})
}

// GetBlock 区块（含完整交易）
// GET /api/blocks/:number
func (h *ExplorerHandler) GetBlock(c *gin.Context) {
	number := c.Param("number")
	if !blockPattern.MatchString(number) {
		respondError(c, h.logger, "GetBlock", errBadBlock)
		return
	}
	raw, err := h.chain.GetBlock(c.Request.Context(), number)
	if err != nil {
		respondError(c, h.logger, "GetBlock", err)
		return
	}
	respondRaw(c, raw)
}

// GetTransactionReceipt 交易回执
// GET /api/transactions/:hash/receipt
func (h *ExplorerHandler) GetTransactionReceipt(c *gin.Context) {
	hash := c.Param("hash")
	if !hashPattern.MatchString(hash) {
		respondError(c, h.logger, "GetTransactionReceipt", errBadHash)
		return
	}
	raw, err := h.chain.GetTransactionReceipt(c.Request.Context(), hash)
	if err != nil {
		respondError(c, h.logger, "GetTransactionReceipt", err)
		return
	}
	respondRaw(c, raw)
}

// respondRaw 节点返回 null（未知区块/未打包交易）时为 404
func respondRaw(c *gin.Context, raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
