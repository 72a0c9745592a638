package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TokenMetadata ERC20 元数据
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Client 单个 JSON-RPC 节点（Alchemy Base）的读客户端。
// 所有方法都不重试，重试/退避由调用方负责。
type Client struct {
	rpc    *rpc.Client
	logger *logrus.Logger
}

// callArgs eth_call 的调用参数
type callArgs struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// NewClient 使用给定 http.Client 连接 endpoint（HTTP 不会在此时发起请求）
func NewClient(endpoint string, httpClient *http.Client, logger *logrus.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint 不能为空")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c, err := rpc.DialHTTPWithClient(endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{rpc: c, logger: logger}, nil
}

// Close 释放底层连接
func (c *Client) Close() {
	c.rpc.Close()
}

// Call 发送一次 JSON-RPC 2.0 请求并返回原始 result。
// 节点返回 error 信封时返回 *RPCError（errors.Is(err, ErrRPC)），网络/HTTP 失败返回 ErrTransport。
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.callInto(ctx, &result, method, params...); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) callInto(ctx context.Context, out any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	err := c.rpc.CallContext(ctx, out, method, params...)
	if err == nil {
		return nil
	}
	err = classify(method, err)
	c.logger.WithError(err).WithField("method", method).Warn("RPC Error")
	return err
}

// classify 区分节点 error 信封与传输层错误
func classify(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RPCError{Method: method, Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
}

func (c *Client) ethCall(ctx context.Context, to, data string) (string, error) {
	var out string
	if err := c.callInto(ctx, &out, "eth_call", callArgs{To: to, Data: data}, "latest"); err != nil {
		return "", err
	}
	return out, nil
}

// GetCode eth_getCode(address, "latest")
func (c *Client) GetCode(ctx context.Context, address string) (string, error) {
	var code string
	if err := c.callInto(ctx, &code, "eth_getCode", address, "latest"); err != nil {
		return "", err
	}
	return code, nil
}

// IsContract 地址上存在非空代码时返回 true；任何失败都视为 false
func (c *Client) IsContract(ctx context.Context, address string) bool {
	code, err := c.GetCode(ctx, address)
	if err != nil {
		return false
	}
	return hasCode(code)
}

func hasCode(code string) bool {
	return code != "" && code != "0x" && code != "0x0"
}

// GetTokenMetadata 读取 name/symbol/decimals。三次读取互不依赖，并发执行。
func (c *Client) GetTokenMetadata(ctx context.Context, address string) (TokenMetadata, error) {
	var (
		md                      TokenMetadata
		nameHex, symbolHex, dec string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nameHex, err = c.ethCall(gctx, address, NameSelector)
		return wrapMetadata("name()", err)
	})
	g.Go(func() error {
		var err error
		symbolHex, err = c.ethCall(gctx, address, SymbolSelector)
		return wrapMetadata("symbol()", err)
	})
	g.Go(func() error {
		var err error
		dec, err = c.ethCall(gctx, address, DecimalsSelector)
		return wrapMetadata("decimals()", err)
	})
	if err := g.Wait(); err != nil {
		c.logger.WithError(err).WithField("token", address).Error("Error fetching token metadata")
		return TokenMetadata{}, err
	}

	var err error
	if md.Name, err = DecodeString(nameHex); err != nil {
		return TokenMetadata{}, wrapMetadata("name()", err)
	}
	if md.Symbol, err = DecodeString(symbolHex); err != nil {
		return TokenMetadata{}, wrapMetadata("symbol()", err)
	}
	decimals, err := DecodeUint(dec)
	if err != nil {
		return TokenMetadata{}, wrapMetadata("decimals()", err)
	}
	if !decimals.IsInt64() || decimals.Int64() > 255 {
		return TokenMetadata{}, wrapMetadata("decimals()", fmt.Errorf("%w: decimals %s out of range", ErrABIDecode, decimals))
	}
	md.Decimals = int(decimals.Int64())
	return md, nil
}

func wrapMetadata(fn string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrMetadata, fn, err)
}

// GetTotalSupply totalSupply() 的十进制字符串（任意精度，不经过浮点）
func (c *Client) GetTotalSupply(ctx context.Context, address string) (string, error) {
	supply, err := c.TotalSupply(ctx, address)
	if err != nil {
		return "", err
	}
	return supply.String(), nil
}

// TotalSupply totalSupply() 的 big.Int 形式
func (c *Client) TotalSupply(ctx context.Context, address string) (*big.Int, error) {
	out, err := c.ethCall(ctx, address, TotalSupplySelector)
	if err != nil {
		c.logger.WithError(err).WithField("token", address).Error("Error fetching total supply")
		return nil, err
	}
	return DecodeUint(out)
}

// EnhancedTokenMetadata alchemy_getTokenMetadata 返回值，节点不知道的字段为空（decimals 为 nil）
type EnhancedTokenMetadata struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals *int    `json:"decimals"`
	Logo     *string `json:"logo"`
}

// GetTokenMetadataEnhanced Alchemy 增强接口读取元数据，非标准 ERC20 也能返回
func (c *Client) GetTokenMetadataEnhanced(ctx context.Context, address string) (EnhancedTokenMetadata, error) {
	var out *EnhancedTokenMetadata
	if err := c.callInto(ctx, &out, "alchemy_getTokenMetadata", address); err != nil {
		return EnhancedTokenMetadata{}, err
	}
	if out == nil {
		return EnhancedTokenMetadata{}, fmt.Errorf("%w: alchemy_getTokenMetadata returned null", ErrMetadata)
	}
	return *out, nil
}

// GetBlock eth_getBlockByNumber(number, true)
func (c *Client) GetBlock(ctx context.Context, blockNumber string) (json.RawMessage, error) {
	return c.Call(ctx, "eth_getBlockByNumber", blockNumber, true)
}

// GetTransactionReceipt eth_getTransactionReceipt(hash)
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error) {
	return c.Call(ctx, "eth_getTransactionReceipt", txHash)
}
