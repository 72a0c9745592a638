package chain

import (
	"context"
	"encoding/json"
	"fmt"
)

// 资产类别。Base 不支持 internal。
const (
	CategoryExternal = "external"
	CategoryERC20    = "erc20"
	CategoryERC721   = "erc721"
	CategoryERC1155  = "erc1155"
)

const maxTransferCount = "0x3e8"

// AssetTransfersParams alchemy_getAssetTransfers 请求参数
type AssetTransfersParams struct {
	FromBlock         string   `json:"fromBlock,omitempty"`
	ToBlock           string   `json:"toBlock,omitempty"`
	FromAddress       string   `json:"fromAddress,omitempty"`
	ToAddress         string   `json:"toAddress,omitempty"`
	ContractAddresses []string `json:"contractAddresses,omitempty"`
	Category          []string `json:"category"`
	Order             string   `json:"order,omitempty"`
	WithMetadata      bool     `json:"withMetadata"`
	ExcludeZeroValue  *bool    `json:"excludeZeroValue,omitempty"`
	MaxCount          string   `json:"maxCount,omitempty"`
}

// RawContract 转账涉及的合约信息
type RawContract struct {
	Value   string `json:"value"`
	Address string `json:"address"`
	Decimal string `json:"decimal"`
}

// TransferMetadata withMetadata=true 时返回的区块时间
type TransferMetadata struct {
	BlockTimestamp string `json:"blockTimestamp"`
}

// AssetTransfer 单条转账记录
type AssetTransfer struct {
	BlockNum    string            `json:"blockNum"`
	UniqueID    string            `json:"uniqueId"`
	Hash        string            `json:"hash"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	Value       *float64          `json:"value"`
	Asset       string            `json:"asset"`
	Category    string            `json:"category"`
	RawContract RawContract       `json:"rawContract"`
	Metadata    *TransferMetadata `json:"metadata,omitempty"`
}

// AssetTransfersResult alchemy_getAssetTransfers 返回值
type AssetTransfersResult struct {
	Transfers []AssetTransfer `json:"transfers"`
	PageKey   string          `json:"pageKey,omitempty"`
}

// ContractCreator 推断出的合约部署者
type ContractCreator struct {
	ContractAddress string `json:"contractAddress"`
	Creator         string `json:"creator"`
	TxHash          string `json:"txHash"`
}

// GetAssetTransfers 调用 Alchemy 增强接口
func (c *Client) GetAssetTransfers(ctx context.Context, params AssetTransfersParams) (*AssetTransfersResult, error) {
	var out AssetTransfersResult
	if err := c.callInto(ctx, &out, "alchemy_getAssetTransfers", params); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactionsByAddress 地址发出的转账（external/erc20/erc721/erc1155，最多 1000 条）
func (c *Client) GetTransactionsByAddress(ctx context.Context, address, fromBlock, toBlock string) ([]AssetTransfer, error) {
	excludeZero := false
	res, err := c.GetAssetTransfers(ctx, AssetTransfersParams{
		FromBlock:        orDefault(fromBlock, "0x0"),
		ToBlock:          orDefault(toBlock, "latest"),
		FromAddress:      address,
		Category:         []string{CategoryExternal, CategoryERC20, CategoryERC721, CategoryERC1155},
		WithMetadata:     true,
		ExcludeZeroValue: &excludeZero,
		MaxCount:         maxTransferCount,
	})
	if err != nil {
		return nil, err
	}
	return nonNil(res.Transfers), nil
}

// GetERC20Transfers 某个 ERC20 合约的转账记录（最多 1000 条）
func (c *Client) GetERC20Transfers(ctx context.Context, tokenAddress, fromBlock, toBlock string) ([]AssetTransfer, error) {
	res, err := c.GetAssetTransfers(ctx, AssetTransfersParams{
		FromBlock:         orDefault(fromBlock, "0x0"),
		ToBlock:           orDefault(toBlock, "latest"),
		ContractAddresses: []string{tokenAddress},
		Category:          []string{CategoryERC20},
		WithMetadata:      true,
		MaxCount:          maxTransferCount,
	})
	if err != nil {
		return nil, err
	}
	return nonNil(res.Transfers), nil
}

// GetContractCreator 用“最早一笔转入该合约的 external 交易”的发起方近似合约创建者。
// 找不到或底层调用失败返回 ErrCreatorNotFound，调用方应视为非致命。
func (c *Client) GetContractCreator(ctx context.Context, contractAddress string) (ContractCreator, error) {
	code, err := c.GetCode(ctx, contractAddress)
	if err != nil {
		return ContractCreator{}, fmt.Errorf("%w: %w", ErrCreatorNotFound, err)
	}
	if !hasCode(code) {
		return ContractCreator{}, fmt.Errorf("%w: %w", ErrCreatorNotFound, ErrNotAContract)
	}

	res, err := c.GetAssetTransfers(ctx, AssetTransfersParams{
		FromBlock:    "0x0",
		ToBlock:      "latest",
		ToAddress:    contractAddress,
		Category:     []string{CategoryExternal},
		Order:        "asc",
		WithMetadata: true,
		MaxCount:     "0x1",
	})
	if err != nil {
		return ContractCreator{}, fmt.Errorf("%w: %w", ErrCreatorNotFound, err)
	}
	if len(res.Transfers) == 0 || res.Transfers[0].From == "" {
		return ContractCreator{}, ErrCreatorNotFound
	}
	first := res.Transfers[0]
	return ContractCreator{
		ContractAddress: contractAddress,
		Creator:         first.From,
		TxHash:          first.Hash,
	}, nil
}

// FindContractDeployment 备用方案：取与该合约相关的最早一笔交易，以其回执的 from 作为部署者
func (c *Client) FindContractDeployment(ctx context.Context, contractAddress string) (ContractCreator, error) {
	res, err := c.GetAssetTransfers(ctx, AssetTransfersParams{
		FromBlock:         "0x0",
		ToBlock:           "latest",
		ContractAddresses: []string{contractAddress},
		Category:          []string{CategoryExternal, CategoryERC20},
		Order:             "asc",
		WithMetadata:      true,
		MaxCount:          "0x1",
	})
	if err != nil {
		return ContractCreator{}, fmt.Errorf("%w: %w", ErrCreatorNotFound, err)
	}
	if len(res.Transfers) == 0 {
		return ContractCreator{}, ErrCreatorNotFound
	}
	hash := res.Transfers[0].Hash

	raw, err := c.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return ContractCreator{}, fmt.Errorf("%w: %w", ErrCreatorNotFound, err)
	}
	var receipt struct {
		From string `json:"from"`
	}
	if err := json.Unmarshal(raw, &receipt); err != nil || receipt.From == "" {
		return ContractCreator{}, fmt.Errorf("%w: receipt %s has no sender", ErrCreatorNotFound, hash)
	}
	return ContractCreator{
		ContractAddress: contractAddress,
		Creator:         receipt.From,
		TxHash:          hash,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nonNil(t []AssetTransfer) []AssetTransfer {
	if t == nil {
		return []AssetTransfer{}
	}
	return t
}
