package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"MilestoneMarket/internal/model"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// MilestoneMarket 合约只读部分的最小 ABI
const milestoneMarketABI = `[
	{"name":"resolved","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"bool"}]},
	{"name":"reached","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"bool"}]},
	{"name":"totalYes","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"totalNo","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"deadline","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]}
]`

// MarketReader 读取已部署的 MilestoneMarket 合约状态，和 Client 共用同一条 RPC 连接
type MarketReader struct {
	eth    *ethclient.Client
	parsed abi.ABI
}

// NewMarketReader 基于 Client 的连接创建合约读取器
func NewMarketReader(c *Client) (*MarketReader, error) {
	parsed, err := abi.JSON(strings.NewReader(milestoneMarketABI))
	if err != nil {
		return nil, err
	}
	return &MarketReader{eth: ethclient.NewClient(c.rpc), parsed: parsed}, nil
}

// ReadState 读取 resolved/reached/totalYes/totalNo/deadline。reached 只在 resolved 后读取。
func (r *MarketReader) ReadState(ctx context.Context, contract string) (*model.OnChainState, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("非法合约地址: %s", contract)
	}
	to := common.HexToAddress(contract)

	resolved, err := r.readBool(ctx, to, "resolved")
	if err != nil {
		return nil, err
	}
	state := &model.OnChainState{Resolved: resolved}
	if resolved {
		if state.Reached, err = r.readBool(ctx, to, "reached"); err != nil {
			return nil, err
		}
	}
	if state.TotalYes, err = r.readUint(ctx, to, "totalYes"); err != nil {
		return nil, err
	}
	if state.TotalNo, err = r.readUint(ctx, to, "totalNo"); err != nil {
		return nil, err
	}
	deadline, err := r.readUint(ctx, to, "deadline")
	if err != nil {
		return nil, err
	}
	// 合约里是秒
	ms := new(big.Int).Mul(deadline, big.NewInt(1000))
	if !ms.IsInt64() {
		return nil, fmt.Errorf("%w: deadline %s out of range", ErrABIDecode, deadline)
	}
	state.Deadline = ms.Int64()
	return state, nil
}

func (r *MarketReader) call(ctx context.Context, to common.Address, method string) ([]interface{}, error) {
	data, err := r.parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := r.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classify("eth_call "+method, err)
	}
	out, err := r.parsed.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", ErrABIDecode, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned nothing", ErrABIDecode, method)
	}
	return out, nil
}

func (r *MarketReader) readBool(ctx context.Context, to common.Address, method string) (bool, error) {
	out, err := r.call(ctx, to, method)
	if err != nil {
		return false, err
	}
	b, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T", ErrABIDecode, method, out[0])
	}
	return b, nil
}

func (r *MarketReader) readUint(ctx context.Context, to common.Address, method string) (*big.Int, error) {
	out, err := r.call(ctx, to, method)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrABIDecode, method, out[0])
	}
	return n, nil
}
