package service

import (
	"context"
	"math/big"

	"MilestoneMarket/internal/model"

	"github.com/shopspring/decimal"
)

// 状态来源
const (
	SourceChain = "chain"
	SourceLocal = "local"
)

// 链上池子以 wei 计
const poolDecimals = 18

// StateReader 读取链上市场合约，由 *chain.MarketReader 实现
type StateReader interface {
	ReadState(ctx context.Context, contract string) (*model.OnChainState, error)
}

// Effective 合并本地缓存与链上读数后的有效状态
type Effective struct {
	Resolved bool               `json:"resolved"`
	Reached  bool               `json:"reached"`
	YesPool  float64            `json:"yesPool"`
	NoPool   float64            `json:"noPool"`
	Deadline int64              `json:"deadline"`
	Status   model.MarketStatus `json:"status"`
	Source   string             `json:"source"`
}

// Reconcile remote 非空（市场绑定了合约且读取成功）时以链上为准，否则使用本地字段。
// 两边不做按字段的 OR 合并。
func Reconcile(local *model.Market, remote *model.OnChainState, nowMs int64) Effective {
	if remote == nil {
		return Effective{
			Resolved: local.Resolved,
			Reached:  local.Resolved && local.Reached,
			YesPool:  local.YesPool,
			NoPool:   local.NoPool,
			Deadline: local.Deadline,
			Status:   StatusAt(local.Resolved, local.Reached, local.Deadline, nowMs),
			Source:   SourceLocal,
		}
	}
	deadline := remote.Deadline
	if deadline == 0 {
		deadline = local.Deadline
	}
	return Effective{
		Resolved: remote.Resolved,
		Reached:  remote.Resolved && remote.Reached,
		YesPool:  weiToFloat(remote.TotalYes),
		NoPool:   weiToFloat(remote.TotalNo),
		Deadline: deadline,
		Status:   StatusAt(remote.Resolved, remote.Reached, deadline, nowMs),
		Source:   SourceChain,
	}
}

func weiToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -poolDecimals).InexactFloat64()
}

// MarketDetail 市场详情：本地记录 + 派生视图 + 有效状态
type MarketDetail struct {
	MarketView
	Effective Effective `json:"effective"`
	ChainErr  string    `json:"chainError,omitempty"`
}

// GetMarketDetail 读取市场；绑定了合约且配置了 reader 时读取链上状态参与合并，读取失败回退本地
func (s *MarketService) GetMarketDetail(ctx context.Context, id string, reader StateReader) (*MarketDetail, error) {
	m, err := s.GetMarket(id)
	if err != nil {
		return nil, err
	}
	detail := &MarketDetail{MarketView: s.View(m)}

	var remote *model.OnChainState
	if reader != nil && m.MarketContract != "" {
		remote, err = reader.ReadState(ctx, m.MarketContract)
		if err != nil {
			s.logger.WithError(err).WithField("market_id", id).Warn("读取链上市场状态失败，使用本地状态")
			detail.ChainErr = err.Error()
			remote = nil
		}
	}
	detail.Effective = Reconcile(m, remote, s.nowMs())
	return detail, nil
}
