package model

import "math/big"

// MarketStatus 市场派生状态（不持久化，由当前时间 + resolved/reached 推导）
type MarketStatus string

const (
	MarketStatusPending MarketStatus = "PENDING"
	MarketStatusReached MarketStatus = "REACHED"
	MarketStatusFailed  MarketStatus = "FAILED"
	MarketStatusExpired MarketStatus = "EXPIRED"
)

// Terminal REACHED / FAILED 为终态
func (s MarketStatus) Terminal() bool {
	return s == MarketStatusReached || s == MarketStatusFailed
}

// BetSide 下注方向
type BetSide string

const (
	BetYes BetSide = "YES"
	BetNo  BetSide = "NO"
)

// Valid 只接受 YES / NO
func (s BetSide) Valid() bool {
	return s == BetYes || s == BetNo
}

// UserBet 链下记录的单笔下注
type UserBet struct {
	Address   string  `json:"address"`
	Side      BetSide `json:"side"`
	Amount    float64 `json:"amount"`    // USDC 金额
	Timestamp int64   `json:"timestamp"` // 毫秒
}

// Market 预测市场："token 总供应量能否在 deadline 前达到 threshold"
// JSON 结构即持久化结构（固定 key 下的 JSON 数组元素）
type Market struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	TokenAddress    string    `json:"tokenAddress"`
	TokenName       string    `json:"tokenName"`
	TokenSymbol     string    `json:"tokenSymbol"`
	TokenDecimals   int       `json:"tokenDecimals"`
	ContractCreator string    `json:"contractCreator"`
	TotalSupply     string    `json:"totalSupply"` // 最近一次观测到的 base-unit 供应量
	Threshold       *big.Int  `json:"threshold"`   // base-unit，创建时必须大于当时供应量
	Deadline        int64     `json:"deadline"`    // 毫秒时间戳，创建后不可变
	YesPool         float64   `json:"yesPool"`
	NoPool          float64   `json:"noPool"`
	Bets            []UserBet `json:"bets"`
	Resolved        bool      `json:"resolved"`
	Reached         bool      `json:"reached"` // 仅 resolved=true 时有意义
	CreatedAt       int64     `json:"createdAt"`
	ResolvedAt      *int64    `json:"resolvedAt,omitempty"`
	MarketContract  string    `json:"marketContract,omitempty"` // 链上市场合约地址
}

// Clone 深拷贝，store 与调用方之间不共享可变字段
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	c := *m
	if m.Threshold != nil {
		c.Threshold = new(big.Int).Set(m.Threshold)
	}
	if m.ResolvedAt != nil {
		at := *m.ResolvedAt
		c.ResolvedAt = &at
	}
	c.Bets = make([]UserBet, len(m.Bets))
	copy(c.Bets, m.Bets)
	return &c
}

// CloneMarkets 拷贝整个集合
func CloneMarkets(markets []*Market) []*Market {
	out := make([]*Market, 0, len(markets))
	for _, m := range markets {
		out = append(out, m.Clone())
	}
	return out
}

// OnChainState 链上市场合约读取结果
type OnChainState struct {
	Resolved bool
	Reached  bool
	TotalYes *big.Int
	TotalNo  *big.Int
	Deadline int64 // 毫秒（合约内为秒）
}
