package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"gorm.io/datatypes"
)

// MarketRecord markets 表结构（gorm 存储使用，字段与 Market 一一对应）
type MarketRecord struct {
	ID              string         `gorm:"column:id;type:varchar(128);primaryKey;comment:市场ID"`
	Position        int            `gorm:"column:position;type:int;not null;default:0;comment:集合内顺序"`
	Question        string         `gorm:"column:question;type:text;not null;comment:预测问题"`
	TokenAddress    string         `gorm:"column:token_address;type:varchar(64);index;not null;comment:ERC20合约地址"`
	TokenName       string         `gorm:"column:token_name;type:varchar(128);comment:代币名称"`
	TokenSymbol     string         `gorm:"column:token_symbol;type:varchar(64);comment:代币符号"`
	TokenDecimals   int            `gorm:"column:token_decimals;type:int;default:0;comment:代币精度"`
	ContractCreator string         `gorm:"column:contract_creator;type:varchar(64);comment:代币合约创建者"`
	TotalSupply     string         `gorm:"column:total_supply;type:numeric(78,0);comment:最近观测供应量"`
	Threshold       string         `gorm:"column:threshold;type:numeric(78,0);not null;comment:目标供应量"`
	Deadline        int64          `gorm:"column:deadline;type:bigint;not null;comment:截止时间(毫秒)"`
	YesPool         float64        `gorm:"column:yes_pool;type:numeric(18,6);default:0;comment:YES池"`
	NoPool          float64        `gorm:"column:no_pool;type:numeric(18,6);default:0;comment:NO池"`
	Bets            datatypes.JSON `gorm:"column:bets;type:jsonb;comment:链下下注记录"`
	Resolved        bool           `gorm:"column:resolved;type:boolean;default:false;comment:是否已结算"`
	Reached         bool           `gorm:"column:reached;type:boolean;default:false;comment:是否达到目标"`
	CreatedAtMs     int64          `gorm:"column:created_at_ms;type:bigint;not null;comment:创建时间(毫秒)"`
	ResolvedAtMs    *int64         `gorm:"column:resolved_at_ms;type:bigint;comment:结算时间(毫秒)"`
	MarketContract  string         `gorm:"column:market_contract;type:varchar(64);comment:链上市场合约"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime;comment:更新时间"`
}

func (MarketRecord) TableName() string { return "markets" }

// NewMarketRecord Market -> 表记录
func NewMarketRecord(m *Market, position int) (*MarketRecord, error) {
	bets := m.Bets
	if bets == nil {
		bets = []UserBet{}
	}
	raw, err := json.Marshal(bets)
	if err != nil {
		return nil, fmt.Errorf("序列化 bets 失败: %w", err)
	}
	threshold := "0"
	if m.Threshold != nil {
		threshold = m.Threshold.String()
	}
	supply := m.TotalSupply
	if supply == "" {
		supply = "0"
	}
	return &MarketRecord{
		ID:              m.ID,
		Position:        position,
		Question:        m.Question,
		TokenAddress:    m.TokenAddress,
		TokenName:       m.TokenName,
		TokenSymbol:     m.TokenSymbol,
		TokenDecimals:   m.TokenDecimals,
		ContractCreator: m.ContractCreator,
		TotalSupply:     supply,
		Threshold:       threshold,
		Deadline:        m.Deadline,
		YesPool:         m.YesPool,
		NoPool:          m.NoPool,
		Bets:            datatypes.JSON(raw),
		Resolved:        m.Resolved,
		Reached:         m.Reached,
		CreatedAtMs:     m.CreatedAt,
		ResolvedAtMs:    m.ResolvedAt,
		MarketContract:  m.MarketContract,
	}, nil
}

// ToMarket 表记录 -> Market
func (r *MarketRecord) ToMarket() (*Market, error) {
	threshold, ok := new(big.Int).SetString(r.Threshold, 10)
	if !ok {
		return nil, fmt.Errorf("market %s threshold 非法: %q", r.ID, r.Threshold)
	}
	bets := []UserBet{}
	if len(r.Bets) > 0 {
		if err := json.Unmarshal(r.Bets, &bets); err != nil {
			return nil, fmt.Errorf("market %s 解析 bets 失败: %w", r.ID, err)
		}
	}
	return &Market{
		ID:              r.ID,
		Question:        r.Question,
		TokenAddress:    r.TokenAddress,
		TokenName:       r.TokenName,
		TokenSymbol:     r.TokenSymbol,
		TokenDecimals:   r.TokenDecimals,
		ContractCreator: r.ContractCreator,
		TotalSupply:     r.TotalSupply,
		Threshold:       threshold,
		Deadline:        r.Deadline,
		YesPool:         r.YesPool,
		NoPool:          r.NoPool,
		Bets:            bets,
		Resolved:        r.Resolved,
		Reached:         r.Reached,
		CreatedAt:       r.CreatedAtMs,
		ResolvedAt:      r.ResolvedAtMs,
		MarketContract:  r.MarketContract,
	}, nil
}
