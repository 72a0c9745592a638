package service

import (
	"fmt"
	"math/big"

	"MilestoneMarket/internal/model"

	"github.com/shopspring/decimal"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

var hundred = decimal.NewFromInt(100)

// MarketView 列表/详情展示用的派生字段
type MarketView struct {
	*model.Market
	Status           model.MarketStatus `json:"status"`
	Progress         float64            `json:"progress"`      // 0-100，两位小数
	TimeRemaining    string             `json:"timeRemaining"` // "1d 2h 3m 4s" 或 "Expired"
	SupplyDisplay    string             `json:"supplyDisplay"`
	ThresholdDisplay string             `json:"thresholdDisplay"`
}

// View 按引擎时钟计算派生字段
func (s *MarketService) View(m *model.Market) MarketView {
	now := s.nowMs()
	return MarketView{
		Market:           m,
		Status:           StatusAt(m.Resolved, m.Reached, m.Deadline, now),
		Progress:         Progress(m.TotalSupply, m.Threshold),
		TimeRemaining:    Countdown(m.Deadline, now),
		SupplyDisplay:    FormatUnits(m.TotalSupply, m.TokenDecimals),
		ThresholdDisplay: FormatUnits(thresholdString(m.Threshold), m.TokenDecimals),
	}
}

// Views 批量转换
func (s *MarketService) Views(markets []*model.Market) []MarketView {
	out := make([]MarketView, 0, len(markets))
	for _, m := range markets {
		out = append(out, s.View(m))
	}
	return out
}

func thresholdString(t *big.Int) string {
	if t == nil {
		return "0"
	}
	return t.String()
}

// Progress min(supply/threshold*100, 100)，保留两位小数。threshold 非正时视为已满。
func Progress(supply string, threshold *big.Int) float64 {
	if threshold == nil || threshold.Sign() <= 0 {
		return 100
	}
	sup, err := decimal.NewFromString(supply)
	if err != nil || sup.IsNegative() {
		return 0
	}
	pct := sup.Mul(hundred).Div(decimal.NewFromBigInt(threshold, 0))
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(2).InexactFloat64()
}

// Countdown 距 deadline 的剩余时间 "Xd Xh Xm Xs"，已过期返回 "Expired"
func Countdown(deadlineMs, nowMs int64) string {
	remaining := deadlineMs - nowMs
	if remaining <= 0 {
		return "Expired"
	}
	days := remaining / msPerDay
	hours := remaining % msPerDay / msPerHour
	minutes := remaining % msPerHour / msPerMinute
	seconds := remaining % msPerMinute / msPerSecond
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// FormatUnits base-unit 整数字符串按 decimals 转为可读数值；无法解析时原样返回
func FormatUnits(amount string, decimals int) string {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return amount
	}
	return decimal.NewFromBigInt(v, int32(-decimals)).String()
}
