package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"MilestoneMarket/internal/model"
)

// MarketStore 市场集合的持久化端口：整集合快照，最后一次写入生效
type MarketStore interface {
	// Load 读取整个集合，key 不存在时返回空切片
	Load(ctx context.Context) ([]*model.Market, error)
	// Save 用 markets 覆盖整个集合
	Save(ctx context.Context, markets []*model.Market) error
}

// encodeSnapshot 集合 -> JSON 数组（KV 类存储共用）
func encodeSnapshot(markets []*model.Market) ([]byte, error) {
	if markets == nil {
		markets = []*model.Market{}
	}
	data, err := json.Marshal(markets)
	if err != nil {
		return nil, fmt.Errorf("序列化市场集合失败: %w", err)
	}
	return data, nil
}

// decodeSnapshot JSON 数组 -> 集合；空值视为空集合
func decodeSnapshot(data []byte) ([]*model.Market, error) {
	if len(data) == 0 {
		return []*model.Market{}, nil
	}
	var markets []*model.Market
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("解析市场集合失败: %w", err)
	}
	for _, m := range markets {
		if m.Bets == nil {
			m.Bets = []model.UserBet{}
		}
	}
	if markets == nil {
		markets = []*model.Market{}
	}
	return markets, nil
}
