package repository

import (
	"context"
	"sync"

	"MilestoneMarket/internal/model"
)

// MemoryStore 进程内存储，测试或离线运行使用
type MemoryStore struct {
	mu      sync.RWMutex
	markets []*model.Market
	saves   int
}

// NewMemoryStore 创建 MemoryStore，可传入初始集合
func NewMemoryStore(initial ...*model.Market) *MemoryStore {
	return &MemoryStore{markets: model.CloneMarkets(initial)}
}

func (s *MemoryStore) Load(ctx context.Context) ([]*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneMarkets(s.markets), nil
}

func (s *MemoryStore) Save(ctx context.Context, markets []*model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets = model.CloneMarkets(markets)
	s.saves++
	return nil
}

// Saves Save 被调用的次数
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
