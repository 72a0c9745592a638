package service

import (
	"context"
	"sync"
	"time"

	"MilestoneMarket/internal/model"

	"github.com/sirupsen/logrus"
)

// SupplyPoller 为每个 PENDING 市场定时刷新供应量。市场离开 PENDING 或 poller 停止时对应循环退出。
type SupplyPoller struct {
	svc      *MarketService
	interval time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// NewSupplyPoller 创建 poller
func NewSupplyPoller(svc *MarketService, interval time.Duration, logger *logrus.Logger) *SupplyPoller {
	return &SupplyPoller{
		svc:      svc,
		interval: interval,
		logger:   logger,
		running:  make(map[string]struct{}),
	}
}

// Run 阻塞直到 ctx 取消：每个周期为新出现的 PENDING 市场启动刷新循环，退出前等待所有循环结束
func (p *SupplyPoller) Run(ctx context.Context) {
	p.Sync(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return
		case <-ticker.C:
			p.Sync(ctx)
		}
	}
}

// Sync 为尚未在刷新的 PENDING 市场启动循环
func (p *SupplyPoller) Sync(ctx context.Context) {
	for _, m := range p.svc.Markets() {
		if p.svc.GetStatus(m) != model.MarketStatusPending {
			continue
		}
		p.mu.Lock()
		if _, ok := p.running[m.ID]; ok {
			p.mu.Unlock()
			continue
		}
		p.running[m.ID] = struct{}{}
		p.mu.Unlock()

		p.wg.Add(1)
		go p.loop(ctx, m.ID)
	}
}

// Active 正在刷新的市场数
func (p *SupplyPoller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

func (p *SupplyPoller) loop(ctx context.Context, id string) {
	defer func() {
		p.mu.Lock()
		delete(p.running, id)
		p.mu.Unlock()
		p.wg.Done()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m, err := p.svc.GetMarket(id)
			if err != nil || p.svc.GetStatus(m) != model.MarketStatusPending {
				p.logger.WithField("market_id", id).Debug("市场已离开 PENDING，停止刷新供应量")
				return
			}
			p.svc.UpdateMarketSupply(ctx, id)
		}
	}
}
