package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"MilestoneMarket/internal/chain"
	"MilestoneMarket/internal/model"
	"MilestoneMarket/internal/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TokenReader 引擎依赖的链上读取能力，由 *chain.Client 实现
type TokenReader interface {
	IsContract(ctx context.Context, address string) bool
	GetTokenMetadata(ctx context.Context, address string) (chain.TokenMetadata, error)
	TotalSupply(ctx context.Context, address string) (*big.Int, error)
	GetContractCreator(ctx context.Context, contractAddress string) (chain.ContractCreator, error)
	FindContractDeployment(ctx context.Context, contractAddress string) (chain.ContractCreator, error)
	GetTokenMetadataEnhanced(ctx context.Context, address string) (chain.EnhancedTokenMetadata, error)
}

// Filter 市场列表筛选
type Filter string

const (
	FilterAll      Filter = "all"
	FilterActive   Filter = "active"
	FilterResolved Filter = "resolved"
)

// CreateMarketRequest 创建市场参数
type CreateMarketRequest struct {
	TokenAddress string   `json:"tokenAddress"`
	Question     string   `json:"question"`
	Threshold    *big.Int `json:"threshold"`
	Deadline     int64    `json:"deadline"` // 毫秒
}

// BetRequest 链下下注参数
type BetRequest struct {
	Address string        `json:"address"`
	Side    model.BetSide `json:"side"`
	Amount  float64       `json:"amount"`
}

// MarketService 市场状态引擎：持有市场集合，推导状态，校验创建约束，结合链上读数完成结算。
// 所有读改写在 mu 下进行，每次变更后整集合写入 store。
type MarketService struct {
	tokens TokenReader
	store  repository.MarketStore
	logger *logrus.Logger
	now    func() time.Time

	mu        sync.Mutex
	markets   []*model.Market
	lastError string
}

// Option MarketService 可选项
type Option func(*MarketService)

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *MarketService) {
		s.now = now
	}
}

// NewMarketService 创建 MarketService，集合为空，需调用 Load 从 store 恢复
func NewMarketService(tokens TokenReader, store repository.MarketStore, logger *logrus.Logger, opts ...Option) *MarketService {
	s := &MarketService{
		tokens:  tokens,
		store:   store,
		logger:  logger,
		now:     time.Now,
		markets: []*model.Market{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load 从 store 恢复市场集合
func (s *MarketService) Load(ctx context.Context) error {
	markets, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("加载市场集合失败: %w", err)
	}
	s.mu.Lock()
	s.markets = markets
	s.mu.Unlock()
	s.logger.WithField("count", len(markets)).Info("市场集合已加载")
	return nil
}

func (s *MarketService) nowMs() int64 {
	return s.now().UnixMilli()
}

// Markets 当前集合的快照
func (s *MarketService) Markets() []*model.Market {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMarkets(s.markets)
}

// LastError 最近一次失败操作的错误信息，成功的操作会清空它
func (s *MarketService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *MarketService) setLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastError = ""
		return
	}
	s.lastError = err.Error()
}

// fail 记录 lastError 后原样返回 err
func (s *MarketService) fail(err error) error {
	s.setLastError(err)
	return err
}

// GetMarket 按 id 查找
func (s *MarketService) GetMarket(id string) (*model.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, m := s.findLocked(id)
	if m == nil {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

func (s *MarketService) findLocked(id string) (int, *model.Market) {
	for i, m := range s.markets {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}

// ListMarkets 按筛选条件返回市场：active = 未结算且未过期，resolved = 已结算
func (s *MarketService) ListMarkets(filter Filter) ([]*model.Market, error) {
	switch filter {
	case "":
		filter = FilterAll
	case FilterAll, FilterActive, FilterResolved:
	default:
		return nil, ErrInvalidFilter
	}
	now := s.nowMs()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		switch filter {
		case FilterAll:
		case FilterActive:
			if m.Resolved || now >= m.Deadline {
				continue
			}
		case FilterResolved:
			if !m.Resolved {
				continue
			}
		}
		out = append(out, m.Clone())
	}
	return out, nil
}

// commitLocked 写入 next 成功后才替换内存集合，写入失败时内存保持不变
func (s *MarketService) commitLocked(ctx context.Context, next []*model.Market) error {
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("保存市场集合失败: %w", err)
	}
	s.markets = next
	return nil
}

// replaceLocked 复制集合并把第 idx 个替换为 m
func (s *MarketService) replaceLocked(idx int, m *model.Market) []*model.Market {
	next := make([]*model.Market, len(s.markets))
	copy(next, s.markets)
	next[idx] = m
	return next
}

// CreateMarket 校验 deadline、拉取代币信息、校验 threshold 后追加新市场
func (s *MarketService) CreateMarket(ctx context.Context, req CreateMarketRequest) (*model.Market, error) {
	s.setLastError(nil)

	if strings.TrimSpace(req.Question) == "" {
		return nil, s.fail(ErrEmptyQuestion)
	}
	if req.Deadline <= s.nowMs() {
		return nil, s.fail(ErrInvalidDeadline)
	}
	if req.Threshold == nil || req.Threshold.Sign() < 0 {
		return nil, s.fail(ErrInvalidThreshold)
	}

	info, err := s.FetchTokenInfo(ctx, req.TokenAddress)
	if err != nil {
		return nil, s.fail(&TokenFetchError{Err: err})
	}
	supply, ok := new(big.Int).SetString(info.TotalSupply, 10)
	if !ok {
		return nil, s.fail(&TokenFetchError{Err: fmt.Errorf("total supply %q 不是整数", info.TotalSupply)})
	}
	if req.Threshold.Cmp(supply) <= 0 {
		return nil, s.fail(ErrInvalidThreshold)
	}

	now := s.nowMs()
	m := &model.Market{
		ID:              fmt.Sprintf("%s-%d", req.TokenAddress, now),
		Question:        req.Question,
		TokenAddress:    req.TokenAddress,
		TokenName:       info.Name,
		TokenSymbol:     info.Symbol,
		TokenDecimals:   info.Decimals,
		ContractCreator: info.Creator,
		TotalSupply:     info.TotalSupply,
		Threshold:       new(big.Int).Set(req.Threshold),
		Deadline:        req.Deadline,
		Bets:            []model.UserBet{},
		CreatedAt:       now,
	}

	s.mu.Lock()
	m.ID = s.uniqueIDLocked(m.ID)
	next := make([]*model.Market, 0, len(s.markets)+1)
	next = append(next, s.markets...)
	next = append(next, m)
	err = s.commitLocked(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail(err)
	}

	s.logger.WithFields(logrus.Fields{
		"market_id": m.ID,
		"token":     m.TokenAddress,
		"threshold": m.Threshold.String(),
		"supply":    m.TotalSupply,
	}).Info("市场已创建")
	return m.Clone(), nil
}

// uniqueIDLocked 同一毫秒内同一代币重复创建时追加序号
func (s *MarketService) uniqueIDLocked(id string) string {
	candidate := id
	for n := 1; ; n++ {
		if _, m := s.findLocked(candidate); m == nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
}

// ResolveMarket deadline 过后重新读取供应量，reached = supply >= threshold，只修改 resolved/reached/resolvedAt。
// 读取供应量失败时不做任何修改。
func (s *MarketService) ResolveMarket(ctx context.Context, id string) error {
	s.setLastError(nil)

	s.mu.Lock()
	_, m := s.findLocked(id)
	var guard error
	switch {
	case m == nil:
		guard = ErrNotFound
	case m.Resolved:
		guard = ErrAlreadyResolved
	case s.nowMs() < m.Deadline:
		guard = ErrDeadlineNotPassed
	}
	var token string
	var threshold *big.Int
	if guard == nil {
		token, threshold = m.TokenAddress, new(big.Int)
		if m.Threshold != nil {
			threshold.Set(m.Threshold)
		}
	}
	s.mu.Unlock()
	if guard != nil {
		return s.fail(guard)
	}

	supply, err := s.tokens.TotalSupply(ctx, token)
	if err != nil {
		s.logger.WithError(err).WithField("market_id", id).Error("结算时读取供应量失败")
		return s.fail(err)
	}
	reached := supply.Cmp(threshold) >= 0
	now := s.nowMs()

	s.mu.Lock()
	defer s.mu.Unlock()
	// 读链期间可能已被其他请求结算
	idx, cur := s.findLocked(id)
	if cur == nil {
		s.lastError = ErrNotFound.Error()
		return ErrNotFound
	}
	if cur.Resolved {
		s.lastError = ErrAlreadyResolved.Error()
		return ErrAlreadyResolved
	}
	updated := cur.Clone()
	updated.Resolved = true
	updated.Reached = reached
	updated.ResolvedAt = &now
	if err := s.commitLocked(ctx, s.replaceLocked(idx, updated)); err != nil {
		s.lastError = err.Error()
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"market_id": id,
		"supply":    supply.String(),
		"threshold": threshold.String(),
		"reached":   reached,
	}).Info("市场已结算")
	return nil
}

// UpdateMarketSupply 尽力刷新 totalSupply；读取或保存失败只记日志，不影响其他字段。未知 id 直接返回。
func (s *MarketService) UpdateMarketSupply(ctx context.Context, id string) {
	s.mu.Lock()
	_, m := s.findLocked(id)
	var token string
	if m != nil {
		token = m.TokenAddress
	}
	s.mu.Unlock()
	if m == nil {
		return
	}

	supply, err := s.tokens.TotalSupply(ctx, token)
	if err != nil {
		s.logger.WithError(err).WithField("market_id", id).Warn("Failed to update supply")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, cur := s.findLocked(id)
	if cur == nil || cur.TotalSupply == supply.String() {
		return
	}
	updated := cur.Clone()
	updated.TotalSupply = supply.String()
	if err := s.commitLocked(ctx, s.replaceLocked(idx, updated)); err != nil {
		s.logger.WithError(err).WithField("market_id", id).Warn("Failed to persist supply")
	}
}

// GetStatus 按当前时钟推导状态，不修改市场
func (s *MarketService) GetStatus(m *model.Market) model.MarketStatus {
	return StatusAt(m.Resolved, m.Reached, m.Deadline, s.nowMs())
}

// StatusAt 状态推导：已结算看 reached，未结算看是否过了 deadline
func StatusAt(resolved, reached bool, deadline, nowMs int64) model.MarketStatus {
	if resolved {
		if reached {
			return model.MarketStatusReached
		}
		return model.MarketStatusFailed
	}
	if nowMs >= deadline {
		return model.MarketStatusExpired
	}
	return model.MarketStatusPending
}

// CheckBondingCurveReached supply >= threshold；读取失败返回 false
func (s *MarketService) CheckBondingCurveReached(ctx context.Context, token string, threshold *big.Int) bool {
	supply, err := s.tokens.TotalSupply(ctx, token)
	if err != nil {
		s.logger.WithError(err).WithField("token", token).Error("Error checking bonding curve")
		return false
	}
	return supply.Cmp(threshold) >= 0
}

// PlaceBet 记录一笔链下下注并累加对应池子，仅 PENDING 市场接受
func (s *MarketService) PlaceBet(ctx context.Context, id string, req BetRequest) (*model.Market, error) {
	if !common.IsHexAddress(req.Address) || !addressPattern.MatchString(req.Address) {
		return nil, ErrInvalidAddressFormat
	}
	if !req.Side.Valid() {
		return nil, ErrInvalidBetSide
	}
	amount := decimal.NewFromFloat(req.Amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidBetAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, cur := s.findLocked(id)
	if cur == nil {
		return nil, ErrNotFound
	}
	if StatusAt(cur.Resolved, cur.Reached, cur.Deadline, s.nowMs()) != model.MarketStatusPending {
		return nil, ErrMarketClosed
	}

	updated := cur.Clone()
	updated.Bets = append(updated.Bets, model.UserBet{
		Address:   req.Address,
		Side:      req.Side,
		Amount:    req.Amount,
		Timestamp: s.nowMs(),
	})
	if req.Side == model.BetYes {
		updated.YesPool = decimal.NewFromFloat(cur.YesPool).Add(amount).InexactFloat64()
	} else {
		updated.NoPool = decimal.NewFromFloat(cur.NoPool).Add(amount).InexactFloat64()
	}
	if err := s.commitLocked(ctx, s.replaceLocked(idx, updated)); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// AttachContract 绑定链上市场合约，只能绑定一次
func (s *MarketService) AttachContract(ctx context.Context, id, contract string) (*model.Market, error) {
	if !addressPattern.MatchString(contract) {
		return nil, ErrInvalidAddressFormat
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, cur := s.findLocked(id)
	if cur == nil {
		return nil, ErrNotFound
	}
	if cur.MarketContract != "" {
		if strings.EqualFold(cur.MarketContract, contract) {
			return cur.Clone(), nil
		}
		return nil, ErrContractAlreadyAttached
	}
	updated := cur.Clone()
	updated.MarketContract = contract
	if err := s.commitLocked(ctx, s.replaceLocked(idx, updated)); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"market_id": id, "contract": contract}).Info("已绑定链上市场合约")
	return updated.Clone(), nil
}

// IsValidationError 参数类错误（对应 HTTP 400）
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidAddressFormat, ErrInvalidDeadline, ErrInvalidThreshold, ErrEmptyQuestion,
		ErrInvalidFilter, ErrInvalidBetSide, ErrInvalidBetAmount, chain.ErrNotAContract,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
