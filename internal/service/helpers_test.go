package service

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"MilestoneMarket/internal/chain"
	"MilestoneMarket/internal/model"
	"MilestoneMarket/internal/repository"

	"github.com/sirupsen/logrus"
)

const testToken = "0x4200000000000000000000000000000000000006"

// fakeTokens 可编程的 TokenReader
type fakeTokens struct {
	mu          sync.Mutex
	notContract bool
	md          chain.TokenMetadata
	mdErr       error
	supply      *big.Int
	supplyErr   error
	creator     string
	creatorErr  error
	deployer    string
	enhanced    *chain.EnhancedTokenMetadata
	supplyCalls int
}

func newFakeTokens(supply int64) *fakeTokens {
	return &fakeTokens{
		md:      chain.TokenMetadata{Name: "Test Token", Symbol: "TEST", Decimals: 18},
		supply:  big.NewInt(supply),
		creator: "0x1111111111111111111111111111111111111111",
	}
}

func (f *fakeTokens) IsContract(ctx context.Context, address string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.notContract
}

func (f *fakeTokens) GetTokenMetadata(ctx context.Context, address string) (chain.TokenMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.md, f.mdErr
}

func (f *fakeTokens) TotalSupply(ctx context.Context, address string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supplyCalls++
	if f.supplyErr != nil {
		return nil, f.supplyErr
	}
	return new(big.Int).Set(f.supply), nil
}

func (f *fakeTokens) GetContractCreator(ctx context.Context, contractAddress string) (chain.ContractCreator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creatorErr != nil {
		return chain.ContractCreator{}, f.creatorErr
	}
	return chain.ContractCreator{ContractAddress: contractAddress, Creator: f.creator}, nil
}

// FindContractDeployment deployer 为空时视为找不到
func (f *fakeTokens) FindContractDeployment(ctx context.Context, contractAddress string) (chain.ContractCreator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deployer == "" {
		return chain.ContractCreator{}, chain.ErrCreatorNotFound
	}
	return chain.ContractCreator{ContractAddress: contractAddress, Creator: f.deployer, TxHash: "0xdead"}, nil
}

// GetTokenMetadataEnhanced enhanced 为 nil 时模拟节点不支持该方法
func (f *fakeTokens) GetTokenMetadataEnhanced(ctx context.Context, address string) (chain.EnhancedTokenMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enhanced == nil {
		return chain.EnhancedTokenMetadata{}, &chain.RPCError{Method: "alchemy_getTokenMetadata", Code: -32601, Message: "method not found"}
	}
	return *f.enhanced, nil
}

func (f *fakeTokens) setSupply(v int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supply = big.NewInt(v)
}

func (f *fakeTokens) setSupplyErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supplyErr = err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Ms() int64 {
	return c.Now().UnixMilli()
}

type fakeState struct {
	state *model.OnChainState
	err   error
}

func (f fakeState) ReadState(ctx context.Context, contract string) (*model.OnChainState, error) {
	return f.state, f.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	svc    *MarketService
	tokens *fakeTokens
	clock  *fakeClock
	store  *repository.MemoryStore
}

func newFixture(t *testing.T, supply int64) *fixture {
	t.Helper()
	f := &fixture{
		tokens: newFakeTokens(supply),
		clock:  newFakeClock(),
		store:  repository.NewMemoryStore(),
	}
	f.svc = NewMarketService(f.tokens, f.store, quietLogger(), WithClock(f.clock.Now))
	return f
}

// create 以 supply+1 的阈值创建一个一小时后到期的市场
func (f *fixture) create(t *testing.T) *model.Market {
	t.Helper()
	f.tokens.mu.Lock()
	threshold := new(big.Int).Add(f.tokens.supply, big.NewInt(1))
	f.tokens.mu.Unlock()
	m, err := f.svc.CreateMarket(context.Background(), CreateMarketRequest{
		TokenAddress: testToken,
		Question:     "Will TEST reach the threshold?",
		Threshold:    threshold,
		Deadline:     f.clock.Ms() + time.Hour.Milliseconds(),
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	// 保证后续创建的 id 不同
	f.clock.Advance(time.Millisecond)
	return m
}
