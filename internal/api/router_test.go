package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MilestoneMarket/internal/chain"
	"MilestoneMarket/internal/model"
	"MilestoneMarket/internal/repository"
	"MilestoneMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "0x4200000000000000000000000000000000000006"

type stubTokens struct {
	supply *big.Int
	mdErr  error
}

func (s *stubTokens) IsContract(ctx context.Context, address string) bool { return true }

func (s *stubTokens) GetTokenMetadata(ctx context.Context, address string) (chain.TokenMetadata, error) {
	if s.mdErr != nil {
		return chain.TokenMetadata{}, s.mdErr
	}
	return chain.TokenMetadata{Name: "Test Token", Symbol: "TEST", Decimals: 18}, nil
}

func (s *stubTokens) TotalSupply(ctx context.Context, address string) (*big.Int, error) {
	return new(big.Int).Set(s.supply), nil
}

func (s *stubTokens) GetContractCreator(ctx context.Context, contractAddress string) (chain.ContractCreator, error) {
	return chain.ContractCreator{}, chain.ErrCreatorNotFound
}

func (s *stubTokens) FindContractDeployment(ctx context.Context, contractAddress string) (chain.ContractCreator, error) {
	return chain.ContractCreator{}, chain.ErrCreatorNotFound
}

func (s *stubTokens) GetTokenMetadataEnhanced(ctx context.Context, address string) (chain.EnhancedTokenMetadata, error) {
	decimals := 9
	return chain.EnhancedTokenMetadata{Name: "Pump", Decimals: &decimals}, nil
}

// stubExplorer 记录最后一次查询参数
type stubExplorer struct {
	lastArgs []string
	err      error
}

func (s *stubExplorer) GetTransactionsByAddress(ctx context.Context, address, fromBlock, toBlock string) ([]chain.AssetTransfer, error) {
	s.lastArgs = []string{address, fromBlock, toBlock}
	return []chain.AssetTransfer{{Hash: "0x01", From: address}}, s.err
}

func (s *stubExplorer) GetERC20Transfers(ctx context.Context, tokenAddress, fromBlock, toBlock string) ([]chain.AssetTransfer, error) {
	s.lastArgs = []string{tokenAddress, fromBlock, toBlock}
	if s.err != nil {
		return nil, s.err
	}
	return []chain.AssetTransfer{{Hash: "0x02"}, {Hash: "0x03"}}, nil
}

func (s *stubExplorer) GetBlock(ctx context.Context, blockNumber string) (json.RawMessage, error) {
	s.lastArgs = []string{blockNumber}
	if blockNumber == "0xffffff" {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(`{"number":"` + blockNumber + `"}`), s.err
}

func (s *stubExplorer) GetTransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error) {
	s.lastArgs = []string{txHash}
	return json.RawMessage(`{"transactionHash":"` + txHash + `","status":"0x1"}`), s.err
}

type stubState struct{ state *model.OnChainState }

func (s stubState) ReadState(ctx context.Context, contract string) (*model.OnChainState, error) {
	return s.state, nil
}

type testServer struct {
	engine   *gin.Engine
	tokens   *stubTokens
	explorer *stubExplorer
	now      time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ts := &testServer{
		tokens:   &stubTokens{supply: big.NewInt(1000)},
		explorer: &stubExplorer{},
		now:      time.UnixMilli(1_700_000_000_000),
	}
	svc := service.NewMarketService(ts.tokens, repository.NewMemoryStore(), logger, service.WithClock(func() time.Time { return ts.now }))
	reader := stubState{state: &model.OnChainState{Resolved: true, Reached: true, TotalYes: big.NewInt(0), TotalNo: big.NewInt(0)}}

	ts.engine = gin.New()
	RegisterRoutes(ts.engine, NewMarketHandler(svc, reader, logger), NewTokenHandler(svc, logger), NewExplorerHandler(ts.explorer, logger), logger)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (ts *testServer) createMarket(t *testing.T) string {
	t.Helper()
	w, out := ts.do(t, http.MethodPost, "/api/markets", map[string]any{
		"tokenAddress": testToken,
		"question":     "Will TEST reach 1001?",
		"threshold":    "1001",
		"deadline":     ts.now.UnixMilli() + time.Hour.Milliseconds(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return out["id"].(string)
}

func TestGetToken(t *testing.T) {
	ts := newTestServer(t)

	w, out := ts.do(t, http.MethodGet, "/api/tokens/"+testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TEST", out["symbol"])
	assert.Equal(t, "1000", out["totalSupply"])
	assert.Equal(t, model.UnknownCreator, out["creator"])

	w, out = ts.do(t, http.MethodGet, "/api/tokens/0x1234", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid Ethereum address format", out["error"])

	ts.tokens.mdErr = &chain.RPCError{Method: "eth_call", Code: -32000, Message: "execution reverted"}
	w, _ = ts.do(t, http.MethodGet, "/api/tokens/"+testToken, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestValidateTokenRoute(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.mdErr = chain.ErrMetadata

	w, out := ts.do(t, http.MethodGet, "/api/tokens/"+testToken+"/validate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Pump", out["name"])
	assert.Equal(t, model.DefaultTokenSymbol, out["symbol"])
	assert.EqualValues(t, 9, out["decimals"])
	assert.Equal(t, model.UnknownCreator, out["creator"])

	// 严格接口在元数据失败时报错
	w, _ = ts.do(t, http.MethodGet, "/api/tokens/"+testToken, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/tokens/0x12/validate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExplorerRoutes(t *testing.T) {
	ts := newTestServer(t)
	const hash = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"

	w, out := ts.do(t, http.MethodGet, "/api/tokens/"+testToken+"/transfers?fromBlock=0x10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, out["total"])
	assert.Equal(t, []string{testToken, "0x10", ""}, ts.explorer.lastArgs)

	w, out = ts.do(t, http.MethodGet, "/api/addresses/"+testToken+"/transactions?toBlock=latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["total"])
	assert.Equal(t, []string{testToken, "", "latest"}, ts.explorer.lastArgs)

	w, out = ts.do(t, http.MethodGet, "/api/blocks/0x1b4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0x1b4", out["number"])

	w, _ = ts.do(t, http.MethodGet, "/api/blocks/0xffffff", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, out = ts.do(t, http.MethodGet, "/api/transactions/"+hash+"/receipt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, hash, out["transactionHash"])

	for _, path := range []string{
		"/api/tokens/0x12/transfers",
		"/api/tokens/" + testToken + "/transfers?fromBlock=yesterday",
		"/api/addresses/nope/transactions",
		"/api/blocks/12",
		"/api/transactions/0x1234/receipt",
	} {
		w, _ = ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	ts.explorer.err = chain.ErrTransport
	w, _ = ts.do(t, http.MethodGet, "/api/tokens/"+testToken+"/transfers", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListMarketsUnknownFilterWithoutMarkets(t *testing.T) {
	ts := newTestServer(t)

	w, out := ts.do(t, http.MethodGet, "/api/markets?filter=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Filter must be one of all, active, resolved", out["error"])
}

func TestCreateMarketRoute(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createMarket(t)
	assert.True(t, strings.HasPrefix(id, testToken+"-"))

	w, out := ts.do(t, http.MethodPost, "/api/markets", map[string]any{
		"tokenAddress": testToken, "question": "q", "threshold": 1000, "deadline": ts.now.UnixMilli() + 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Threshold must be higher than current total supply", out["error"])

	w, out = ts.do(t, http.MethodPost, "/api/markets", map[string]any{
		"tokenAddress": testToken, "question": "q", "threshold": 5000, "deadline": ts.now.UnixMilli(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Deadline must be in the future", out["error"])

	w, _ = ts.do(t, http.MethodPost, "/api/markets", map[string]any{
		"tokenAddress": testToken, "question": "q", "threshold": "1.5", "deadline": ts.now.UnixMilli() + 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndDetail(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createMarket(t)

	w, out := ts.do(t, http.MethodGet, "/api/markets?filter=active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["total"])
	item := out["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "PENDING", item["status"])
	assert.Equal(t, "0d 1h 0m 0s", item["timeRemaining"])
	assert.EqualValues(t, 1001, item["threshold"])

	w, _ = ts.do(t, http.MethodGet, "/api/markets?filter=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = ts.do(t, http.MethodGet, "/api/markets/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "local", out["effective"].(map[string]any)["source"])

	w, _ = ts.do(t, http.MethodPost, "/api/markets/"+id+"/contract", map[string]any{"contract": "0x3333333333333333333333333333333333333333"})
	require.Equal(t, http.StatusOK, w.Code)

	_, out = ts.do(t, http.MethodGet, "/api/markets/"+id, nil)
	eff := out["effective"].(map[string]any)
	assert.Equal(t, "chain", eff["source"])
	assert.Equal(t, "REACHED", eff["status"])

	w, out = ts.do(t, http.MethodGet, "/api/markets/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Market not found", out["error"])
}

func TestResolveRoute(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createMarket(t)

	w, out := ts.do(t, http.MethodPost, "/api/markets/"+id+"/resolve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Market deadline has not passed yet", out["error"])

	ts.now = ts.now.Add(2 * time.Hour)
	ts.tokens.supply = big.NewInt(2000)
	w, out = ts.do(t, http.MethodPost, "/api/markets/"+id+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REACHED", out["status"])

	w, _ = ts.do(t, http.MethodPost, "/api/markets/"+id+"/resolve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	_, out = ts.do(t, http.MethodGet, "/api/status", nil)
	assert.EqualValues(t, 1, out["markets"])
	assert.Equal(t, "Market already resolved", out["lastError"])
}

func TestBetsAndRefresh(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createMarket(t)

	w, out := ts.do(t, http.MethodPost, "/api/markets/"+id+"/bets", map[string]any{
		"address": "0x2222222222222222222222222222222222222222", "side": "yes", "amount": 2.5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2.5, out["yesPool"])

	ts.tokens.supply = big.NewInt(1500)
	w, out = ts.do(t, http.MethodPost, "/api/markets/"+id+"/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1500", out["totalSupply"])
	assert.EqualValues(t, 100, out["progress"])

	w, _ = ts.do(t, http.MethodPost, "/api/markets/missing/refresh", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodGet, "/api/status", nil)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}
