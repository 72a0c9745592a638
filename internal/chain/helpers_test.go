package chain

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type rpcFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcHandler func(params []json.RawMessage) (any, *rpcFault)

// fakeNode 按 method 分发的 JSON-RPC 测试节点，记录收到的请求
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	requests []rpcRequest
	srv      *httptest.Server
}

func newFakeNode(t *testing.T, handlers map[string]rpcHandler) *fakeNode {
	n := &fakeNode{handlers: handlers}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n.mu.Lock()
		n.requests = append(n.requests, req)
		h, ok := n.handlers[req.Method]
		n.mu.Unlock()

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if !ok {
			resp["error"] = rpcFault{Code: -32601, Message: "the method " + req.Method + " does not exist/is not available"}
		} else if result, fault := h(req.Params); fault != nil {
			resp["error"] = fault
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *fakeNode) calls(method string) []rpcRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []rpcRequest
	for _, r := range n.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(endpoint, http.DefaultClient, quietLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// callData 取 eth_call 第一个参数中的 data（ethclient 发送的是 input）
func callData(params []json.RawMessage) string {
	if len(params) == 0 {
		return ""
	}
	var arg struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Input string `json:"input"`
	}
	_ = json.Unmarshal(params[0], &arg)
	if arg.Data != "" {
		return strings.ToLower(arg.Data)
	}
	return strings.ToLower(arg.Input)
}

func word(n *big.Int) string {
	return hex.EncodeToString(common.LeftPadBytes(n.Bytes(), 32))
}

// abiString 按 ABI 动态 string 布局编码：offset(0x20) + length + 右补零数据
func abiString(s string) string {
	data := []byte(s)
	padded := make([]byte, (len(data)+31)/32*32)
	copy(padded, data)
	return "0x" + word(big.NewInt(32)) + word(big.NewInt(int64(len(data)))) + hex.EncodeToString(padded)
}

func abiUint(n *big.Int) string {
	return "0x" + word(n)
}

func abiBool(b bool) string {
	if b {
		return abiUint(big.NewInt(1))
	}
	return abiUint(big.NewInt(0))
}

func stringParam(params []json.RawMessage, i int) string {
	if i >= len(params) {
		return ""
	}
	var s string
	_ = json.Unmarshal(params[i], &s)
	return s
}
