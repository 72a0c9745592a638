package chain

import (
	"errors"
	"fmt"
)

// ErrNotAContract/ErrCreatorNotFound 的文案会直接展示给用户，首字母大写是有意的（不遵循 ST1005）
var (
	// ErrTransport 网络或 HTTP 层失败
	ErrTransport = errors.New("rpc transport error")
	// ErrRPC 节点返回了 error 信封，具体信息见 *RPCError
	ErrRPC = errors.New("rpc error")
	// ErrNotAContract 地址上没有合约代码
	ErrNotAContract = errors.New("Address is not a contract")
	// ErrMetadata name/symbol/decimals 任一读取失败
	ErrMetadata = errors.New("failed to fetch token metadata")
	// ErrCreatorNotFound 未能通过转账历史推断合约创建者（非致命）
	ErrCreatorNotFound = errors.New("Could not find contract creator")
	// ErrABIDecode 返回数据不符合 ABI 编码布局
	ErrABIDecode = errors.New("abi decode error")
)

// RPCError 节点返回的 JSON-RPC error，Message 原样透传
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("json-rpc error %d", e.Code)
	}
	return e.Message
}

// Is 使 errors.Is(err, ErrRPC) 成立
func (e *RPCError) Is(target error) bool {
	return target == ErrRPC
}
