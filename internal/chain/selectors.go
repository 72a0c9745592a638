package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ERC20 只读函数的 4 字节 selector
const (
	NameSelector        = "0x06fdde03" // name()
	SymbolSelector      = "0x95d89b41" // symbol()
	DecimalsSelector    = "0x313ce567" // decimals()
	TotalSupplySelector = "0x18160ddd" // totalSupply()
)

// 启动时按函数签名计算一次，和常量不一致直接 panic
func init() {
	for sig, want := range map[string]string{
		"name()":        NameSelector,
		"symbol()":      SymbolSelector,
		"decimals()":    DecimalsSelector,
		"totalSupply()": TotalSupplySelector,
	} {
		if got := Selector(sig); got != want {
			panic(fmt.Sprintf("selector %s: got %s want %s", sig, got, want))
		}
	}
}

// Selector keccak256(signature) 前 4 字节的 0x 十六进制
func Selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}
