package model

// UnknownCreator 无法确定合约创建者时的占位值
const UnknownCreator = "Unknown"

// 宽松校验时元数据不可用的占位值（pump.fun 一类非标准代币）
const (
	DefaultTokenName     = "Unknown Token"
	DefaultTokenSymbol   = "TOKEN"
	DefaultTokenDecimals = 18
)

// TokenInfo ERC20 合约快照，每次按需重新获取，不做合并
type TokenInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	Creator     string `json:"creator"`
	TotalSupply string `json:"totalSupply"`
}

// Optional 可选的附加信息：区分“有值”与“不可用”，由调用方决定默认值
type Optional[T any] struct {
	value T
	err   error
	ok    bool
}

// Some 构造有值的 Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// Unavailable 构造不可用的 Optional，保留原因
func Unavailable[T any](err error) Optional[T] {
	return Optional[T]{err: err}
}

// Get 返回值与是否可用
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Err 不可用的原因
func (o Optional[T]) Err() error {
	return o.err
}

// OrElse 不可用时返回 def
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}
