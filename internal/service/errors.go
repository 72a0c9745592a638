package service

import "errors"

// 引擎层错误，Error() 即返回给前端的可读信息
// 文案与前端提示保持一致，首字母大写是有意的（不遵循 ST1005）
var (
	ErrInvalidAddressFormat    = errors.New("Invalid Ethereum address format")
	ErrInvalidDeadline         = errors.New("Deadline must be in the future")
	ErrInvalidThreshold        = errors.New("Threshold must be higher than current total supply")
	ErrTokenFetchFailed        = errors.New("Failed to fetch token info")
	ErrNotFound                = errors.New("Market not found")
	ErrAlreadyResolved         = errors.New("Market already resolved")
	ErrDeadlineNotPassed       = errors.New("Market deadline has not passed yet")
	ErrEmptyQuestion           = errors.New("Question is required")
	ErrInvalidFilter           = errors.New("Filter must be one of all, active, resolved")
	ErrInvalidBetSide          = errors.New("Bet side must be YES or NO")
	ErrInvalidBetAmount        = errors.New("Bet amount must be greater than zero")
	ErrMarketClosed            = errors.New("Market is not accepting bets")
	ErrContractAlreadyAttached = errors.New("Market contract already attached")
)

// TokenFetchError 创建市场时代币信息获取失败；Error() 保留底层原因的原文
type TokenFetchError struct {
	Err error
}

func (e *TokenFetchError) Error() string {
	return e.Err.Error()
}

func (e *TokenFetchError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrTokenFetchFailed) 成立
func (e *TokenFetchError) Is(target error) bool {
	return target == ErrTokenFetchFailed
}
