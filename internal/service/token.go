package service

import (
	"context"
	"errors"
	"regexp"

	"MilestoneMarket/internal/chain"
	"MilestoneMarket/internal/model"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidAddress 0x 前缀 + 40 位十六进制
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// FetchTokenInfo 校验地址格式与合约代码后读取元数据、供应量与创建者。
// 创建者查询失败不影响结果，使用 "Unknown"。
func (s *MarketService) FetchTokenInfo(ctx context.Context, address string) (model.TokenInfo, error) {
	s.setLastError(nil)

	if !addressPattern.MatchString(address) {
		return model.TokenInfo{}, s.fail(ErrInvalidAddressFormat)
	}
	if !s.tokens.IsContract(ctx, address) {
		return model.TokenInfo{}, s.fail(chain.ErrNotAContract)
	}

	md, err := s.tokens.GetTokenMetadata(ctx, address)
	if err != nil {
		return model.TokenInfo{}, s.fail(err)
	}
	supply, err := s.tokens.TotalSupply(ctx, address)
	if err != nil {
		return model.TokenInfo{}, s.fail(err)
	}

	creator := s.lookupCreator(ctx, address)
	if err := creator.Err(); err != nil {
		s.logger.WithError(err).WithField("token", address).Warn("Could not fetch creator")
	}

	return model.TokenInfo{
		Address:     address,
		Name:        md.Name,
		Symbol:      md.Symbol,
		Decimals:    md.Decimals,
		Creator:     creator.OrElse(model.UnknownCreator),
		TotalSupply: supply.String(),
	}, nil
}

// ValidateToken 宽松校验：只要求地址格式正确且存在合约代码。
// 元数据先读 name/symbol/decimals，失败再走 alchemy_getTokenMetadata，都失败时用占位值；
// 供应量读取失败记为 "0"。
func (s *MarketService) ValidateToken(ctx context.Context, address string) (model.TokenInfo, error) {
	s.setLastError(nil)

	if !addressPattern.MatchString(address) {
		return model.TokenInfo{}, s.fail(ErrInvalidAddressFormat)
	}
	if !s.tokens.IsContract(ctx, address) {
		return model.TokenInfo{}, s.fail(chain.ErrNotAContract)
	}
	logger := s.logger.WithField("token", address)

	md := s.lookupMetadata(ctx, address)
	if err := md.Err(); err != nil {
		logger.WithError(err).Warn("Could not fetch token metadata (using defaults)")
	}
	meta := md.OrElse(chain.EnhancedTokenMetadata{})
	info := model.TokenInfo{
		Address:     address,
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Decimals:    model.DefaultTokenDecimals,
		TotalSupply: "0",
	}
	if info.Name == "" {
		info.Name = model.DefaultTokenName
	}
	if info.Symbol == "" {
		info.Symbol = model.DefaultTokenSymbol
	}
	if meta.Decimals != nil {
		info.Decimals = *meta.Decimals
	}

	if supply, err := s.tokens.TotalSupply(ctx, address); err != nil {
		logger.WithError(err).Warn("Could not fetch total supply")
	} else {
		info.TotalSupply = supply.String()
	}

	creator := s.lookupCreator(ctx, address)
	if err := creator.Err(); err != nil {
		logger.WithError(err).Warn("Could not fetch creator")
	}
	info.Creator = creator.OrElse(model.UnknownCreator)
	return info, nil
}

// lookupMetadata 标准 ERC20 读取失败时改用 Alchemy 增强接口，两者都失败返回不可用
func (s *MarketService) lookupMetadata(ctx context.Context, address string) model.Optional[chain.EnhancedTokenMetadata] {
	md, err := s.tokens.GetTokenMetadata(ctx, address)
	if err == nil {
		decimals := md.Decimals
		return model.Some(chain.EnhancedTokenMetadata{Name: md.Name, Symbol: md.Symbol, Decimals: &decimals})
	}
	enhanced, enhErr := s.tokens.GetTokenMetadataEnhanced(ctx, address)
	if enhErr != nil {
		return model.Unavailable[chain.EnhancedTokenMetadata](errors.Join(err, enhErr))
	}
	return model.Some(enhanced)
}

// lookupCreator 先按最早转入交易推断，失败再按合约相关的最早交易回执推断。
// 创建者是可选信息，由调用方决定默认值
func (s *MarketService) lookupCreator(ctx context.Context, address string) model.Optional[string] {
	info, err := s.tokens.GetContractCreator(ctx, address)
	if err == nil {
		return model.Some(info.Creator)
	}
	deployment, depErr := s.tokens.FindContractDeployment(ctx, address)
	if depErr != nil {
		return model.Unavailable[string](errors.Join(err, depErr))
	}
	return model.Some(deployment.Creator)
}
