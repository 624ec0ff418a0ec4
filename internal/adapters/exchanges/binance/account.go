package binance

import (
	"context"
)

func (c *CoinMClient) GetBalance(ctx context.Context) ([]AccountBalance, error) {
	var res []AccountBalance
	if err := c.request(ctx, epBalance, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetAccountInformation(ctx context.Context) (*AccountInformation, error) {
	var res AccountInformation
	if err := c.request(ctx, epAccount, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) SetLeverage(ctx context.Context, params LeverageParams) (*LeverageResult, error) {
	var res LeverageResult
	if err := c.request(ctx, epLeverage, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) SetMarginType(ctx context.Context, params MarginTypeParams) error {
	return c.request(ctx, epMarginType, params, nil)
}

// SetIsolatedPositionMargin adds (MarginChangeAdd) or removes (MarginChangeReduce) margin
// from an isolated position.
func (c *CoinMClient) SetIsolatedPositionMargin(ctx context.Context, params PositionMarginParams) (*PositionMarginResult, error) {
	var res PositionMarginResult
	if err := c.request(ctx, epPositionMargin, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetPositionMarginChangeHistory(ctx context.Context, params PositionMarginHistoryParams) ([]PositionMarginChange, error) {
	var res []PositionMarginChange
	if err := c.request(ctx, epPositionMarginHist, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetPositions returns position risk for every symbol, optionally narrowed by margin asset
// or pair.
func (c *CoinMClient) GetPositions(ctx context.Context, params PositionRiskParams) ([]PositionRisk, error) {
	var res []PositionRisk
	if err := c.request(ctx, epPositionRisk, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetAccountTrades(ctx context.Context, params AccountTradesParams) ([]AccountTrade, error) {
	var res []AccountTrade
	if err := c.request(ctx, epUserTrades, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetIncomeHistory(ctx context.Context, params IncomeHistoryParams) ([]Income, error) {
	var res []Income
	if err := c.request(ctx, epIncome, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetNotionalAndLeverageBrackets returns the brackets of one symbol or of all symbols when
// symbol is empty.
func (c *CoinMClient) GetNotionalAndLeverageBrackets(ctx context.Context, symbol string) ([]SymbolLeverageBrackets, error) {
	return requestList[SymbolLeverageBrackets](ctx, c, epLeverageBracket, SymbolParams{Symbol: symbol})
}

func (c *CoinMClient) GetForceOrders(ctx context.Context, params ForceOrdersParams) ([]OrderResult, error) {
	var res []OrderResult
	if err := c.request(ctx, epForceOrders, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetADLQuantileEstimation(ctx context.Context, symbol string) ([]ADLQuantile, error) {
	return requestList[ADLQuantile](ctx, c, epADLQuantile, SymbolParams{Symbol: symbol})
}

func (c *CoinMClient) GetAccountCommissionRate(ctx context.Context, symbol string) (*CommissionRate, error) {
	var res CommissionRate
	if err := c.request(ctx, epCommissionRate, SymbolParams{Symbol: symbol}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
