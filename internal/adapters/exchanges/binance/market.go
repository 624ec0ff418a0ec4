package binance

import (
	"context"

	"coinm/pkg/errors"
)

func (c *CoinMClient) Ping(ctx context.Context) error {
	return c.request(ctx, epPing, nil, nil)
}

// GetServerTime returns the exchange clock in unix milliseconds.
func (c *CoinMClient) GetServerTime(ctx context.Context) (int64, error) {
	var res ServerTime
	if err := c.request(ctx, epServerTime, nil, &res); err != nil {
		return 0, err
	}
	return res.ServerTime, nil
}

// GetExchangeInfo returns trading rules and symbol metadata. Results are cached for the
// configured TTL when a cache is set; cache failures fall through to the api.
func (c *CoinMClient) GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	key := "coinm:" + string(c.category) + ":exchange_info"

	if c.cache != nil {
		var cached ExchangeInfo
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, errors.ErrNotFound) {
			c.log.Warnw("exchange info cache read failed", "error", err)
		}
	}

	var res ExchangeInfo
	if err := c.request(ctx, epExchangeInfo, nil, &res); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, &res, c.infoTTL); err != nil {
			c.log.Warnw("exchange info cache write failed", "error", err)
		}
	}
	return &res, nil
}

func (c *CoinMClient) GetOrderBook(ctx context.Context, params OrderBookParams) (*OrderBook, error) {
	var res OrderBook
	if err := c.request(ctx, epOrderBook, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetRecentTrades(ctx context.Context, params RecentTradesParams) ([]RecentTrade, error) {
	var res []RecentTrade
	if err := c.request(ctx, epRecentTrades, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetHistoricalTrades needs an api key but is not signed.
func (c *CoinMClient) GetHistoricalTrades(ctx context.Context, params HistoricalTradesParams) ([]RecentTrade, error) {
	var res []RecentTrade
	if err := c.request(ctx, epHistoricalTrades, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetAggregateTrades(ctx context.Context, params AggregateTradesParams) ([]AggregateTrade, error) {
	var res []AggregateTrade
	if err := c.request(ctx, epAggregateTrades, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetMarkPrice returns mark price and funding data from the premium index.
func (c *CoinMClient) GetMarkPrice(ctx context.Context, params SymbolParams) ([]MarkPrice, error) {
	return requestList[MarkPrice](ctx, c, epMarkPrice, params)
}

func (c *CoinMClient) GetFundingRateHistory(ctx context.Context, params FundingRateParams) ([]FundingRate, error) {
	var res []FundingRate
	if err := c.request(ctx, epFundingRateHistory, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetKlines(ctx context.Context, params KlinesParams) ([]Kline, error) {
	return c.klines(ctx, epKlines, params)
}

func (c *CoinMClient) GetContinuousContractKlines(ctx context.Context, params ContinuousKlinesParams) ([]Kline, error) {
	return c.klines(ctx, epContinuousKlines, params)
}

func (c *CoinMClient) GetIndexPriceKlines(ctx context.Context, params IndexPriceKlinesParams) ([]Kline, error) {
	return c.klines(ctx, epIndexPriceKlines, params)
}

func (c *CoinMClient) GetMarkPriceKlines(ctx context.Context, params KlinesParams) ([]Kline, error) {
	return c.klines(ctx, epMarkPriceKlines, params)
}

func (c *CoinMClient) klines(ctx context.Context, ep endpoint, params interface{}) ([]Kline, error) {
	var res []Kline
	if err := c.request(ctx, ep, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) Get24hrChangeStatistics(ctx context.Context, params SymbolParams) ([]Ticker24h, error) {
	return requestList[Ticker24h](ctx, c, epTicker24hr, params)
}

func (c *CoinMClient) GetSymbolPriceTicker(ctx context.Context, params SymbolParams) ([]SymbolPrice, error) {
	return requestList[SymbolPrice](ctx, c, epSymbolPriceTicker, params)
}

// GetSymbolOrderBookTicker returns best bid and ask. A single symbol still yields a slice.
func (c *CoinMClient) GetSymbolOrderBookTicker(ctx context.Context, params SymbolParams) ([]BookTicker, error) {
	return requestList[BookTicker](ctx, c, epSymbolBookTicker, params)
}

func (c *CoinMClient) GetOpenInterest(ctx context.Context, symbol string) (*OpenInterest, error) {
	var res OpenInterest
	if err := c.request(ctx, epOpenInterest, SymbolParams{Symbol: symbol}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetOpenInterestStatistics(ctx context.Context, params FuturesDataParams) ([]OpenInterestStat, error) {
	var res []OpenInterestStat
	if err := c.request(ctx, epOpenInterestHist, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetTopTradersLongShortAccountRatio(ctx context.Context, params FuturesDataParams) ([]LongShortRatio, error) {
	return c.ratio(ctx, epTopTraderAccountRatio, params)
}

func (c *CoinMClient) GetTopTradersLongShortPositionRatio(ctx context.Context, params FuturesDataParams) ([]LongShortRatio, error) {
	return c.ratio(ctx, epTopTraderPosRatio, params)
}

func (c *CoinMClient) GetGlobalLongShortAccountRatio(ctx context.Context, params FuturesDataParams) ([]LongShortRatio, error) {
	return c.ratio(ctx, epGlobalAccountRatio, params)
}

func (c *CoinMClient) ratio(ctx context.Context, ep endpoint, params FuturesDataParams) ([]LongShortRatio, error) {
	var res []LongShortRatio
	if err := c.request(ctx, ep, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetTakerBuySellVolume(ctx context.Context, params FuturesDataParams) ([]TakerVolume, error) {
	var res []TakerVolume
	if err := c.request(ctx, epTakerBuySellVolume, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetBasis(ctx context.Context, params FuturesDataParams) ([]Basis, error) {
	var res []Basis
	if err := c.request(ctx, epCompositeIndexBasis, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}
