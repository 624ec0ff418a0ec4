package binance

import (
	"net/http"

	"coinm/internal/orderid"
	"coinm/pkg/errors"
)

const (
	coinmBaseURL        = "https://dapi.binance.com"
	coinmTestnetBaseURL = "https://testnet.binancefuture.com"
	coinmStreamURL      = "wss://dstream.binance.com/ws"
	coinmTestStreamURL  = "wss://dstream.binancefuture.com/ws"
)

// RESTBaseURL returns the REST base url for a coin-M category.
func RESTBaseURL(c orderid.Category) (string, error) {
	switch c {
	case orderid.CategoryCoinM:
		return coinmBaseURL, nil
	case orderid.CategoryCoinMTest:
		return coinmTestnetBaseURL, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidInput, "category %q is not a coin-M category", c)
	}
}

// StreamBaseURL returns the websocket base url for a coin-M category. The listen key is
// appended as the last path segment.
func StreamBaseURL(c orderid.Category) (string, error) {
	switch c {
	case orderid.CategoryCoinM:
		return coinmStreamURL, nil
	case orderid.CategoryCoinMTest:
		return coinmTestStreamURL, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidInput, "category %q is not a coin-M category", c)
	}
}

// endpoint is one fixed route of the coin-M api. weight is the base request weight
// published by the exchange, order marks routes that count against the order limit.
type endpoint struct {
	method  string
	path    string
	private bool
	weight  int
	order   bool
}

var (
	// Market data
	epPing                  = endpoint{http.MethodGet, "dapi/v1/ping", false, 1, false}
	epServerTime            = endpoint{http.MethodGet, "dapi/v1/time", false, 1, false}
	epExchangeInfo          = endpoint{http.MethodGet, "dapi/v1/exchangeInfo", false, 1, false}
	epOrderBook             = endpoint{http.MethodGet, "dapi/v1/depth", false, 2, false}
	epRecentTrades          = endpoint{http.MethodGet, "dapi/v1/trades", false, 5, false}
	epHistoricalTrades      = endpoint{http.MethodGet, "dapi/v1/historicalTrades", false, 20, false}
	epAggregateTrades       = endpoint{http.MethodGet, "dapi/v1/aggTrades", false, 20, false}
	epMarkPrice             = endpoint{http.MethodGet, "dapi/v1/premiumIndex", false, 10, false}
	epFundingRateHistory    = endpoint{http.MethodGet, "dapi/v1/fundingRate", false, 1, false}
	epKlines                = endpoint{http.MethodGet, "dapi/v1/klines", false, 5, false}
	epContinuousKlines      = endpoint{http.MethodGet, "dapi/v1/continuousKlines", false, 5, false}
	epIndexPriceKlines      = endpoint{http.MethodGet, "dapi/v1/indexPriceKlines", false, 5, false}
	epMarkPriceKlines       = endpoint{http.MethodGet, "dapi/v1/markPriceKlines", false, 5, false}
	epTicker24hr            = endpoint{http.MethodGet, "dapi/v1/ticker/24hr", false, 10, false}
	epSymbolPriceTicker     = endpoint{http.MethodGet, "dapi/v1/ticker/price", false, 2, false}
	epSymbolBookTicker      = endpoint{http.MethodGet, "dapi/v1/ticker/bookTicker", false, 2, false}
	epOpenInterest          = endpoint{http.MethodGet, "dapi/v1/openInterest", false, 1, false}
	epOpenInterestHist      = endpoint{http.MethodGet, "futures/data/openInterestHist", false, 1, false}
	epTopTraderAccountRatio = endpoint{http.MethodGet, "futures/data/topLongShortAccountRatio", false, 1, false}
	epTopTraderPosRatio     = endpoint{http.MethodGet, "futures/data/topLongShortPositionRatio", false, 1, false}
	epGlobalAccountRatio    = endpoint{http.MethodGet, "futures/data/globalLongShortAccountRatio", false, 1, false}
	epTakerBuySellVolume    = endpoint{http.MethodGet, "futures/data/takerBuySellVol", false, 1, false}
	epCompositeIndexBasis   = endpoint{http.MethodGet, "futures/data/basis", false, 1, false}

	// Account and trading
	epSetPositionMode     = endpoint{http.MethodPost, "dapi/v1/positionSide/dual", true, 1, false}
	epGetPositionMode     = endpoint{http.MethodGet, "dapi/v1/positionSide/dual", true, 30, false}
	epNewOrder            = endpoint{http.MethodPost, "dapi/v1/order", true, 1, true}
	epModifyOrder         = endpoint{http.MethodPut, "dapi/v1/order", true, 1, true}
	epGetOrder            = endpoint{http.MethodGet, "dapi/v1/order", true, 1, false}
	epCancelOrder         = endpoint{http.MethodDelete, "dapi/v1/order", true, 1, false}
	epBatchOrders         = endpoint{http.MethodPost, "dapi/v1/batchOrders", true, 5, true}
	epModifyBatchOrders   = endpoint{http.MethodPut, "dapi/v1/batchOrders", true, 5, true}
	epCancelBatchOrders   = endpoint{http.MethodDelete, "dapi/v1/batchOrders", true, 1, false}
	epCancelAllOpenOrders = endpoint{http.MethodDelete, "dapi/v1/allOpenOrders", true, 1, false}
	epCountdownCancelAll  = endpoint{http.MethodPost, "dapi/v1/countdownCancelAll", true, 10, false}
	epOpenOrder           = endpoint{http.MethodGet, "dapi/v1/openOrder", true, 1, false}
	epOpenOrders          = endpoint{http.MethodGet, "dapi/v1/openOrders", true, 5, false}
	epAllOrders           = endpoint{http.MethodGet, "dapi/v1/allOrders", true, 20, false}
	epOrderAmendment      = endpoint{http.MethodGet, "dapi/v1/orderAmendment", true, 1, false}
	epBalance             = endpoint{http.MethodGet, "dapi/v1/balance", true, 1, false}
	epAccount             = endpoint{http.MethodGet, "dapi/v1/account", true, 5, false}
	epLeverage            = endpoint{http.MethodPost, "dapi/v1/leverage", true, 1, false}
	epMarginType          = endpoint{http.MethodPost, "dapi/v1/marginType", true, 1, false}
	epPositionMargin      = endpoint{http.MethodPost, "dapi/v1/positionMargin", true, 1, false}
	epPositionMarginHist  = endpoint{http.MethodGet, "dapi/v1/positionMargin/history", true, 1, false}
	epPositionRisk        = endpoint{http.MethodGet, "dapi/v1/positionRisk", true, 1, false}
	epUserTrades          = endpoint{http.MethodGet, "dapi/v1/userTrades", true, 20, false}
	epIncome              = endpoint{http.MethodGet, "dapi/v1/income", true, 20, false}
	epLeverageBracket     = endpoint{http.MethodGet, "dapi/v2/leverageBracket", true, 1, false}
	epForceOrders         = endpoint{http.MethodGet, "dapi/v1/forceOrders", true, 20, false}
	epADLQuantile         = endpoint{http.MethodGet, "dapi/v1/adlQuantile", true, 5, false}
	epCommissionRate      = endpoint{http.MethodGet, "dapi/v1/commissionRate", true, 20, false}

	// Broker
	epBrokerIfNewUser      = endpoint{http.MethodGet, "dapi/v1/apiReferral/ifNewUser", true, 1, false}
	epBrokerCustomID       = endpoint{http.MethodPost, "dapi/v1/apiReferral/customization", true, 1, false}
	epBrokerGetCustomID    = endpoint{http.MethodGet, "dapi/v1/apiReferral/customization", true, 1, false}
	epBrokerUserCustomID   = endpoint{http.MethodGet, "dapi/v1/apiReferral/userCustomization", true, 1, false}
	epBrokerRebateOverview = endpoint{http.MethodGet, "dapi/v1/apiReferral/overview", true, 1, false}
	epBrokerTradeVolume    = endpoint{http.MethodGet, "dapi/v1/apiReferral/tradeVol", true, 1, false}
	epBrokerRebateVolume   = endpoint{http.MethodGet, "dapi/v1/apiReferral/rebateVol", true, 1, false}
	epBrokerTraderSummary  = endpoint{http.MethodGet, "dapi/v1/apiReferral/traderSummary", true, 1, false}

	// User data stream. The listen key calls carry the api key but are not signed.
	epListenKeyCreate    = endpoint{http.MethodPost, "dapi/v1/listenKey", false, 1, false}
	epListenKeyKeepAlive = endpoint{http.MethodPut, "dapi/v1/listenKey", false, 1, false}
	epListenKeyClose     = endpoint{http.MethodDelete, "dapi/v1/listenKey", false, 1, false}
)

var endpoints = []endpoint{
	epPing, epServerTime, epExchangeInfo, epOrderBook, epRecentTrades, epHistoricalTrades,
	epAggregateTrades, epMarkPrice, epFundingRateHistory, epKlines, epContinuousKlines,
	epIndexPriceKlines, epMarkPriceKlines, epTicker24hr, epSymbolPriceTicker, epSymbolBookTicker,
	epOpenInterest, epOpenInterestHist, epTopTraderAccountRatio, epTopTraderPosRatio,
	epGlobalAccountRatio, epTakerBuySellVolume, epCompositeIndexBasis,
	epSetPositionMode, epGetPositionMode, epNewOrder, epModifyOrder, epGetOrder, epCancelOrder,
	epBatchOrders, epModifyBatchOrders, epCancelBatchOrders, epCancelAllOpenOrders,
	epCountdownCancelAll, epOpenOrder, epOpenOrders, epAllOrders, epOrderAmendment, epBalance,
	epAccount, epLeverage, epMarginType, epPositionMargin, epPositionMarginHist, epPositionRisk,
	epUserTrades, epIncome, epLeverageBracket, epForceOrders, epADLQuantile, epCommissionRate,
	epBrokerIfNewUser, epBrokerCustomID, epBrokerGetCustomID, epBrokerUserCustomID,
	epBrokerRebateOverview, epBrokerTradeVolume, epBrokerRebateVolume, epBrokerTraderSummary,
	epListenKeyCreate, epListenKeyKeepAlive, epListenKeyClose,
}

type routeKey struct {
	method string
	path   string
}

var routeTable = func() map[routeKey]endpoint {
	m := make(map[routeKey]endpoint, len(endpoints))
	for _, ep := range endpoints {
		m[routeKey{ep.method, ep.path}] = ep
	}
	return m
}()

// lookupEndpoint returns the route for method and path. Unknown routes weigh 1.
func lookupEndpoint(method, path string) endpoint {
	if ep, ok := routeTable[routeKey{method, path}]; ok {
		return ep
	}
	return endpoint{method: method, path: path, weight: 1}
}
