package binance

import "context"

// Broker (api referral) endpoints. They require a broker account key.

func (c *CoinMClient) GetBrokerIfNewUser(ctx context.Context, params BrokerIfNewUserParams) (*BrokerIfNewUser, error) {
	var res BrokerIfNewUser
	if err := c.request(ctx, epBrokerIfNewUser, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) SetBrokerCustomID(ctx context.Context, params BrokerCustomIDParams) (*BrokerCustomID, error) {
	var res BrokerCustomID
	if err := c.request(ctx, epBrokerCustomID, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetBrokerCustomIDs(ctx context.Context, params BrokerGetCustomIDParams) ([]BrokerCustomID, error) {
	return requestList[BrokerCustomID](ctx, c, epBrokerGetCustomID, params)
}

func (c *CoinMClient) GetBrokerUserCustomID(ctx context.Context, params BrokerUserCustomIDParams) (*BrokerUserCustomID, error) {
	var res BrokerUserCustomID
	if err := c.request(ctx, epBrokerUserCustomID, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetBrokerRebateOverview(ctx context.Context, params BrokerRebateParams) (*BrokerRebateOverview, error) {
	var res BrokerRebateOverview
	if err := c.request(ctx, epBrokerRebateOverview, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetBrokerTradeVolume(ctx context.Context, params BrokerRebateParams) ([]BrokerTradeVolume, error) {
	return requestList[BrokerTradeVolume](ctx, c, epBrokerTradeVolume, params)
}

func (c *CoinMClient) GetBrokerRebateVolume(ctx context.Context, params BrokerRebateParams) ([]BrokerRebateVolume, error) {
	return requestList[BrokerRebateVolume](ctx, c, epBrokerRebateVolume, params)
}

func (c *CoinMClient) GetBrokerTraderSummary(ctx context.Context, params BrokerRebateParams) ([]BrokerTraderSummary, error) {
	return requestList[BrokerTraderSummary](ctx, c, epBrokerTraderSummary, params)
}
