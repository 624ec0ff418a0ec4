package orderid

import (
	"strings"

	"coinm/pkg/errors"
)

// Category is the API routing category a client talks to. Each category has an order id
// prefix code assigned by the exchange, used to attribute order flow to this client.
type Category string

const (
	CategorySpot      Category = "spot"
	CategorySpotTest  Category = "spottest"
	CategoryUSDM      Category = "usdm"
	CategoryUSDMTest  Category = "usdmtest"
	CategoryCoinM     Category = "coinm"
	CategoryCoinMTest Category = "coinmtest"
)

// Order id properties that mint new identifiers. Lookup properties such as
// origClientOrderId are deliberately absent.
const (
	PropertyNewClientOrderID  = "newClientOrderId"
	PropertyListClientOrderID = "listClientOrderId"
)

const (
	futuresCode = "15PC4ZJy"
	spotCode    = "U5D3M"
)

// Code returns the prefix code assigned to the category.
func (c Category) Code() string {
	switch c {
	case CategoryUSDM, CategoryUSDMTest, CategoryCoinM, CategoryCoinMTest:
		return futuresCode
	default:
		return spotCode
	}
}

// Prefix returns the prefix every client order id in this category must start with.
func (c Category) Prefix() string {
	return "x-" + c.Code()
}

// Testnet reports whether the category routes to a test network.
func (c Category) Testnet() bool {
	return strings.HasSuffix(string(c), "test")
}

// ParseCategory validates a category name from configuration.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategorySpot, CategorySpotTest, CategoryUSDM, CategoryUSDMTest, CategoryCoinM, CategoryCoinMTest:
		return c, nil
	default:
		return "", errors.NewValidationError("category", "unknown api category", s)
	}
}
