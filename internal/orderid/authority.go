package orderid

import (
	"strings"

	"coinm/internal/metrics"
	"coinm/pkg/logger"
)

// Warner receives the warning emitted for ids without the expected prefix.
// *logger.Logger satisfies it.
type Warner interface {
	Warnw(msg string, keysAndValues ...interface{})
}

// Authority assigns and checks client order ids for one api category.
type Authority struct {
	category Category
	gen      *Generator
	log      Warner
}

// Option configures an Authority.
type Option func(*Authority)

// WithGenerator replaces the process-wide generator.
func WithGenerator(g *Generator) Option {
	return func(a *Authority) {
		if g != nil {
			a.gen = g
		}
	}
}

// WithLogger replaces the warning sink.
func WithLogger(w Warner) Option {
	return func(a *Authority) {
		if w != nil {
			a.log = w
		}
	}
}

// NewAuthority creates an authority for the given category.
func NewAuthority(category Category, opts ...Option) *Authority {
	a := &Authority{
		category: category,
		gen:      defaultGenerator,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get().With("component", "orderid")
	}
	return a
}

// Category returns the category ids are issued for.
func (a *Authority) Category() Category {
	return a.category
}

// Prefix returns the expected id prefix, e.g. "x-15PC4ZJy".
func (a *Authority) Prefix() string {
	return a.category.Prefix()
}

// Generate mints a new id without touching any request.
func (a *Authority) Generate() string {
	metrics.ClientOrderIDsGenerated.WithLabelValues(string(a.category)).Inc()
	return a.gen.Next(a.category)
}

// Ensure fills *id when it is empty. A caller supplied id is never modified: when it lacks
// the category prefix a single warning is logged and the request goes ahead, the exchange
// has the final word on its validity. params is the full request, logged for context.
//
// Only call this for properties that mint new orders (see PropertyNewClientOrderID).
func (a *Authority) Ensure(property string, id *string, params interface{}) {
	if *id == "" {
		*id = a.Generate()
		return
	}

	expected := a.Prefix()
	if strings.HasPrefix(*id, expected) {
		return
	}

	metrics.ClientOrderIDWarnings.WithLabelValues(string(a.category), property).Inc()
	a.log.Warnw("client order id is missing the expected prefix, generate ids with GenerateNewOrderID",
		"property", property,
		"expected_prefix", expected,
		"value", *id,
		"params", params,
	)
}
