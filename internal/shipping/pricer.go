// Package shipping prices home delivery by weight with a free-shipping
// threshold. Everything here is pure: no storage, no clock.
package shipping

import (
	"time"

	"github.com/shopspring/decimal"

	"adega/internal/cart/models"
	textutil "adega/pkg/platform/strings"
)

// Config is the delivery price table and coverage.
type Config struct {
	WeightPerBottle       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	BaseCost              decimal.Decimal
	IncludedWeight        decimal.Decimal
	PerKgCost             decimal.Decimal
	DeliveryETA           string
	DeliveryWindow        time.Duration
	Municipalities        []string
}

// DefaultConfig is the storefront's delivery table.
var DefaultConfig = Config{
	WeightPerBottle:       decimal.RequireFromString("1.5"),
	FreeShippingThreshold: decimal.RequireFromString("200.00"),
	BaseCost:              decimal.RequireFromString("15.00"),
	IncludedWeight:        decimal.RequireFromString("1.5"),
	PerKgCost:             decimal.RequireFromString("5.00"),
	DeliveryETA:           "Entrega em até 2 horas",
	DeliveryWindow:        2 * time.Hour,
	Municipalities: []string{
		"São Paulo",
		"Guarulhos",
		"Osasco",
		"Santo André",
		"São Bernardo do Campo",
		"São Caetano do Sul",
		"Diadema",
		"Barueri",
		"Carapicuíba",
		"Taboão da Serra",
	},
}

// Info is the public shipping configuration shown next to the cart.
type Info struct {
	DeliveryETA           string          `json:"deliveryEta"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	BaseCost              decimal.Decimal `json:"baseCost"`
	WeightPerBottle       decimal.Decimal `json:"weightPerBottle"`
	IncludedWeight        decimal.Decimal `json:"includedWeight"`
	PerKgCost             decimal.Decimal `json:"perKgCost"`
	Municipalities        []string        `json:"municipalities"`
}

// Pricer applies a Config.
type Pricer struct {
	cfg Config
}

// NewPricer applies cfg. Municipalities spelled twice (accents or case aside)
// are listed once.
func NewPricer(cfg Config) *Pricer {
	cfg.Municipalities = textutil.DedupeFolded(cfg.Municipalities)
	return &Pricer{cfg: cfg}
}

// Config returns the table the pricer applies.
func (p *Pricer) Config() Config {
	return p.cfg
}

// TotalWeight is the bottle count times the weight per bottle, in kg.
func (p *Pricer) TotalWeight(items []models.CartItem) decimal.Decimal {
	return decimal.NewFromInt(int64(models.ItemCount(items))).Mul(p.cfg.WeightPerBottle)
}

// Cost prices a delivery. A subtotal at or above the threshold ships free;
// otherwise the base cost covers the included weight and each started
// kilogram beyond it costs PerKgCost.
func (p *Pricer) Cost(weight, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.cfg.FreeShippingThreshold) {
		return decimal.Zero
	}
	extra := decimal.Max(decimal.Zero, weight.Sub(p.cfg.IncludedWeight)).Ceil()
	return p.cfg.BaseCost.Add(extra.Mul(p.cfg.PerKgCost))
}

// IsFree reports whether subtotal reaches the free shipping threshold.
func (p *Pricer) IsFree(subtotal decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(p.cfg.FreeShippingThreshold)
}

// Info returns the static configuration.
func (p *Pricer) Info() Info {
	return Info{
		DeliveryETA:           p.cfg.DeliveryETA,
		FreeShippingThreshold: p.cfg.FreeShippingThreshold,
		BaseCost:              p.cfg.BaseCost,
		WeightPerBottle:       p.cfg.WeightPerBottle,
		IncludedWeight:        p.cfg.IncludedWeight,
		PerKgCost:             p.cfg.PerKgCost,
		Municipalities:        append([]string(nil), p.cfg.Municipalities...),
	}
}

// Covers reports whether city is a delivered municipality, ignoring case and
// accents ("sao paulo" matches "São Paulo").
func (p *Pricer) Covers(city string) bool {
	if textutil.Fold(city) == "" {
		return false
	}
	for _, m := range p.cfg.Municipalities {
		if textutil.EqualFold(m, city) {
			return true
		}
	}
	return false
}

var defaultPricer = NewPricer(DefaultConfig)

// TotalWeight applies DefaultConfig.
func TotalWeight(items []models.CartItem) decimal.Decimal {
	return defaultPricer.TotalWeight(items)
}

// Cost applies DefaultConfig.
func Cost(weight, subtotal decimal.Decimal) decimal.Decimal {
	return defaultPricer.Cost(weight, subtotal)
}

// ShippingInfo returns DefaultConfig as Info.
func ShippingInfo() Info {
	return defaultPricer.Info()
}
