package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartItem is one product line in a session cart. ID is the product id and is
// unique within a cart.
type CartItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
	Stock    int             `json:"stock"`
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate enforces the cart line invariants: an id, a non-negative price and
// a quantity between 1 and the offered stock.
func (i CartItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("cart item without id")
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("item %s: negative price %s", i.ID, i.Price)
	}
	if i.Quantity < 1 {
		return fmt.Errorf("item %s: quantity %d below 1", i.ID, i.Quantity)
	}
	if i.Quantity > i.Stock {
		return fmt.Errorf("item %s: quantity %d exceeds stock %d", i.ID, i.Quantity, i.Stock)
	}
	return nil
}

// ShippingSelection is the priced delivery choice for a session. Checkout
// refuses to proceed unless IsValid is set.
type ShippingSelection struct {
	Cost       decimal.Decimal `json:"cost"`
	IsFree     bool            `json:"isFree"`
	City       string          `json:"city"`
	PostalCode string          `json:"postalCode"`
	IsValid    bool            `json:"isValid"`
}

// Validate rejects a selection that could not have come from the pricer.
func (s ShippingSelection) Validate() error {
	if s.Cost.IsNegative() {
		return fmt.Errorf("negative shipping cost %s", s.Cost)
	}
	return nil
}

// EffectiveCost is zero for free shipping and Cost otherwise.
func (s ShippingSelection) EffectiveCost() decimal.Decimal {
	if s.IsFree {
		return decimal.Zero
	}
	return s.Cost
}

// Subtotal is the sum of line totals.
func Subtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount is the number of bottles in the cart.
func ItemCount(items []CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// IndexOf returns the position of the line with the given id, or -1.
func IndexOf(items []CartItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
