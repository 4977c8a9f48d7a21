package models

import (
	"time"

	"github.com/shopspring/decimal"

	cartmodels "adega/internal/cart/models"
)

// OrderStatus tracks an order handed off to the operator.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusDispatched OrderStatus = "dispatched"
)

// Form is the customer form submitted at checkout.
type Form struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PostalCode   string `json:"postalCode"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// CustomerInfo is the contact block of an order. Email is optional.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

// Address is the delivery address of an order. Complement is optional.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
}

// Order is built at checkout and handed to the confirmation view and the
// messaging channel. It is never stored beyond the single handoff slot.
type Order struct {
	ID                string                `json:"id"`
	Items             []cartmodels.CartItem `json:"items"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	ShippingCost      decimal.Decimal       `json:"shippingCost"`
	ShippingIsFree    bool                  `json:"shippingIsFree"`
	ShippingCity      string                `json:"shippingCity"`
	Total             decimal.Decimal       `json:"total"`
	CustomerInfo      CustomerInfo          `json:"customerInfo"`
	ShippingAddress   Address               `json:"shippingAddress"`
	Status            OrderStatus           `json:"status"`
	CreatedAt         time.Time             `json:"createdAt"`
	EstimatedDelivery *time.Time            `json:"estimatedDelivery,omitempty"`
}
