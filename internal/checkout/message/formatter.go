// Package message renders an order as the text sent to the store operator
// and builds the messaging deep link that carries it.
package message

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"adega/internal/checkout/models"
)

// ErrInvalidOrder is returned by ValidateOrderData.
var ErrInvalidOrder = errors.New("invalid order data")

// FreeShippingLabel replaces the shipping amount when delivery is free.
const FreeShippingLabel = "Frete grátis"

// Formatter holds the fixed parts of the message and link.
type Formatter struct {
	baseURL     string
	destination string
	deliveryETA string
	location    *time.Location
}

// NewFormatter builds a Formatter. Delivery clock times are rendered in loc;
// nil means UTC.
func NewFormatter(baseURL, destination, deliveryETA string, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{
		baseURL:     strings.TrimRight(baseURL, "/"),
		destination: destination,
		deliveryETA: deliveryETA,
		location:    loc,
	}
}

// Format renders the order summary.
func (f *Formatter) Format(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Novo pedido #%s*\n\n", order.ID)

	b.WriteString("*Itens:*\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%dx %s - %s\n", item.Quantity, item.Name, money(item.LineTotal()))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "*Subtotal:* %s\n", money(order.Subtotal))
	if order.ShippingIsFree {
		fmt.Fprintf(&b, "*Frete:* %s\n", FreeShippingLabel)
	} else {
		fmt.Fprintf(&b, "*Frete:* %s\n", money(order.ShippingCost))
	}
	fmt.Fprintf(&b, "*Total:* %s\n", money(order.Total))

	b.WriteString("\n")
	if order.EstimatedDelivery != nil {
		fmt.Fprintf(&b, "*Previsão de entrega:* %s (até %s)\n", f.deliveryETA, order.EstimatedDelivery.In(f.location).Format("15:04"))
	} else {
		fmt.Fprintf(&b, "*Previsão de entrega:* %s\n", f.deliveryETA)
	}

	c := order.CustomerInfo
	b.WriteString("\n*Cliente:*\n")
	fmt.Fprintf(&b, "Nome: %s\n", c.Name)
	fmt.Fprintf(&b, "Telefone: %s\n", c.Phone)
	if c.Email != "" {
		fmt.Fprintf(&b, "E-mail: %s\n", c.Email)
	}

	a := order.ShippingAddress
	b.WriteString("\n*Endereço de entrega:*\n")
	fmt.Fprintf(&b, "%s, %s\n", a.Street, a.Number)
	if a.Complement != "" {
		fmt.Fprintf(&b, "Complemento: %s\n", a.Complement)
	}
	fmt.Fprintf(&b, "%s - %s/%s\n", a.Neighborhood, a.City, a.State)
	fmt.Fprintf(&b, "CEP: %s", a.PostalCode)

	return b.String()
}

// DeepLink percent-encodes text into the messaging URL for the destination.
func (f *Formatter) DeepLink(text string) string {
	return DeepLink(f.baseURL, f.destination, text)
}

// DeepLink builds <base>/<destination>?text=<text>. Spaces are encoded as %20,
// not '+', since messaging apps read the text literally.
func DeepLink(baseURL, destination, text string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(destination) + "?text=" + encoded
}

// ValidateOrderData checks the fields the message cannot do without. Email
// and address complement are optional and never checked.
func ValidateOrderData(order *models.Order) error {
	if order == nil {
		return fmt.Errorf("%w: missing order", ErrInvalidOrder)
	}
	var missing []string
	if strings.TrimSpace(order.ID) == "" {
		missing = append(missing, "id")
	}
	if len(order.Items) == 0 {
		missing = append(missing, "items")
	}
	if strings.TrimSpace(order.CustomerInfo.Name) == "" {
		missing = append(missing, "customerInfo.name")
	}
	if strings.TrimSpace(order.CustomerInfo.Phone) == "" {
		missing = append(missing, "customerInfo.phone")
	}
	if strings.TrimSpace(order.ShippingAddress.PostalCode) == "" {
		missing = append(missing, "shippingAddress.postalCode")
	}
	if strings.TrimSpace(order.ShippingAddress.City) == "" {
		missing = append(missing, "shippingAddress.city")
	}
	if strings.TrimSpace(order.ShippingCity) == "" {
		missing = append(missing, "shippingCity")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidOrder, strings.Join(missing, ", "))
	}
	return nil
}

func money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}
