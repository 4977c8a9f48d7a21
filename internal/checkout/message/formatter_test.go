package message

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartmodels "adega/internal/cart/models"
	"adega/internal/checkout/models"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID: "PED-1A2B3C4D",
		Items: []cartmodels.CartItem{
			{ID: "tinto", Name: "Vinho Tinto", Price: decimal.RequireFromString("50"), Quantity: 2, Stock: 5},
			{ID: "gin", Name: "Gin & Tônica", Price: decimal.RequireFromString("12.5"), Quantity: 1, Stock: 5},
		},
		Subtotal:       decimal.RequireFromString("112.5"),
		ShippingCost:   decimal.RequireFromString("25"),
		ShippingCity:   "São Paulo",
		Total:          decimal.RequireFromString("137.5"),
		CustomerInfo:   models.CustomerInfo{Name: "Maria Silva", Phone: "(11) 98765-4321"},
		ShippingAddress: models.Address{
			Street: "Rua Augusta", Number: "100", Neighborhood: "Consolação",
			City: "São Paulo", State: "SP", PostalCode: "01305-000",
		},
		Status: models.OrderStatusPending,
	}
}

func newFormatter() *Formatter {
	return NewFormatter("https://wa.me/", "5511999999999", "Entrega em até 2 horas", time.FixedZone("BRT", -3*3600))
}

func TestFormat(t *testing.T) {
	t.Run("renders every section with two decimals", func(t *testing.T) {
		text := newFormatter().Format(sampleOrder())

		assert.Contains(t, text, "*Novo pedido #PED-1A2B3C4D*")
		assert.Contains(t, text, "2x Vinho Tinto - R$ 100.00")
		assert.Contains(t, text, "1x Gin & Tônica - R$ 12.50")
		assert.Contains(t, text, "*Subtotal:* R$ 112.50")
		assert.Contains(t, text, "*Frete:* R$ 25.00")
		assert.Contains(t, text, "*Total:* R$ 137.50")
		assert.Contains(t, text, "*Previsão de entrega:* Entrega em até 2 horas\n")
		assert.Contains(t, text, "Nome: Maria Silva")
		assert.Contains(t, text, "Telefone: (11) 98765-4321")
		assert.Contains(t, text, "Rua Augusta, 100")
		assert.Contains(t, text, "Consolação - São Paulo/SP")
		assert.Contains(t, text, "CEP: 01305-000")
	})

	t.Run("omits optional lines when absent", func(t *testing.T) {
		text := newFormatter().Format(sampleOrder())
		assert.NotContains(t, text, "E-mail:")
		assert.NotContains(t, text, "Complemento:")
	})

	t.Run("includes optional lines when present", func(t *testing.T) {
		order := sampleOrder()
		order.CustomerInfo.Email = "maria@example.com"
		order.ShippingAddress.Complement = "Apto 42"
		text := newFormatter().Format(order)
		assert.Contains(t, text, "E-mail: maria@example.com")
		assert.Contains(t, text, "Complemento: Apto 42")
	})

	t.Run("free shipping uses the fixed label", func(t *testing.T) {
		order := sampleOrder()
		order.ShippingIsFree = true
		order.ShippingCost = decimal.Zero
		text := newFormatter().Format(order)
		assert.Contains(t, text, "*Frete:* Frete grátis")
		assert.NotContains(t, text, "*Frete:* R$")
	})

	t.Run("renders the estimated clock time in the store zone", func(t *testing.T) {
		order := sampleOrder()
		eta := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
		order.EstimatedDelivery = &eta
		text := newFormatter().Format(order)
		assert.Contains(t, text, "Entrega em até 2 horas (até 15:30)")
	})
}

func TestDeepLink(t *testing.T) {
	text := "*Pedido* 1x Gin & Tônica\nTotal: R$ 10.00 + frete?"
	link := newFormatter().DeepLink(text)

	require.True(t, strings.HasPrefix(link, "https://wa.me/5511999999999?text="))
	assert.NotContains(t, link, " ")
	assert.NotContains(t, strings.TrimPrefix(link, "https://wa.me/5511999999999?text="), "+")
	assert.Contains(t, link, "%20")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, text, parsed.Query().Get("text"))
}

func TestValidateOrderData(t *testing.T) {
	t.Run("complete order passes", func(t *testing.T) {
		assert.NoError(t, ValidateOrderData(sampleOrder()))
	})

	t.Run("optional fields do not matter", func(t *testing.T) {
		order := sampleOrder()
		order.CustomerInfo.Email = ""
		order.ShippingAddress.Complement = ""
		assert.NoError(t, ValidateOrderData(order))
	})

	tests := []struct {
		name   string
		mutate func(*models.Order)
		field  string
	}{
		{"missing id", func(o *models.Order) { o.ID = "" }, "id"},
		{"no items", func(o *models.Order) { o.Items = nil }, "items"},
		{"missing name", func(o *models.Order) { o.CustomerInfo.Name = " " }, "customerInfo.name"},
		{"missing phone", func(o *models.Order) { o.CustomerInfo.Phone = "" }, "customerInfo.phone"},
		{"missing postal code", func(o *models.Order) { o.ShippingAddress.PostalCode = "" }, "shippingAddress.postalCode"},
		{"missing address city", func(o *models.Order) { o.ShippingAddress.City = "" }, "shippingAddress.city"},
		{"missing shipping city", func(o *models.Order) { o.ShippingCity = "" }, "shippingCity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := sampleOrder()
			tt.mutate(order)
			err := ValidateOrderData(order)
			require.ErrorIs(t, err, ErrInvalidOrder)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("nil order", func(t *testing.T) {
		assert.ErrorIs(t, ValidateOrderData(nil), ErrInvalidOrder)
	})
}
