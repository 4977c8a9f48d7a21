// Package catalog is the product lookup the cart depends on for display data,
// price and stock. The real catalog lives in an external database; the static
// catalog here serves local runs and tests.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"adega/pkg/platform/sentinel"
)

// Product is one sellable bottle.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Stock    int             `json:"stock"`
}

// Static is an in-memory, read-mostly catalog.
type Static struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewStatic(products []Product) *Static {
	c := &Static{products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// Product returns the product with id, or sentinel.ErrNotFound.
func (c *Static) Product(_ context.Context, id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %s: %w", id, sentinel.ErrNotFound)
	}
	return p, nil
}

// List returns every product ordered by name.
func (c *Static) List(_ context.Context) []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type seedFile struct {
	Products []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Category string `yaml:"category"`
		Price    string `yaml:"price"`
		Image    string `yaml:"image"`
		Stock    int    `yaml:"stock"`
	} `yaml:"products"`
}

// Parse reads a YAML seed document.
func Parse(data []byte) ([]Product, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	products := make([]Product, 0, len(seed.Products))
	for _, p := range seed.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("product %s: invalid price %q: %w", p.ID, p.Price, err)
		}
		if p.ID == "" || price.IsNegative() || p.Stock < 0 {
			return nil, fmt.Errorf("product %q: id, price and stock must be set and non-negative", p.ID)
		}
		products = append(products, Product{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Price:    price,
			Image:    p.Image,
			Stock:    p.Stock,
		})
	}
	return products, nil
}

// LoadFile builds a Static catalog from a YAML seed file. An empty path
// yields the built-in demo assortment.
func LoadFile(path string) (*Static, error) {
	if path == "" {
		return NewStatic(DemoProducts()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	products, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewStatic(products), nil
}

// DemoProducts is a small assortment for local runs.
func DemoProducts() []Product {
	return []Product{
		{ID: "vinho-malbec-reserva", Name: "Vinho Malbec Reserva 750ml", Category: "vinhos", Price: decimal.RequireFromString("89.90"), Stock: 12},
		{ID: "espumante-brut", Name: "Espumante Brut 750ml", Category: "espumantes", Price: decimal.RequireFromString("64.50"), Stock: 8},
		{ID: "cachaca-ouro", Name: "Cachaça Ouro 700ml", Category: "destilados", Price: decimal.RequireFromString("45.00"), Stock: 20},
		{ID: "gin-london-dry", Name: "Gin London Dry 750ml", Category: "destilados", Price: decimal.RequireFromString("129.00"), Stock: 5},
		{ID: "whisky-12-anos", Name: "Whisky 12 Anos 1L", Category: "destilados", Price: decimal.RequireFromString("219.90"), Stock: 3},
	}
}
