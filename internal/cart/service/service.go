package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"adega/internal/cart/migration"
	"adega/internal/cart/models"
	"adega/internal/catalog"
	"adega/internal/shipping"
	dErrors "adega/pkg/domain-errors"
	"adega/pkg/platform/sentinel"
)

var postalCodePattern = regexp.MustCompile(`^\d{5}-\d{3}$`)

// Store is the session cart store.
type Store interface {
	GetCart(ctx context.Context) ([]models.CartItem, error)
	SaveCart(ctx context.Context, items []models.CartItem) error
	GetShipping(ctx context.Context) (*models.ShippingSelection, error)
	SaveShipping(ctx context.Context, info models.ShippingSelection) error
	ClearSession(ctx context.Context) error
}

// Catalog resolves products added to the cart.
type Catalog interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
}

// Migrator runs the one-shot legacy migration.
type Migrator interface {
	Run(ctx context.Context) migration.Result
}

// Summary is the cart as shown to the shopper. GrandTotal is only set once a
// valid shipping selection exists.
type Summary struct {
	Items      []models.CartItem         `json:"items"`
	ItemCount  int                       `json:"itemCount"`
	Subtotal   decimal.Decimal           `json:"subtotal"`
	Weight     decimal.Decimal           `json:"weight"`
	Shipping   *models.ShippingSelection `json:"shipping"`
	GrandTotal *decimal.Decimal          `json:"grandTotal,omitempty"`
}

// Service owns the cart state of one tab session. Storage failures never
// surface as errors here: they are logged and the in-memory result returned.
type Service struct {
	store    Store
	catalog  Catalog
	migrator Migrator
	pricer   *shipping.Pricer
	logger   *slog.Logger
}

func New(store Store, catalog Catalog, migrator Migrator, pricer *shipping.Pricer, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		catalog:  catalog,
		migrator: migrator,
		pricer:   pricer,
		logger:   logger,
	}
}

// Init prepares the session: it runs the legacy migration, which is a no-op
// after the first call for a session.
func (s *Service) Init(ctx context.Context) migration.Result {
	return s.migrator.Run(ctx)
}

// Items returns the current cart lines.
func (s *Service) Items(ctx context.Context) []models.CartItem {
	items, err := s.store.GetCart(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "cart unreadable, using empty cart", "error", err)
	}
	return items
}

// Add puts quantity units of a product in the cart, merging with an existing
// line. The merged quantity must stay within the product's stock.
func (s *Service) Add(ctx context.Context, productID string, quantity int) ([]models.CartItem, error) {
	if quantity < 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "quantidade deve ser ao menos 1")
	}
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "produto não encontrado")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao consultar produto")
	}

	items := s.Items(ctx)
	line := models.CartItem{
		ID:       product.ID,
		Name:     product.Name,
		Price:    product.Price,
		Quantity: quantity,
		Image:    product.Image,
		Stock:    product.Stock,
	}
	if i := models.IndexOf(items, product.ID); i >= 0 {
		line.Quantity += items[i].Quantity
		items[i] = line
	} else {
		items = append(items, line)
	}
	if err := line.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeOutOfStock, "quantidade indisponível em estoque")
	}
	s.save(ctx, items)
	return items, nil
}

// UpdateQuantity sets the quantity of an existing line. Values outside
// 1..stock are rejected, never clamped.
func (s *Service) UpdateQuantity(ctx context.Context, productID string, quantity int) ([]models.CartItem, error) {
	items := s.Items(ctx)
	i := models.IndexOf(items, productID)
	if i < 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "item não está no carrinho")
	}
	line := items[i]
	line.Quantity = quantity
	if err := line.Validate(); err != nil {
		if quantity < 1 {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "quantidade deve ser ao menos 1")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeOutOfStock, "quantidade indisponível em estoque")
	}
	items[i] = line
	s.save(ctx, items)
	return items, nil
}

// Remove drops a line. Removing an absent line is a no-op.
func (s *Service) Remove(ctx context.Context, productID string) []models.CartItem {
	items := s.Items(ctx)
	i := models.IndexOf(items, productID)
	if i < 0 {
		return items
	}
	items = append(items[:i], items[i+1:]...)
	s.save(ctx, items)
	return items
}

// Clear empties the cart and forgets the shipping selection.
func (s *Service) Clear(ctx context.Context) {
	if err := s.store.ClearSession(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart session", "error", err)
	}
}

// Shipping returns the stored selection, nil when none or unreadable.
func (s *Service) Shipping(ctx context.Context) *models.ShippingSelection {
	info, err := s.store.GetShipping(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "shipping selection unreadable", "error", err)
	}
	return info
}

// Summary computes totals over the current cart.
func (s *Service) Summary(ctx context.Context) Summary {
	items := s.Items(ctx)
	subtotal := models.Subtotal(items)
	sum := Summary{
		Items:     items,
		ItemCount: models.ItemCount(items),
		Subtotal:  subtotal,
		Weight:    s.pricer.TotalWeight(items),
		Shipping:  s.Shipping(ctx),
	}
	if sum.Shipping != nil && sum.Shipping.IsValid {
		total := subtotal.Add(sum.Shipping.EffectiveCost())
		sum.GrandTotal = &total
	}
	return sum
}

// QuoteShipping prices delivery of the current cart to city and stores the
// selection. Uncovered cities and malformed postal codes produce a selection
// with IsValid false, which checkout refuses.
func (s *Service) QuoteShipping(ctx context.Context, city, postalCode string) (*models.ShippingSelection, error) {
	items := s.Items(ctx)
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeEmptyCart, "carrinho vazio")
	}
	city = strings.TrimSpace(city)
	postalCode = strings.TrimSpace(postalCode)

	sel := s.price(items, models.ShippingSelection{City: city, PostalCode: postalCode})
	sel.IsValid = s.pricer.Covers(city) && postalCodePattern.MatchString(postalCode)
	if err := s.store.SaveShipping(ctx, sel); err != nil {
		s.logger.WarnContext(ctx, "shipping selection not persisted", "error", err)
	}
	return &sel, nil
}

func (s *Service) price(items []models.CartItem, sel models.ShippingSelection) models.ShippingSelection {
	subtotal := models.Subtotal(items)
	sel.IsFree = s.pricer.IsFree(subtotal)
	sel.Cost = s.pricer.Cost(s.pricer.TotalWeight(items), subtotal)
	return sel
}

// save persists items and re-prices a stored shipping selection so the quoted
// cost always matches the cart it was quoted for.
func (s *Service) save(ctx context.Context, items []models.CartItem) {
	if err := s.store.SaveCart(ctx, items); err != nil {
		s.logger.WarnContext(ctx, "cart not persisted", "error", err)
	}
	current := s.Shipping(ctx)
	if current == nil {
		return
	}
	if len(items) == 0 {
		current.IsValid = false
	}
	repriced := s.price(items, *current)
	if err := s.store.SaveShipping(ctx, repriced); err != nil {
		s.logger.WarnContext(ctx, "shipping selection not persisted", "error", err)
	}
}
