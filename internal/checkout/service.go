// Package checkout turns a session cart into an order handed to the store
// operator through the messaging channel.
//
// The sequence is fixed: validate, persist the order for the confirmation
// view, dispatch, clear the session. The order record is written before the
// cart is cleared because the confirmation view reads it; the cart is cleared
// after dispatch regardless of the dispatch outcome so no order can be
// resubmitted from a stale cart.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	cartmodels "adega/internal/cart/models"
	"adega/internal/checkout/message"
	"adega/internal/checkout/models"
	"adega/internal/storage/kv"
	dErrors "adega/pkg/domain-errors"
)

// LastOrderKey is the fixed, session-independent handoff slot read once by
// the confirmation view.
const LastOrderKey = "last-order"

var (
	// ErrEmptyCart sends the shopper away from checkout.
	ErrEmptyCart = dErrors.New(dErrors.CodeEmptyCart, "Seu carrinho está vazio")
	// ErrShippingNotCalculated blocks submission until a valid quote exists.
	ErrShippingNotCalculated = dErrors.New(dErrors.CodeShippingNotCalculated, "Frete não calculado")
)

// ValidationError carries one message per invalid form field.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(slices.Sorted(maps.Keys(e.Fields)), ", ")
}

// Details exposes the per-field messages to the transport layer.
func (e *ValidationError) Details() map[string]string {
	return e.Fields
}

// CartStore is the session cart store.
type CartStore interface {
	GetCart(ctx context.Context) ([]cartmodels.CartItem, error)
	GetShipping(ctx context.Context) (*cartmodels.ShippingSelection, error)
	ClearSession(ctx context.Context) error
}

// Dispatcher hands a formatted order to the external messaging application.
// Dispatch is fire-and-forget: its error is logged and otherwise ignored.
type Dispatcher interface {
	Dispatch(ctx context.Context, order *models.Order, link string) error
}

// Prefill is what the checkout form renders with.
type Prefill struct {
	City          string `json:"city"`
	PostalCode    string `json:"postalCode"`
	ShippingReady bool   `json:"shippingReady"`
	Notice        string `json:"notice,omitempty"`
}

// Result is a dispatched checkout.
type Result struct {
	Order       *models.Order `json:"order"`
	Message     string        `json:"message"`
	DispatchURL string        `json:"dispatchUrl"`
}

// Service orchestrates checkout for one tab session.
type Service struct {
	carts          CartStore
	handoff        *kv.Store
	formatter      *message.Formatter
	dispatcher     Dispatcher
	logger         *slog.Logger
	deliveryWindow time.Duration
	now            func() time.Time
	newOrderID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOrderIDs overrides order id generation.
func WithOrderIDs(newID func() string) Option {
	return func(s *Service) { s.newOrderID = newID }
}

// WithDeliveryWindow sets how far from now the estimated delivery lies. Zero
// leaves orders without an estimate.
func WithDeliveryWindow(d time.Duration) Option {
	return func(s *Service) { s.deliveryWindow = d }
}

// New builds the checkout service. handoff is the tab's storage area, used
// for the LastOrderKey slot.
func New(carts CartStore, handoff *kv.Store, formatter *message.Formatter, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		carts:      carts,
		handoff:    handoff,
		formatter:  formatter,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		newOrderID: NewOrderID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewOrderID returns a short, human-readable order id.
func NewOrderID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PED-" + strings.ToUpper(id[:8])
}

// Begin applies the checkout entry guards. An empty cart yields ErrEmptyCart;
// missing or invalid shipping still yields a prefill, flagged not ready.
func (s *Service) Begin(ctx context.Context) (*Prefill, error) {
	items, _ := s.carts.GetCart(ctx)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	shipping, _ := s.carts.GetShipping(ctx)
	prefill := &Prefill{}
	if shipping != nil {
		prefill.City = shipping.City
		prefill.PostalCode = shipping.PostalCode
	}
	if shipping == nil || !shipping.IsValid {
		prefill.Notice = ErrShippingNotCalculated.Error()
		return prefill, nil
	}
	prefill.ShippingReady = true
	return prefill, nil
}

// Submit validates the form and, when everything holds, records the order,
// dispatches it and clears the session.
func (s *Service) Submit(ctx context.Context, form models.Form) (*Result, error) {
	items, err := s.carts.GetCart(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "cart unreadable at checkout", "error", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	shipping, err := s.carts.GetShipping(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "shipping unreadable at checkout", "error", err)
	}
	if shipping == nil || !shipping.IsValid {
		return nil, ErrShippingNotCalculated
	}

	form = NormalizeForm(form)
	if fields := ValidateForm(form); len(fields) > 0 {
		return nil, dErrors.Wrap(&ValidationError{Fields: fields}, dErrors.CodeValidation, "Verifique os campos do formulário")
	}

	order := s.buildOrder(items, *shipping, form)
	if err := message.ValidateOrderData(order); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pedido incompleto")
	}

	if err := s.handoff.Set(ctx, LastOrderKey, order); err != nil {
		// Without the handoff record the confirmation view has nothing to
		// show, so the cart stays intact for another attempt.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "não foi possível registrar o pedido")
	}

	text := s.formatter.Format(order)
	link := s.formatter.DeepLink(text)
	if err := s.dispatcher.Dispatch(ctx, order, link); err != nil {
		s.logger.WarnContext(ctx, "order dispatch failed, continuing",
			"order_id", order.ID,
			"error", err,
		)
	} else {
		order.Status = models.OrderStatusDispatched
		if err := s.handoff.Set(ctx, LastOrderKey, order); err != nil {
			s.logger.WarnContext(ctx, "failed to record order dispatch", "order_id", order.ID, "error", err)
		}
	}

	if err := s.carts.ClearSession(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear session after checkout",
			"order_id", order.ID,
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "order dispatched",
		"order_id", order.ID,
		"items", len(order.Items),
		"total", order.Total.StringFixed(2),
	)
	return &Result{Order: order, Message: text, DispatchURL: link}, nil
}

// LastOrder consumes the handoff slot: the order is returned once and then
// removed.
func (s *Service) LastOrder(ctx context.Context) (*models.Order, error) {
	order, err := kv.Get[*models.Order](ctx, s.handoff, LastOrderKey, nil)
	if err != nil && !errors.Is(err, kv.ErrCorrupted) {
		s.logger.WarnContext(ctx, "order handoff unreadable", "error", err)
	}
	if order == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "nenhum pedido recente")
	}
	if err := s.handoff.Delete(ctx, LastOrderKey); err != nil {
		s.logger.WarnContext(ctx, "failed to consume order handoff", "error", err)
	}
	return order, nil
}

func (s *Service) buildOrder(items []cartmodels.CartItem, shipping cartmodels.ShippingSelection, form models.Form) *models.Order {
	now := s.now()
	subtotal := cartmodels.Subtotal(items)
	shippingCost := shipping.EffectiveCost()

	order := &models.Order{
		ID:             s.newOrderID(),
		Items:          items,
		Subtotal:       subtotal,
		ShippingCost:   shippingCost,
		ShippingIsFree: shipping.IsFree,
		ShippingCity:   shipping.City,
		Total:          subtotal.Add(shippingCost),
		CustomerInfo: models.CustomerInfo{
			Name:  form.Name,
			Email: form.Email,
			Phone: form.Phone,
		},
		ShippingAddress: models.Address{
			Street:       form.Street,
			Number:       form.Number,
			Complement:   form.Complement,
			Neighborhood: form.Neighborhood,
			City:         form.City,
			State:        form.State,
			PostalCode:   form.PostalCode,
		},
		Status:    models.OrderStatusPending,
		CreatedAt: now,
	}
	if s.deliveryWindow > 0 {
		eta := now.Add(s.deliveryWindow)
		order.EstimatedDelivery = &eta
	}
	return order
}
