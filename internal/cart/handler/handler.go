package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adega/internal/cart/models"
	"adega/internal/cart/service"
	"adega/internal/shipping"
	"adega/internal/tab"
	"adega/internal/transport/http/shared"
	dErrors "adega/pkg/domain-errors"
	"adega/pkg/requestcontext"
)

// Opener opens the tab a request belongs to.
type Opener interface {
	Open(ctx context.Context, tabID, deviceID string) (*tab.Tab, error)
}

// Handler serves the cart and shipping endpoints.
type Handler struct {
	opener Opener
	pricer *shipping.Pricer
	logger *slog.Logger
}

func New(opener Opener, pricer *shipping.Pricer, logger *slog.Logger) *Handler {
	return &Handler{opener: opener, pricer: pricer, logger: logger}
}

// Register registers the cart routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cart", h.handleGetCart)
	r.Delete("/cart", h.handleClearCart)
	r.Post("/cart/items", h.handleAddItem)
	r.Patch("/cart/items/{id}", h.handleUpdateItem)
	r.Delete("/cart/items/{id}", h.handleRemoveItem)
	r.Get("/shipping/info", h.handleShippingInfo)
	r.Post("/shipping/quote", h.handleQuoteShipping)
}

// AddItemRequest adds quantity units of a catalog product.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest sets a line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// QuoteRequest asks for a delivery quote.
type QuoteRequest struct {
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// CartResponse is the cart summary plus the migration outcome of the request
// that first opened the session.
type CartResponse struct {
	service.Summary
	Notices []string `json:"notices,omitempty"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) (*tab.Tab, bool) {
	ctx := r.Context()
	t, err := h.opener.Open(ctx, requestcontext.TabID(ctx), requestcontext.DeviceID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to open tab",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return nil, false
	}
	return t, true
}

func (h *Handler) writeSummary(w http.ResponseWriter, r *http.Request, t *tab.Tab, status int) {
	resp := CartResponse{Summary: t.Cart.Summary(r.Context())}
	if !t.Migration.AlreadyMigrated {
		resp.Notices = t.Migration.Errors
	}
	shared.WriteJSON(w, status, resp)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	t, ok := h.open(w, r)
	if !ok {
		return
	}
	h.writeSummary(w, r, t, http.StatusOK)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	t, ok := h.open(w, r)
	if !ok {
		return
	}
	t.Cart.Clear(r.Context())
	h.writeSummary(w, r, t, http.StatusOK)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.ProductID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "productId é obrigatório"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	t, ok := h.open(w, r)
	if !ok {
		return
	}
	if _, err := t.Cart.Add(r.Context(), req.ProductID, req.Quantity); err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeSummary(w, r, t, http.StatusCreated)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	t, ok := h.open(w, r)
	if !ok {
		return
	}
	if _, err := t.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity); err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeSummary(w, r, t, http.StatusOK)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	t, ok := h.open(w, r)
	if !ok {
		return
	}
	t.Cart.Remove(r.Context(), chi.URLParam(r, "id"))
	h.writeSummary(w, r, t, http.StatusOK)
}

func (h *Handler) handleShippingInfo(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, h.pricer.Info())
}

// QuoteResponse is the stored selection plus the cart totals it applies to.
type QuoteResponse struct {
	Selection *models.ShippingSelection `json:"selection"`
	Summary   service.Summary           `json:"summary"`
}

func (h *Handler) handleQuoteShipping(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	t, ok := h.open(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sel, err := t.Cart.QuoteShipping(ctx, req.City, req.PostalCode)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, QuoteResponse{Selection: sel, Summary: t.Cart.Summary(ctx)})
}
