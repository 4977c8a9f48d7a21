package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adega/internal/checkout/models"
	"adega/internal/platform/metrics"
	"adega/internal/tab"
	"adega/internal/transport/http/shared"
	dErrors "adega/pkg/domain-errors"
	"adega/pkg/requestcontext"
)

// Opener opens the tab a request belongs to.
type Opener interface {
	Open(ctx context.Context, tabID, deviceID string) (*tab.Tab, error)
}

// Handler serves checkout and the order confirmation handoff.
type Handler struct {
	opener  Opener
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(opener Opener, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{opener: opener, metrics: m, logger: logger}
}

// Register registers the checkout routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/checkout", h.handleBegin)
	r.Post("/checkout", h.handleSubmit)
	r.Get("/orders/last", h.handleLastOrder)
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

func (h *Handler) handleBegin(w http.ResponseWriter, r *http.Request) {
	t, ok := h.open(w, r)
	if !ok {
		return
	}
	prefill, err := t.Checkout.Begin(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, prefill)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var form models.Form
	if err := shared.DecodeJSON(r, &form); err != nil {
		h.metrics.IncrementCheckout("bad_request")
		shared.WriteError(w, err)
		return
	}

	t, ok := h.open(w, r)
	if !ok {
		return
	}
	result, err := t.Checkout.Submit(ctx, form)
	if err != nil {
		outcome := string(dErrors.CodeInternal)
		if de, ok := dErrors.As(err); ok {
			outcome = string(de.Code)
		}
		h.metrics.IncrementCheckout(outcome)
		if outcome == string(dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "checkout failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		shared.WriteError(w, err)
		return
	}

	h.metrics.IncrementCheckout("dispatched")
	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleLastOrder(w http.ResponseWriter, r *http.Request) {
	t, ok := h.open(w, r)
	if !ok {
		return
	}
	order, err := t.Checkout.LastOrder(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, order)
}
