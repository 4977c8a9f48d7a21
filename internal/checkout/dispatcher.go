package checkout

import (
	"context"
	"log/slog"

	"adega/internal/checkout/models"
)

// LinkDispatcher leaves the hand-off to the shopper's browser, which follows
// the deep link returned by Submit. It only records that the link was issued.
type LinkDispatcher struct {
	logger *slog.Logger
}

// NewLinkDispatcher returns a dispatcher that logs issued links.
func NewLinkDispatcher(logger *slog.Logger) *LinkDispatcher {
	return &LinkDispatcher{logger: logger}
}

func (d *LinkDispatcher) Dispatch(ctx context.Context, order *models.Order, link string) error {
	d.logger.InfoContext(ctx, "dispatch link issued",
		"order_id", order.ID,
		"link_length", len(link),
	)
	return nil
}
