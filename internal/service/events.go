package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/model"
)

// announce publishes e for live views. Delivery is best effort.
func announce(ctx context.Context, n Notifier, log zerolog.Logger, e model.ScheduleEvent) {
	if n == nil {
		return
	}
	if err := n.PublishScheduleEvent(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Int("branch_id", e.BranchID).Msg("Failed to publish schedule event")
	}
}
