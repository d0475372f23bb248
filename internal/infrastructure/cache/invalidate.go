package cache

import (
	"context"

	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/events"
	"bakehouse/pkg/logger"
)

// InvalidatingPublisher forwards events and, for stock-changing ones, drops the
// cached dashboard once the surrounding transaction has committed.
type InvalidatingPublisher struct {
	next      events.Publisher
	committer tx.AfterCommitter
	cache     Invalidator
}

var _ events.Publisher = (*InvalidatingPublisher)(nil)

func NewInvalidatingPublisher(next events.Publisher, committer tx.AfterCommitter, cache Invalidator) *InvalidatingPublisher {
	return &InvalidatingPublisher{next: next, committer: committer, cache: cache}
}

func (p *InvalidatingPublisher) Publish(ctx context.Context, event events.Event) error {
	if err := p.next.Publish(ctx, event); err != nil {
		return err
	}
	if !events.IsStockChange(event.Type) {
		return nil
	}

	p.committer.AfterCommit(ctx, func(ctx context.Context) {
		if err := p.cache.Invalidate(ctx); err != nil {
			logger.Warn(ctx, "dashboard cache invalidation failed", "event", event.Type, "error", err)
		}
	})
	return nil
}
