package vacation

import (
	"context"
	"time"
)

// ConsumptionEvent is published after a draw-down commits.
type ConsumptionEvent struct {
	UserID      UserID
	Year        int
	Requested   Days
	Allocations []Allocation
	At          time.Time
}

// Publisher delivers consumption events to downstream systems (payroll).
// Implementations: events/amqp.
type Publisher interface {
	PublishConsumption(ctx context.Context, event ConsumptionEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishConsumption(context.Context, ConsumptionEvent) error { return nil }
