package engine

import (
	"context"
	"fmt"

	"github.com/roach88/replicon/internal/queue"
)

// drainOrder is the order topics are emptied in on each round. Requests
// come first so that the apply batches they publish are handled in the
// same round.
var drainOrder = []string{queue.TopicReconcileRequest, queue.TopicDriftCheck, queue.TopicReplicationApply}

// Drain handles every message queued on broker in the calling goroutine,
// including messages published while draining, and returns how many were
// handled. observe, if not nil, sees each message before it is handled.
// The first handler error stops the drain.
func (s *Service) Drain(ctx context.Context, broker *queue.MemoryBroker, observe func(queue.Message)) (int, error) {
	handled := 0
	for {
		progressed := false
		for _, topic := range drainOrder {
			c := broker.Consumer(topic)
			for broker.Len(topic) > 0 {
				m, err := c.Receive(ctx)
				if err != nil {
					return handled, err
				}
				if observe != nil {
					observe(m)
				}
				if err := s.Handle(ctx, m); err != nil {
					return handled, fmt.Errorf("handle %s message: %w", topic, err)
				}
				handled++
				progressed = true
			}
		}
		if !progressed {
			return handled, nil
		}
	}
}
