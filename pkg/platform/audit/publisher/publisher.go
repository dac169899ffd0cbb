// Package publisher connects domain audit emission to a Store.
//
// The default mode is synchronous: Emit returns only after the event is
// appended, which is the fail-closed behavior compliance events need. An
// optional async buffer exists for high-volume operational events where
// dropping under pressure is acceptable.
package publisher

import (
	"context"
	"sync"
	"time"

	audit "assetgate/pkg/platform/audit"
	"assetgate/pkg/platform/audit/worker"
)

// Publisher persists emitted events to an audit store.
type Publisher struct {
	store audit.Store

	inbox  chan audit.Event
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to buffered async persistence.
// Events are dropped when the buffer is full; do not use for events with
// regulatory significance.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// NewPublisher creates a publisher backed by the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox)
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
		}()
	}

	return p
}

// Emit records an audit event. In sync mode the error reflects persistence;
// in async mode Emit never blocks and a full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.CategoryFor(audit.AuditEvent(event.Action))
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		// Buffer full: drop rather than block the caller.
	}
	return nil
}

// List returns the audit trail for one account.
func (p *Publisher) List(ctx context.Context, accountID string) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}

// Close drains any buffered events and stops the background worker.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		// Drain what is already buffered before cancelling the worker.
		for {
			select {
			case event := <-p.inbox:
				_ = p.store.Append(context.Background(), event)
			default:
				p.cancel()
				<-p.done
				return
			}
		}
	})
}
