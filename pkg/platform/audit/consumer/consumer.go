// Package consumer archives audit events from Kafka into an audit store.
//
// It is the read side of the Kafka audit pipeline: the server produces
// events to the topic, and the archiver consumes them into long-term
// storage. Malformed records are logged and skipped so a bad message never
// blocks the partition; store failures are retried by not committing past
// them.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	id "assetgate/pkg/domain"
	audit "assetgate/pkg/platform/audit"
)

type Consumer struct {
	client *kgo.Client
	store  audit.Store
	logger *slog.Logger
}

// New joins the consumer group and subscribes to the audit topic.
func New(brokers []string, topic, group string, store audit.Store, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, store: store, logger: logger}, nil
}

// Run polls until the context is canceled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("audit fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(record *kgo.Record) {
			c.handle(ctx, record)
		})
	}
}

// payload mirrors the producer's wire format.
type payload struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Account   string `json:"account"`
	Actor     string `json:"actor"`
	Field     string `json:"field"`
	Value     string `json:"value"`
	Amount    int64  `json:"amount"`
	RequestID string `json:"request_id"`
}

func (c *Consumer) handle(ctx context.Context, record *kgo.Record) {
	var p payload
	if err := json.Unmarshal(record.Value, &p); err != nil {
		c.logger.Error("skipping malformed audit record",
			"key", string(record.Key),
			"offset", record.Offset,
			"error", err,
		)
		return
	}

	event := audit.Event{
		Category:  audit.EventCategory(p.Category),
		Action:    p.Action,
		Field:     p.Field,
		Value:     p.Value,
		Amount:    p.Amount,
		RequestID: p.RequestID,
	}

	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	} else {
		event.Timestamp = record.Timestamp
	}
	// The null account is a legitimate value here (policy-level events), so
	// parse leniently rather than through the strict domain parsers.
	if account, err := uuid.Parse(p.Account); err == nil {
		event.Account = id.AccountID(account)
	}
	if actor, err := uuid.Parse(p.Actor); err == nil {
		event.Actor = id.ActorID(actor)
	}

	if err := c.store.Append(ctx, event); err != nil {
		c.logger.Error("failed to archive audit event",
			"action", event.Action,
			"offset", record.Offset,
			"error", err,
		)
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}
