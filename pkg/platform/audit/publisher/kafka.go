package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "assetgate/pkg/platform/audit"
)

// Kafka publishes audit events to a Kafka topic for downstream consumers
// (SIEM, long-term archival). Produces are synchronous: the caller learns
// whether the broker accepted the event.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects to the brokers and ensures the audit topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Kafka{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	topics, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, 1, -1, nil, topic); err != nil {
		return fmt.Errorf("create audit topic %q: %w", topic, err)
	}
	return nil
}

type kafkaEvent struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Account   string `json:"account"`
	Actor     string `json:"actor,omitempty"`
	Field     string `json:"field,omitempty"`
	Value     string `json:"value,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Emit produces the event keyed by account so per-account ordering is
// preserved within a partition.
func (k *Kafka) Emit(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(kafkaEvent{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Action:    event.Action,
		Account:   event.Account.String(),
		Actor:     actorValue(event),
		Field:     event.Field,
		Value:     event.Value,
		Amount:    event.Amount,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.Account.String()),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func actorValue(event audit.Event) string {
	if event.Actor.IsNil() {
		return ""
	}
	return event.Actor.String()
}

// Close flushes outstanding produces and releases the client.
func (k *Kafka) Close() {
	k.client.Close()
}
