package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"smarttracing/internal/platform/metrics"
)

// Producer is the part of *kgo.Client the Kafka publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher writes each event as one JSON record keyed by organization
// id, so all events of an organization land on the same partition in order.
type KafkaPublisher struct {
	producer Producer
	topic    string
	metrics  *metrics.Metrics
}

var _ Publisher = (*KafkaPublisher)(nil)

type KafkaOption func(*KafkaPublisher)

func WithMetrics(m *metrics.Metrics) KafkaOption {
	return func(p *KafkaPublisher) {
		p.metrics = m
	}
}

func NewKafka(producer Producer, topic string, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{producer: producer, topic: topic}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DialKafka connects to brokers, creates topic when it does not exist yet and
// returns a publisher on it.
func DialKafka(ctx context.Context, brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, kadm.NewClient(client), topic); err != nil {
		client.Close()
		return nil, err
	}
	return NewKafka(client, topic, opts...), nil
}

func ensureTopic(ctx context.Context, admin *kadm.Client, topic string) error {
	resps, err := admin.CreateTopics(ctx, 1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resps {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.OrganizationID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	err = p.producer.ProduceSync(ctx, record).FirstErr()
	if p.metrics != nil {
		p.metrics.IncrementEventsPublished(err == nil)
	}
	if err != nil {
		return fmt.Errorf("produce %s event: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.producer.Close()
	return nil
}
