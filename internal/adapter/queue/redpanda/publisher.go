// Package redpanda publishes scan events to a Kafka-compatible broker.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// producer is the subset of *kgo.Client the publisher needs.
type producer interface {
	requester
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Publisher writes one record per scanned category.
type Publisher struct {
	client producer
	topic  string
}

// NewPublisher connects to brokers and makes sure topic exists.
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_publisher: %w: no brokers", domain.ErrInvalidArgument)
	}
	if topic == "" {
		return nil, fmt.Errorf("op=redpanda.new_publisher: %w: empty topic", domain.ErrInvalidArgument)
	}

	kotelTracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	kotelService := kotel.NewKotel(kotel.WithTracer(kotelTracer))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RecordRetries(5),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_publisher: %w", err)
	}

	p, err := newPublisher(ctx, client, topic)
	if err != nil {
		client.Close()
		return nil, err
	}
	slog.Info("scan publisher ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return p, nil
}

func newPublisher(ctx context.Context, client producer, topic string) (*Publisher, error) {
	if err := createTopicIfNotExists(ctx, client, topic, 1, 1); err != nil {
		return nil, fmt.Errorf("op=redpanda.new_publisher: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// PublishScan implements domain.ScanPublisher. Records are keyed by
// category and language so one feed stays on one partition.
func (p *Publisher) PublishScan(ctx context.Context, ev domain.ScanEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("op=redpanda.publish_scan: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.Category + ":" + string(ev.Language)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte("trend.scan.completed")},
			{Key: "trend-count", Value: []byte(strconv.Itoa(ev.TrendCount))},
		},
		Timestamp: ev.ScannedAt,
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.publish_scan: %w", err)
	}
	slog.Debug("scan event published",
		slog.String("category", ev.Category),
		slog.String("language", string(ev.Language)),
		slog.Int("trend_count", ev.TrendCount))
	return nil
}

// Ping reports whether any broker is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("op=redpanda.ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (p *Publisher) Close() { p.client.Close() }
