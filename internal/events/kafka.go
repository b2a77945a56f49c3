package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coview/pkg/logging"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces lifecycle events to a Kafka topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger logging.Logger
}

// NewKafkaPublisher connects a producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic, clientID string, logger logging.Logger) (*KafkaPublisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10 * time.Millisecond),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) ChannelCreated(channelID string) {
	p.publish(Event{EventType: TypeChannelCreated, ChannelID: channelID})
}

func (p *KafkaPublisher) ChannelClosed(channelID, reason string) {
	p.publish(Event{EventType: TypeChannelClosed, ChannelID: channelID, Reason: reason})
}

func (p *KafkaPublisher) ViewerJoined(channelID, viewerID string) {
	p.publish(Event{EventType: TypeViewerJoined, ChannelID: channelID, ViewerID: viewerID})
}

func (p *KafkaPublisher) ViewerLeft(channelID, viewerID string) {
	p.publish(Event{EventType: TypeViewerLeft, ChannelID: channelID, ViewerID: viewerID})
}

// Close flushes pending records and releases the client.
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

// HealthCheck pings the brokers.
func (p *KafkaPublisher) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) publish(event Event) {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now().UTC()

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal lifecycle event")
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ChannelID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	// Async produce keeps the session loop unblocked; failures are logged
	// and dropped.
	p.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.WithError(err).Warn("Failed to produce lifecycle event")
		}
	})
}
