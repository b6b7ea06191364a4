// Package ingest publishes dispatch outcomes to Kafka. Consumers on the
// booking side own the actual seat reservation; the matching core stays
// free of persistent side effects.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/zekka-tech/Klubz-sub003/internal/models"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaPublisher{writer: w}
}

// PublishAssignment emits one pool assignment keyed by trip id so all
// events for a trip land in the same partition.
func (k *KafkaPublisher) PublishAssignment(p *models.PoolAssignment) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(p.TripID), Value: b})
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
