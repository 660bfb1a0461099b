package repository

import (
	"context"
	"fmt"

	"FinBrief/internal/domain/models"
	domrepo "FinBrief/internal/domain/repository"
)

type keyedPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher writes brief events keyed by request id.
type KafkaEventPublisher struct {
	producer keyedPublisher
	topic    string
}

func NewKafkaEventPublisher(producer keyedPublisher, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishBriefEvent(ctx context.Context, ev models.BriefEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.RequestID), ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NopEventPublisher drops events. Used when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishBriefEvent(context.Context, models.BriefEvent) error { return nil }
func (NopEventPublisher) Close() error                                               { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopEventPublisher{}
)
