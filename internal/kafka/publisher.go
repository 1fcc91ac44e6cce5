package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"github.com/artbid/marketplace/internal/config"
	"github.com/artbid/marketplace/internal/models"
)

// Publisher emits product lifecycle events. Publishing is best effort: the
// callers log failures and never fail the originating request.
type Publisher interface {
	Publish(ctx context.Context, event models.ProductEvent) error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewPublisher(lc fx.Lifecycle, conf *config.Config) Publisher {
	if !conf.Kafka.Enabled {
		log.Warnf(context.Background(), "Kafka publisher is disabled in configuration")
		return &noopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(conf.Kafka.Brokers...),
		Topic:    conf.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return writer.Close()
		},
	})

	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event models.ProductEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		// Key by product so events for one product stay ordered.
		Key:   []byte(event.Data.ProductID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

type noopPublisher struct{}

func (*noopPublisher) Publish(context.Context, models.ProductEvent) error {
	return nil
}
