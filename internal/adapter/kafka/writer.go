package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/config"
	"github.com/couchcryptid/health-environment-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes gold feature rows to a Kafka topic.
// It implements pipeline.FeaturePublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured features topic.
// Rows are keyed by week so a compacted topic keeps the latest version of each week.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaFeaturesTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishFeatures serializes and publishes every gold row in a single
// WriteMessages call.
func (w *Writer) PublishFeatures(ctx context.Context, rows []domain.WeeklyFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d feature rows: %w", len(msgs), err)
	}
	w.logger.Debug("feature rows published", "topic", w.writer.Topic, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WeeklyFeatureRow into a Kafka message.
func serializeToMessage(row domain.WeeklyFeatureRow) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature row %s: %w", row.WeekStartDate.Format(time.DateOnly), err)
	}
	return kafkago.Message{
		Key:   []byte(row.WeekStartDate.Format(time.DateOnly)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "data_completeness", Value: []byte(row.DataCompleteness)},
			{Key: "processed_at", Value: []byte(row.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
