package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/foodbridge/foodbridge/pkg/logger"
)

const defaultTopic = "foodbridge.audit"

// KafkaConfig describes the Kafka-backed ledger.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaLedger publishes audit records to a Kafka topic.
type KafkaLedger struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
	log      *zap.Logger
}

// NewKafkaLedger connects a synchronous producer to the configured brokers.
func NewKafkaLedger(cfg KafkaConfig) (*KafkaLedger, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("ledger: at least one broker is required")
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect producer: %w", err)
	}

	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}

	return &KafkaLedger{
		producer: producer,
		topic:    topic,
		now:      time.Now,
		log:      logger.WithModule("ledger"),
	}, nil
}

// LogTransaction publishes the record. Failures are returned for the caller to
// log and drop; the ledger never retries.
func (l *KafkaLedger) LogTransaction(ctx context.Context, kind string, payload map[string]any) error {
	record := Record{
		Kind:      kind,
		Payload:   payload,
		Timestamp: l.now().UTC(),
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ledger: marshal record: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(kind),
		Value: sarama.ByteEncoder(encoded),
	}

	partition, offset, err := l.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("ledger: publish record: %w", err)
	}

	l.log.Debug("audit record published",
		zap.String("kind", kind),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close releases the underlying producer.
func (l *KafkaLedger) Close() error {
	return l.producer.Close()
}
