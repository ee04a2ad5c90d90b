package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// KafkaEventNotifier публикует итоги заданий сохранения. Сообщения,
// которые не удалось отправить в основной топик, уходят в DLQ.
type KafkaEventNotifier struct {
	producer    *kafka.Writer
	dlqProducer *kafka.Writer
	logger      *slog.Logger
	eventTopic  string
	dlqTopic    string
}

type PreservationEventMessage struct {
	LinkID     int64    `json:"linkId"`
	Ready      bool     `json:"ready"`
	Succeeded  []string `json:"succeeded"`
	Failed     []string `json:"failed"`
	FinishedAt string   `json:"finishedAt"`
}

func NewKafkaEventNotifier(brokers []string, eventTopic, dlqTopic string, logger *slog.Logger) *KafkaEventNotifier {
	producer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        eventTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	dlqProducer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        dlqTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	return &KafkaEventNotifier{
		producer:    producer,
		dlqProducer: dlqProducer,
		logger:      logger,
		eventTopic:  eventTopic,
		dlqTopic:    dlqTopic,
	}
}

func (n *KafkaEventNotifier) PublishSummary(ctx context.Context, summary *models.JobSummary) error {
	message := eventMessageFromSummary(summary)

	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации события: %w", err)
	}

	err = n.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", summary.LinkID)),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		n.logger.Error("Ошибка при отправке события в Kafka",
			"linkID", summary.LinkID,
			"error", err,
		)

		if dlqErr := n.sendToDLQ(ctx, value, err.Error()); dlqErr != nil {
			return fmt.Errorf("ошибка при отправке события в Kafka: %w", err)
		}

		return nil
	}

	n.logger.Debug("Событие сохранения отправлено в Kafka",
		"linkID", summary.LinkID,
		"topic", n.eventTopic,
	)

	return nil
}

func (n *KafkaEventNotifier) sendToDLQ(ctx context.Context, message []byte, errMsg string) error {
	n.logger.Info("Отправка события в DLQ",
		"error", errMsg,
		"topic", n.dlqTopic,
	)

	err := n.dlqProducer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("error"),
		Value: message,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(errMsg)},
			{Key: "timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
		},
		Time: time.Now(),
	})
	if err != nil {
		n.logger.Error("Ошибка при отправке события в DLQ",
			"error", err,
		)

		return fmt.Errorf("ошибка при отправке события в DLQ: %w", err)
	}

	return nil
}

func (n *KafkaEventNotifier) Close() error {
	if err := n.producer.Close(); err != nil {
		return err
	}

	return n.dlqProducer.Close()
}
