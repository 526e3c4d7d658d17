package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/jhoicas/orderflow-api/internal/application/notification"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

var _ notification.Sender = (*NotificationPublisher)(nil)

// Producer lo satisface *kafkago.Writer; en tests se inyecta un fake.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// NewWriter writer síncrono con confirmación de todas las réplicas.
func NewWriter(brokers []string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NotificationPublisher entrega notificaciones publicándolas en un tópico; el consumidor
// (servicio de email/SMS) queda fuera de este proceso.
type NotificationPublisher struct {
	producer Producer
	topic    string
	log      zerolog.Logger
}

func NewNotificationPublisher(producer Producer, topic string, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{
		producer: producer,
		topic:    topic,
		log:      log.With().Str("component", "kafka_notification_publisher").Str("topic", topic).Logger(),
	}
}

type notificationMessage struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Channel     string         `json:"channel"`
	RecipientID string         `json:"recipient_id"`
	Subject     string         `json:"subject"`
	Content     string         `json:"content"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Send publica con clave = product_id para conservar el orden de avisos por producto.
func (p *NotificationPublisher) Send(ctx context.Context, n entity.Notification) error {
	payload, err := json.Marshal(notificationMessage{
		ID:          n.ID,
		Type:        n.Type,
		Channel:     n.Channel,
		RecipientID: n.RecipientID,
		Subject:     n.Subject,
		Content:     n.Content,
		Data:        n.Data,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("serializar notificación %s: %w", n.ID, err)
	}
	key := n.ID
	if id, ok := n.Data["product_id"].(string); ok && id != "" {
		key = id
	}
	msg := kafkago.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "notification_type", Value: []byte(n.Type)},
			{Key: "channel", Value: []byte(n.Channel)},
		},
	}
	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().Err(err).Str("notification_id", n.ID).Msg("publicación de notificación fallida")
		return fmt.Errorf("kafka %s: %w", p.topic, err)
	}
	p.log.Debug().Str("notification_id", n.ID).Msg("notificación publicada")
	return nil
}
