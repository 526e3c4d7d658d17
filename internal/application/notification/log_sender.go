package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
)

// LogSender entrega la notificación escribiéndola en el log. Se usa cuando no hay brokers Kafka.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "notification_log_sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, n entity.Notification) error {
	s.log.Info().
		Str("type", n.Type).
		Str("channel", n.Channel).
		Str("recipient", n.RecipientID).
		Str("subject", n.Subject).
		Msg(n.Content)
	return nil
}
