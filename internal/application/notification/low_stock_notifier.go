package notification

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

// DefaultQueueSize capacidad de la cola cuando la configuración no indica otra.
const DefaultQueueSize = 256

// Sender entrega una notificación por el canal configurado (Kafka, log).
type Sender interface {
	Send(ctx context.Context, n entity.Notification) error
}

// LowStockNotifier programa avisos de stock bajo tras una mutación confirmada del ledger.
// Notify nunca bloquea; el worker (Run) persiste el registro pending, lo entrega y marca sent | failed.
// No hay reintento automático.
type LowStockNotifier struct {
	repo      repository.NotificationRepository
	sender    Sender
	channel   string
	recipient string
	queue     chan entity.Notification
	dropped   atomic.Uint64
	log       zerolog.Logger
	now       func() time.Time
}

// NewLowStockNotifier construye el notificador. channel vacío equivale a email.
func NewLowStockNotifier(
	repo repository.NotificationRepository,
	sender Sender,
	channel, recipient string,
	queueSize int,
	log zerolog.Logger,
) *LowStockNotifier {
	if channel == "" {
		channel = entity.NotificationChannelEmail
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &LowStockNotifier{
		repo:      repo,
		sender:    sender,
		channel:   channel,
		recipient: recipient,
		queue:     make(chan entity.Notification, queueSize),
		log:       log.With().Str("component", "low_stock_notifier").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Notify encola el aviso para el registro ya confirmado. Con la cola llena el aviso se descarta.
func (n *LowStockNotifier) Notify(_ context.Context, rec entity.InventoryRecord) {
	item := n.build(rec)
	select {
	case n.queue <- item:
		n.log.Debug().Str("product_id", rec.ProductID).Int("available", rec.AvailableQuantity).Msg("aviso de stock bajo encolado")
	default:
		n.dropped.Add(1)
		n.log.Warn().Str("product_id", rec.ProductID).Msg("cola de notificaciones llena, aviso descartado")
	}
}

// Dropped cantidad de avisos descartados por cola llena.
func (n *LowStockNotifier) Dropped() uint64 { return n.dropped.Load() }

// Run procesa la cola hasta que ctx se cancela; lo ya encolado se entrega antes de salir.
func (n *LowStockNotifier) Run(ctx context.Context) error {
	for {
		select {
		case item := <-n.queue:
			n.process(ctx, item)
		case <-ctx.Done():
			n.drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

// List notificaciones registradas (auditoría), más recientes primero.
func (n *LowStockNotifier) List(ctx context.Context, limit, offset int) ([]*entity.Notification, error) {
	return n.repo.List(ctx, limit, offset)
}

func (n *LowStockNotifier) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for {
		select {
		case item := <-n.queue:
			n.process(ctx, item)
		default:
			return
		}
	}
}

func (n *LowStockNotifier) process(ctx context.Context, item entity.Notification) {
	if err := n.repo.Create(ctx, &item); err != nil {
		n.log.Error().Err(err).Str("product_id", productID(item)).Msg("no se pudo registrar la notificación")
		return
	}
	logger := n.log.With().Str("notification_id", item.ID).Str("product_id", productID(item)).Logger()

	status, errMsg := entity.NotificationStatusSent, ""
	if err := n.sender.Send(ctx, item); err != nil {
		status, errMsg = entity.NotificationStatusFailed, err.Error()
		logger.Warn().Err(err).Msg("entrega de notificación fallida")
	}
	if err := n.repo.UpdateStatus(ctx, item.ID, status, errMsg); err != nil {
		logger.Error().Err(err).Str("status", status).Msg("no se pudo actualizar el estado de la notificación")
		return
	}
	logger.Info().Str("status", status).Msg("notificación procesada")
}

func (n *LowStockNotifier) build(rec entity.InventoryRecord) entity.Notification {
	now := n.now()
	return entity.Notification{
		Type:        entity.NotificationTypeLowStock,
		Channel:     n.channel,
		RecipientID: n.recipient,
		Subject:     fmt.Sprintf("Alerta de stock bajo: %s", rec.ProductID),
		Content: fmt.Sprintf("El producto %s tiene %d unidades disponibles (umbral de reorden %d).",
			rec.ProductID, rec.AvailableQuantity, rec.ReorderThreshold),
		Status: entity.NotificationStatusPending,
		Data: map[string]any{
			"product_id":         rec.ProductID,
			"available_quantity": rec.AvailableQuantity,
			"reorder_threshold":  rec.ReorderThreshold,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func productID(n entity.Notification) string {
	id, _ := n.Data["product_id"].(string)
	return id
}
