package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/orderflow-api/internal/application/notification"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/infrastructure/memory"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []entity.Notification
	err  error
}

func (s *fakeSender) Send(_ context.Context, n entity.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func lowRecord(productID string) entity.InventoryRecord {
	return entity.InventoryRecord{ProductID: productID, AvailableQuantity: 1, ReservedQuantity: 9, ReorderThreshold: 2}
}

func startWorker(t *testing.T, n *notification.LowStockNotifier) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestNotify_EntregaYMarcaSent(t *testing.T) {
	repo := memory.NewNotificationRepository()
	sender := &fakeSender{}
	n := notification.NewLowStockNotifier(repo, sender, "", "ops@example.com", 4, zerolog.Nop())
	startWorker(t, n)

	n.Notify(context.Background(), lowRecord("P1"))

	require.Eventually(t, func() bool {
		list, _ := n.List(context.Background(), 10, 0)
		return len(list) == 1 && list[0].Status == entity.NotificationStatusSent
	}, time.Second, 5*time.Millisecond)

	list, err := n.List(context.Background(), 10, 0)
	require.NoError(t, err)
	got := list[0]
	assert.Equal(t, entity.NotificationTypeLowStock, got.Type)
	assert.Equal(t, entity.NotificationChannelEmail, got.Channel)
	assert.Equal(t, "ops@example.com", got.RecipientID)
	assert.Contains(t, got.Content, "P1")
	assert.Equal(t, 1, got.Data["available_quantity"])
	assert.Equal(t, 2, got.Data["reorder_threshold"])
	assert.NotNil(t, got.SentAt)
	assert.Equal(t, 1, sender.count())
}

func TestNotify_FallaDeEntregaQuedaFailed(t *testing.T) {
	repo := memory.NewNotificationRepository()
	sender := &fakeSender{err: errors.New("smtp caído")}
	n := notification.NewLowStockNotifier(repo, sender, "sms", "", 4, zerolog.Nop())
	startWorker(t, n)

	n.Notify(context.Background(), lowRecord("P2"))

	require.Eventually(t, func() bool {
		list, _ := n.List(context.Background(), 10, 0)
		return len(list) == 1 && list[0].Status == entity.NotificationStatusFailed
	}, time.Second, 5*time.Millisecond)

	list, _ := n.List(context.Background(), 10, 0)
	assert.Equal(t, "smtp caído", list[0].ErrorMessage)
	assert.Equal(t, "sms", list[0].Channel)
	assert.Nil(t, list[0].SentAt)
}

func TestNotify_ColaLlenaNoBloquea(t *testing.T) {
	repo := memory.NewNotificationRepository()
	n := notification.NewLowStockNotifier(repo, &fakeSender{}, "", "", 1, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			n.Notify(context.Background(), lowRecord("P1"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify bloqueó sin worker")
	}
	assert.Equal(t, uint64(2), n.Dropped())
}

func TestRun_DrenaLaColaAlCancelar(t *testing.T) {
	repo := memory.NewNotificationRepository()
	sender := &fakeSender{}
	n := notification.NewLowStockNotifier(repo, sender, "", "", 8, zerolog.Nop())

	for _, id := range []string{"P1", "P2", "P3"} {
		n.Notify(context.Background(), lowRecord(id))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, n.Run(ctx))

	assert.Equal(t, 3, sender.count())
	list, err := n.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
