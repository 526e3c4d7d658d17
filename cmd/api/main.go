package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/orderflow-api/internal/application/inventory"
	"github.com/jhoicas/orderflow-api/internal/application/notification"
	"github.com/jhoicas/orderflow-api/internal/application/order"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
	infrakafka "github.com/jhoicas/orderflow-api/internal/infrastructure/kafka"
	"github.com/jhoicas/orderflow-api/internal/infrastructure/memory"
	"github.com/jhoicas/orderflow-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/orderflow-api/internal/infrastructure/redis"
	"github.com/jhoicas/orderflow-api/internal/infrastructure/remote"
	httpRouter "github.com/jhoicas/orderflow-api/internal/interfaces/http"
	"github.com/jhoicas/orderflow-api/pkg/config"
	"github.com/jhoicas/orderflow-api/pkg/logger"
)

// stores repositorios según STORE_DRIVER.
type stores struct {
	txRunner      inventory.TxRunner
	inventory     repository.InventoryRepository
	history       repository.InventoryHistoryRepository
	orders        repository.OrderRepository
	notifications repository.NotificationRepository
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")
	zl := log.Zerolog()

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	// Notificaciones: Kafka si hay brokers, si no se entregan al log.
	var sender notification.Sender = notification.NewLogSender(zl)
	if len(cfg.Kafka.Brokers) > 0 {
		writer := infrakafka.NewWriter(cfg.Kafka.Brokers)
		defer writer.Close()
		sender = infrakafka.NewNotificationPublisher(writer, cfg.Kafka.NotificationTopic, zl)
	}
	notifier := notification.NewLowStockNotifier(
		st.notifications, sender,
		cfg.Notification.Channel, cfg.Notification.Recipient, cfg.Notification.QueueSize, zl,
	)
	notifierCtx, stopNotifier := context.WithCancel(ctx)
	notifierDone := make(chan struct{})
	go func() {
		defer close(notifierDone)
		_ = notifier.Run(notifierCtx)
	}()

	// Servicios remotos: un cliente por servicio, construidos una sola vez.
	remoteCfg := func(baseURL string) remote.Config {
		return remote.Config{
			BaseURL:     baseURL,
			Timeout:     cfg.Services.Timeout,
			MaxAttempts: cfg.Services.MaxAttempts,
			Backoff:     cfg.Services.Backoff,
			AuthToken:   cfg.Services.AuthToken,
		}
	}
	users := remote.NewUserClient(remote.NewClient("user", remoteCfg(cfg.Services.UserURL), zl))
	products := remote.NewProductClient(remote.NewClient("product", remoteCfg(cfg.Services.ProductURL), zl))

	ledger := inventory.NewLedger(st.txRunner, st.inventory, st.history, products, notifier, zl)

	var stock order.StockLedger = order.NewLocalStock(ledger)
	if cfg.Services.InventoryURL != "" {
		stock = remote.NewInventoryClient(remote.NewClient("inventory", remoteCfg(cfg.Services.InventoryURL), zl))
	}

	var guard order.IdempotencyGuard = memory.NewIdempotencyGuard()
	if cfg.Redis.Addr != "" {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		guard = infraredis.NewIdempotencyGuard(rdb)
	}

	tolerance, err := decimal.NewFromString(cfg.Saga.PriceTolerance)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.Saga.PriceTolerance).Msg("SAGA_PRICE_TOLERANCE inválido")
	}
	saga := order.NewSaga(users, products, stock, st.orders, guard, order.SagaConfig{
		Deadline:            cfg.Saga.Deadline,
		CompensationTimeout: cfg.Saga.CompensationTimeout,
		PriceTolerance:      tolerance,
		GuardTTL:            cfg.Redis.IdempotencyTTL,
	}, zl)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Saga.Deadline + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Orderflow API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledger,
		Saga:      saga,
		Orders:    order.NewService(st.orders),
		Notifier:  notifier,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Sin tráfico HTTP ya no llegan avisos nuevos; el worker vacía la cola antes de salir.
	stopNotifier()
	<-notifierDone
	if n := notifier.Dropped(); n > 0 {
		log.Warn().Uint64("dropped", n).Msg("notificaciones descartadas por cola llena")
	}

	log.Info().Msg("aplicación detenida")
}

// openStores abre PostgreSQL (con esquema embebido si DB_AUTO_MIGRATE) o los stores en memoria.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		ledgerStore := memory.NewLedgerStore()
		log.Warn().Msg("STORE_DRIVER=memory: los datos no sobreviven al reinicio")
		return &stores{
			txRunner:      ledgerStore,
			inventory:     ledgerStore.Inventory(),
			history:       ledgerStore.History(),
			orders:        memory.NewOrderRepository(),
			notifications: memory.NewNotificationRepository(),
			close:         func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dsn", postgres.RedactURL(cfg.DB.ConnectionString())).Msg("conectado a PostgreSQL")
	if cfg.DB.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &stores{
		txRunner:      postgres.NewTxRunner(pool),
		inventory:     postgres.NewInventoryRepository(pool),
		history:       postgres.NewInventoryHistoryRepository(pool),
		orders:        postgres.NewOrderRepository(pool),
		notifications: postgres.NewNotificationRepository(pool),
		close:         pool.Close,
	}, nil
}
