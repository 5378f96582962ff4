package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hotelbook/internal/app/commands"
	bookingapp "hotelbook/internal/app/handlers/booking"
	"hotelbook/internal/app/handlers/payments"
	"hotelbook/internal/app/ledger"
	"hotelbook/internal/app/middleware"
	appoutbox "hotelbook/internal/app/outbox"
	"hotelbook/internal/app/policies"
	"hotelbook/internal/app/queries"
	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
	"hotelbook/internal/infra/broker/kafka"
	"hotelbook/internal/infra/config"
	mongoinfra "hotelbook/internal/infra/db/mongo"
	"hotelbook/internal/infra/fixtures"
	ginserver "hotelbook/internal/infra/http/gin"
	"hotelbook/internal/infra/inbox"
	"hotelbook/internal/infra/lock"
	"hotelbook/internal/infra/obs"
	outboxinfra "hotelbook/internal/infra/outbox"
	"hotelbook/internal/infra/security"
	"hotelbook/internal/infra/storage/memory"
)

const (
	devJWTSecret   = "hotelbook-dev-secret"
	idempotencyTTL = 24 * time.Hour
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	fixturesPath := cfg.RoomsFixtures
	if fixturesPath == "" {
		fixturesPath = fixtures.DefaultPath()
	}
	if _, err := fixtures.Load(ctx, fixturesPath, app.seeder, logger); err != nil {
		logger.Warn("room fixtures load failed", "error", err, "path", fixturesPath)
	}

	var workers sync.WaitGroup
	for _, run := range app.background {
		workers.Add(1)
		go func(run func(context.Context) error) {
			defer workers.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "error", err)
			}
		}(run)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "kafka", cfg.KafkaEnabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		workers.Wait()
		os.Exit(1)
	}
	stop()
	workers.Wait()
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	health     obs.HealthHandlers
	seeder     fixtures.Seeder
	background []func(context.Context) error
	closers    []func(context.Context) error
}

func (a application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

type storage struct {
	factory     uow.UoWFactory
	seeder      fixtures.Seeder
	outbox      appoutbox.Outbox
	queue       appoutbox.Queue
	idempotency middleware.IdempotencyStore
	inbox       payments.Inbox
}

func buildStorage(cfg config.Config, app *application) (storage, error) {
	if cfg.Storage != config.StorageMongo {
		store := memory.NewStore()
		box := memory.NewOutbox()
		return storage{
			factory:     memory.Factory{Store: store, Outbox: box},
			seeder:      store,
			outbox:      box,
			queue:       box,
			idempotency: memory.NewIdempotencyStore(idempotencyTTL),
			inbox:       memory.NewInbox(),
		}, nil
	}
	client, err := mongoinfra.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, err
	}
	app.closers = append(app.closers, client.Close)
	app.health.Checks["mongo"] = client.Ping
	factory := mongoinfra.NewFactory(client.DB)
	box := outboxinfra.NewStore(client.DB)
	keys := mongoinfra.NewIdempotencyStore(client.DB, idempotencyTTL)
	seen := inbox.NewStore(client.DB, cfg.KafkaGroupID)
	if err := mongoinfra.EnsureIndexes(context.Background(), mongoinfra.DefaultIndexTimeout, factory, box, keys, seen); err != nil {
		return storage{}, err
	}
	return storage{
		factory:     factory,
		seeder:      factory,
		outbox:      box,
		queue:       box,
		idempotency: keys,
		inbox:       seen,
	}, nil
}

func buildLocker(cfg config.Config, app *application) policies.RoomLocker {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex()
	}
	client := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	app.closers = append(app.closers, func(context.Context) error { return client.Close() })
	app.health.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return &lock.RedisLocker{Client: client, TTL: cfg.RoomLockTTL, Wait: cfg.RoomLockWait}
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	app := application{health: obs.HealthHandlers{Checks: map[string]obs.Check{}}}

	store, err := buildStorage(cfg, &app)
	if err != nil {
		return app, err
	}
	app.seeder = store.seeder

	initial, err := domainbooking.ParseStatus(cfg.BookingInitialStatus)
	if err != nil {
		return app, err
	}
	l := &ledger.Ledger{
		UoWFactory: store.factory,
		Locker:     buildLocker(cfg, &app),
		Outbox:     store.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Policy: ledger.Policy{
			InitialStatus: initial,
			PriceSource:   ledger.PriceSource(cfg.PriceSource),
			Currency:      cfg.Currency,
		},
		Logger: logger,
	}

	commandBus := commands.NewInMemoryBus()
	bookingapp.RegisterCommands(commandBus, l)
	queryBus := queries.NewInMemoryBus()
	bookingapp.RegisterQueries(queryBus, l)

	stack := middleware.Stack{
		Logger:      logger,
		Authorizer:  middleware.IdentityAuthorizer{},
		Idempotency: store.idempotency,
		Outbox:      store.outbox,
	}
	cmds := stack.Commands(commandBus)
	qrys := stack.Queries(queryBus)

	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using development secret")
		secret = devJWTSecret
	}
	verifier := security.Verifier{Secret: []byte(secret), AdminRole: cfg.AdminRole, Leeway: 30 * time.Second}

	app.handlers = ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: cmds, Queries: qrys},
		AdminBooking:   ginserver.AdminBookingHandler{Commands: cmds, Queries: qrys},
		Room:           ginserver.RoomHandler{Queries: qrys},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	}

	if cfg.KafkaEnabled() {
		if err := wireKafka(cfg, logger, store, cmds, &app); err != nil {
			return app, err
		}
	}
	return app, nil
}

func wireKafka(cfg config.Config, logger *slog.Logger, store storage, cmds commands.Bus, app *application) error {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
	worker := &outboxinfra.Worker{
		Queue:       store.queue,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		StaleAfter:  time.Minute,
		Logger:      logger.With("component", "outbox"),
	}
	app.background = append(app.background, worker.Run)

	confirmer := &payments.Confirmer{Commands: cmds, Inbox: store.inbox, Logger: logger.With("component", "payments")}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, kafka.PaymentHandler{Confirmer: confirmer, Logger: logger})
	if err != nil {
		return err
	}
	consumer.Backoff = cfg.RetryBackoff
	consumer.Logger = logger.With("component", "kafka")
	app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
	topic := cfg.KafkaTopicPrefix + cfg.PaymentTopic
	app.background = append(app.background, func(ctx context.Context) error {
		return consumer.Run(ctx, []string{topic})
	})
	return nil
}
