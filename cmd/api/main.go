package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"eventhub/config"
	_ "eventhub/docs"
	"eventhub/internal/adapters/auth"
	"eventhub/internal/adapters/email"
	"eventhub/internal/adapters/notify"
	"eventhub/internal/adapters/rabbitmq"
	deliveryhttp "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/domain"
	"eventhub/internal/platform/otel"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/services"
)

// @title           EventHub RSVP API
// @version         1.0
// @description     RSVP admission, waitlist promotion and registrant notifications.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger()
	if err := run(cfg, logger); err != nil {
		logger.Error("api exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; authenticated routes will reject every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "eventhub", cfg.OTel.Enabled, cfg.OTel.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	db, err := postgres.Connect(ctx, logger, cfg.DBUrl, postgres.ConnectOptions{MaxOpenConns: 25, MaxIdleConns: 5})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	eventRepo := postgres.NewEventRepository(db)
	userRepo := postgres.NewUserRepository(db)
	rsvpRepo := postgres.NewRSVPRepository(db)

	sinks, closeSinks, err := buildSinks(ctx, cfg, logger, userRepo)
	if err != nil {
		return err
	}
	defer closeSinks()

	dispatcher := notify.NewDispatcher(logger, notify.DispatcherConfig{
		QueueSize: cfg.Notify.QueueSize,
		Workers:   cfg.Notify.Workers,
	}, sinks...)

	rsvpService := services.NewRSVPService(rsvpRepo, eventRepo, userRepo, dispatcher, logger, cfg.RequestTimeout)
	rippleService := services.NewEventRippleService(rsvpRepo, eventRepo, dispatcher, logger, cfg.RequestTimeout)

	router := deliveryhttp.NewRouter(deliveryhttp.RouterConfig{
		Logger:         logger,
		Verifier:       auth.NewJWT(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RSVP:           controllers.NewRSVPController(logger, rsvpService),
		Ripple:         controllers.NewRippleController(logger, rippleService),
		Health:         controllers.NewHealthController(logger, db),
	})

	return serve(ctx, logger, cfg.Port, router, dispatcher)
}

// serve runs the HTTP server and the notification dispatcher until ctx ends.
// The server drains first so late notifications still reach the dispatcher.
func serve(ctx context.Context, logger *slog.Logger, port string, handler http.Handler, dispatcher *notify.Dispatcher) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopDispatch()
		return err
	})
	return g.Wait()
}

// buildSinks creates the notification sinks listed in NOTIFY_SINKS. The
// returned func releases broker connections.
func buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger, users domain.UserRepository) ([]domain.NotificationSink, func(), error) {
	var (
		sinks   []domain.NotificationSink
		closers []func() error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close notification sink", "err", err)
			}
		}
	}

	if cfg.SinkEnabled("log") {
		sinks = append(sinks, notify.NewLogSink(logger))
	}
	if cfg.SinkEnabled("amqp") {
		conn, err := rabbitmq.Connect(ctx, logger, cfg.RabbitMQ.URL, 0, 0)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, conn.Close)
		pub, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQ.Exchange)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, pub.Close)
		sinks = append(sinks, notify.NewAMQPSink(pub))
	}
	if cfg.SinkEnabled("email") {
		mailer, err := email.NewMailer(email.MailerConfig{
			Provider:    cfg.Email.Provider,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
			SES: email.SESConfig{
				Region:          cfg.AWS.Region,
				AccessKeyID:     cfg.AWS.AccessKeyID,
				SecretAccessKey: cfg.AWS.SecretAccessKey,
			},
		}, logger)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("create mailer: %w", err)
		}
		sinks = append(sinks, services.NewEmailNotificationSink(users, mailer, email.NewTemplateRenderer()))
	}
	logger.Info("notification sinks ready", "count", len(sinks))
	return sinks, closeAll, nil
}
