// Hestia API — сервис поиска и визуализации арендного жилья.
//
// Один процесс несёт всё: HTTP API, flow-движок с фазами
// DISCOVERY → SCORING → DESIGN, guardrail-валидацию и sweeper
// просроченных feedback-запросов.
//
// Конфигурация через переменные окружения:
//   - API_PORT            — порт HTTP сервера (default: 8080)
//   - DB_URL              — Postgres DSN; без него состояние в памяти
//   - RABBITMQ_URL        — RabbitMQ; без него события не публикуются
//   - HESTIA_STUB_MODE    — "1": детерминированные stub-collaborator'ы
//   - DISCOVERY_URL, GEO_URL, RENDER_URL — адреса collaborator'ов
//   - COLLAB_API_KEY      — Bearer-токен для collaborator'ов
//   - COLLAB_RPM          — rate limit запросов к collaborator'ам (default: 60)
//   - POOL_WIDTH          — ширина пула sub-task'ов (default: 6)
//   - MAX_RETRIES         — guardrail-retry на фазу (default: 2)
//   - MAX_REWINDS         — бюджет rewind-решений (default: 3)
//   - FEEDBACK_TTL        — максимум ожидания решения (например "72h");
//     sweeper выключен, если пусто
//   - FEEDBACK_SWEEP_CRON — расписание sweeper'а (default: */5 * * * *)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"

	"github.com/shaiso/Hestia/internal/api"
	"github.com/shaiso/Hestia/internal/collab"
	"github.com/shaiso/Hestia/internal/flow"
	"github.com/shaiso/Hestia/internal/guardrail"
	"github.com/shaiso/Hestia/internal/mq"
	"github.com/shaiso/Hestia/internal/stage"
	"github.com/shaiso/Hestia/internal/store"
	"github.com/shaiso/Hestia/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting hestia-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Store: Postgres при наличии DB_URL, иначе in-memory
	var runStore store.RunStore
	if os.Getenv("DB_URL") != "" {
		pool, err := store.NewPool(ctx)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := store.Migrate(ctx, pool); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		runStore = store.NewPostgres(pool)
		logger.Info("database connected")
	} else {
		runStore = store.NewMemory()
		logger.Warn("DB_URL not set, state is in-memory and lost on restart")
	}

	// RabbitMQ (опционально)
	var publisher flow.EventPublisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, run events will not be published", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Collaborator-клиенты
	discovery, geo, render := buildCollaborators(logger)

	// Flow-движок
	executor := stage.NewExecutor(
		discovery, geo, render,
		stage.NewPool(envInt("POOL_WIDTH", stage.DefaultPoolWidth)),
		stage.DefaultRetryConfig(),
		logger,
	)
	engine := flow.New(flow.Config{
		Store:      runStore,
		Executor:   executor,
		Validator:  guardrail.New(guardrail.Config{}),
		Publisher:  publisher,
		MaxRetries: envInt("MAX_RETRIES", 0),
		MaxRewinds: envInt("MAX_REWINDS", 0),
		Logger:     logger,
	})
	if err := engine.Start(ctx); err != nil {
		logger.Error("failed to start flow engine", "error", err)
		os.Exit(1)
	}
	defer engine.Stop()

	// Sweeper просроченных feedback-запросов (включается FEEDBACK_TTL)
	if v := os.Getenv("FEEDBACK_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			logger.Error("invalid FEEDBACK_TTL", "value", v)
			os.Exit(1)
		}
		expr := os.Getenv("FEEDBACK_SWEEP_CRON")
		if expr == "" {
			expr = "*/5 * * * *"
		}
		sweeper, err := flow.NewSweeper(flow.SweeperConfig{
			Engine:   engine,
			Store:    runStore,
			CronExpr: expr,
			TTL:      ttl,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to create feedback sweeper", "error", err)
			os.Exit(1)
		}
		go sweeper.Run(ctx)
		logger.Info("feedback sweeper enabled", "cron", expr, "ttl", ttl)
	}

	// HTTP сервер
	handler := api.NewHandler(api.Config{Engine: engine, Logger: logger})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
		if mqConn != nil {
			fmt.Fprintf(w, " mq=%t", mqConn.IsConnected())
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// buildCollaborators создаёт клиентов внешних collaborator'ов:
// stubs в HESTIA_STUB_MODE, иначе HTTP-клиенты с rate limiting.
func buildCollaborators(logger *slog.Logger) (collab.DiscoveryClient, collab.GeoClient, collab.RenderClient) {
	if os.Getenv("HESTIA_STUB_MODE") == "1" {
		logger.Warn("HESTIA_STUB_MODE enabled, using deterministic stub collaborators")
		return &collab.StubDiscovery{}, &collab.StubGeo{}, &collab.StubRender{}
	}

	apiKey := os.Getenv("COLLAB_API_KEY")
	rpm := envInt("COLLAB_RPM", 60)
	return collab.NewHTTPDiscovery(os.Getenv("DISCOVERY_URL"), apiKey, rpm),
		collab.NewHTTPGeo(os.Getenv("GEO_URL"), apiKey, rpm),
		collab.NewHTTPRender(os.Getenv("RENDER_URL"), apiKey, rpm)
}

// envInt читает целочисленную переменную окружения с дефолтом.
func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
