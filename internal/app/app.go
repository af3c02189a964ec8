// v0
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nrgchamp/dashboard/internal/auth"
	"nrgchamp/dashboard/internal/circuitbreaker"
	"nrgchamp/dashboard/internal/config"
	"nrgchamp/dashboard/internal/dashboard"
	"nrgchamp/dashboard/internal/dataset"
	"nrgchamp/dashboard/internal/events"
	httpserver "nrgchamp/dashboard/internal/http"
	"nrgchamp/dashboard/internal/load"
	"nrgchamp/dashboard/internal/metrics"
	"nrgchamp/dashboard/internal/series"
	"nrgchamp/dashboard/internal/tooltip"
)

const upstreamBreakerName = "dashboard-upstream"

// worker is a long running input feeding the series store.
type worker struct {
	name  string
	run   func(ctx context.Context) error
	close func() error
}

// Application wires configuration, logging, the dashboard store, its data
// inputs and the HTTP API, and owns graceful shutdown.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	logFile   *os.File
	server    *http.Server
	health    *httpserver.HealthState
	loader    *load.Controller
	board     *dashboard.Store
	publisher *events.Publisher
	workers   []worker
}

// New prepares a fully wired service instance using the supplied
// configuration.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if logPath == "" {
		return nil, errors.New("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := newLogger(lf, cfg.LogLevel)
	circuitbreaker.SetLogger(logger)
	a, err := build(cfg, logger)
	if err != nil {
		_ = lf.Close()
		return nil, err
	}
	a.logFile = lf
	return a, nil
}

func build(cfg config.Config, logger *slog.Logger) (*Application, error) {
	ds, err := loadDataset(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset_loaded",
		slog.String("path", cfg.DatasetPath),
		slog.Int("variables", len(ds.Catalog.IDs())),
		slog.Int("scenarios", len(ds.Scenarios)),
	)

	m := metrics.New()
	store := series.NewStore()

	src, err := newSource(cfg, ds, m, logger)
	if err != nil {
		return nil, err
	}
	loader, err := load.NewController(src, store, logger, load.Options{
		Timeout: cfg.LoadTimeout,
		Accept:  ds.Catalog.Has,
	})
	if err != nil {
		return nil, fmt.Errorf("load controller init: %w", err)
	}
	loader.OnChange(func(st load.Status) {
		m.SetLoadPhase(string(st.Phase))
		if st.Phase == load.PhaseLoading {
			m.LoadAttempt()
		}
	})
	m.SetLoadPhase(string(load.PhaseIdle))

	publisher, err := events.NewPublisher(events.Config{
		Enabled: cfg.EventsEnabled,
		Topic:   cfg.EventsTopic,
		Brokers: cfg.KafkaBrokers,
	}, logger.With(slog.String("component", "event_publisher")), m)
	if err != nil {
		return nil, fmt.Errorf("event publisher init: %w", err)
	}

	animator := tooltip.NewAnimator(
		tooltip.NewTimerScheduler(tooltip.FrameInterval),
		tooltip.DefaultLayout(),
		tooltip.Size{W: cfg.ViewportWidth, H: cfg.ViewportHeight},
	)
	board, err := dashboard.New(dashboard.Options{
		Dataset:  ds,
		Series:   store,
		Loader:   loader,
		Animator: animator,
		Events:   publisher,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard init: %w", err)
	}

	workers, err := newWorkers(cfg, store, ds.Catalog.Has, m, logger)
	if err != nil {
		return nil, err
	}

	health := httpserver.NewHealthState()
	var accessLog io.Writer
	if cfg.AccessLog {
		accessLog = os.Stdout
	}
	handler, err := httpserver.NewRouter(httpserver.Deps{
		Logger:         logger,
		Health:         health,
		Dashboard:      board,
		Series:         store,
		Auth:           auth.New(cfg.DemoEmail, cfg.DemoPassword, cfg.LoginDelay),
		Metrics:        m,
		AccessLog:      accessLog,
		AllowedOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		closeWorkers(workers, logger)
		return nil, fmt.Errorf("router init: %w", err)
	}
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		server:    server,
		health:    health,
		loader:    loader,
		board:     board,
		publisher: publisher,
		workers:   workers,
	}, nil
}

func loadDataset(path string) (*dataset.Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return dataset.Default(), nil
	}
	ds, err := dataset.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return ds, nil
}

// newSource picks the HTTP upstream when one is configured and the
// simulated source otherwise.
func newSource(cfg config.Config, ds *dataset.Dataset, m *metrics.Metrics, logger *slog.Logger) (load.Source, error) {
	if strings.TrimSpace(cfg.UpstreamURL) == "" {
		seed := cfg.LoadSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		src, err := load.NewSimulatedSource(ds.SeriesCopy(), cfg.LoadDelay, cfg.LoadFailureRate, seed)
		if err != nil {
			return nil, fmt.Errorf("simulated source: %w", err)
		}
		logger.Info("load_source_configured",
			slog.String("source", src.Name()),
			slog.Duration("delay", cfg.LoadDelay),
			slog.Float64("failure_rate", cfg.LoadFailureRate),
		)
		return src, nil
	}

	cbCfg, err := circuitbreaker.LoadConfigFromProperties(cfg.CircuitPropertiesPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logger.Info("circuit_properties_missing", slog.String("path", cfg.CircuitPropertiesPath))
		cbCfg = circuitbreaker.DefaultConfig()
	}
	client := circuitbreaker.NewHTTPClient(upstreamBreakerName, cbCfg, "", &http.Client{Timeout: cfg.LoadTimeout})
	client.Breaker().OnStateChange(func(name string, from, to circuitbreaker.State) {
		m.SetCircuitBreakerState(name, float64(to))
		logger.Warn("upstream_breaker_transition",
			slog.String("name", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	m.SetCircuitBreakerState(upstreamBreakerName, float64(circuitbreaker.Closed))
	src, err := load.NewHTTPSource(cfg.UpstreamURL, client)
	if err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}
	logger.Info("load_source_configured", slog.String("source", src.Name()), slog.String("url", cfg.UpstreamURL))
	return src, nil
}

func newWorkers(cfg config.Config, store *series.Store, accepts series.Accepts, m *metrics.Metrics, logger *slog.Logger) ([]worker, error) {
	onApplied := func(source string, _ series.Update, err error) {
		m.SeriesUpdate(source, err)
	}
	var out []worker
	if cfg.SeriesConsumerEnabled {
		consumerLogger := logger.With(slog.String("component", "series_consumer"))
		consumer, err := series.NewConsumer(series.ConsumerConfig{
			Brokers:     cfg.KafkaBrokers,
			Topic:       cfg.SeriesTopic,
			GroupID:     cfg.SeriesGroupID,
			PollTimeout: cfg.SeriesPollTimeout,
		}, store, accepts, onApplied, consumerLogger)
		if err != nil {
			return nil, fmt.Errorf("series consumer init: %w", err)
		}
		consumerLogger.Info("series_consumer_config",
			slog.String("topic", cfg.SeriesTopic),
			slog.String("group", cfg.SeriesGroupID),
			slog.String("brokers", strings.Join(cfg.KafkaBrokers, ",")),
			slog.Duration("pollTimeout", cfg.SeriesPollTimeout),
		)
		out = append(out, worker{name: "series_consumer", run: consumer.Run, close: consumer.Close})
	}
	if cfg.MQTTEnabled {
		sub, err := series.NewSubscriber(series.SubscriberConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClient,
			QoS:      byte(cfg.MQTTQoS),
		}, store, accepts, onApplied, logger.With(slog.String("component", "series_mqtt")))
		if err != nil {
			closeWorkers(out, logger)
			return nil, fmt.Errorf("mqtt subscriber init: %w", err)
		}
		out = append(out, worker{name: "series_mqtt", run: sub.Run})
	}
	return out, nil
}

func closeWorkers(workers []worker, logger *slog.Logger) {
	for _, w := range workers {
		if w.close == nil {
			continue
		}
		if err := w.close(); err != nil {
			logger.Error("worker_close_failed", slog.String("worker", w.name), slog.Any("err", err))
		}
	}
}

// Logger exposes the configured slog logger so callers (such as main)
// can emit structured logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

type workerResult struct {
	name string
	err  error
}

// Run blocks until the context is cancelled, the HTTP server terminates
// or a live update input fails. It mounts the dashboard, which starts the
// first data load, and shuts every component down on exit.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.publisher.Start(ctx); err != nil {
		return fmt.Errorf("start event publisher: %w", err)
	}
	if err := a.loader.Start(ctx); err != nil {
		_ = a.publisher.Stop(context.Background())
		return fmt.Errorf("mount dashboard: %w", err)
	}

	httpCh := make(chan error, 1)
	go func() {
		a.health.SetReady(true)
		a.logger.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
		httpCh <- a.server.ListenAndServe()
	}()

	workerCh := make(chan workerResult, len(a.workers))
	for _, w := range a.workers {
		go func(w worker) {
			workerCh <- workerResult{name: w.name, err: w.run(ctx)}
		}(w)
	}
	pending := len(a.workers)

	var runErr error
	stopped := false
	done := ctx.Done()
	for httpCh != nil || pending > 0 {
		select {
		case err := <-httpCh:
			httpCh = nil
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http_server_error", slog.Any("err", err))
				if runErr == nil {
					runErr = err
				}
			} else {
				a.logger.Info("server_closed")
			}
			cancel()
		case res := <-workerCh:
			pending--
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				a.logger.Error("worker_failed", slog.String("worker", res.name), slog.Any("err", res.err))
				if runErr == nil {
					runErr = fmt.Errorf("%s: %w", res.name, res.err)
				}
			} else {
				a.logger.Info("worker_stopped", slog.String("worker", res.name))
			}
			cancel()
		case <-done:
			a.shutdown()
			stopped = true
			// keep draining httpCh and workerCh
			done = nil
		}
	}
	if !stopped {
		a.shutdown()
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("shutdown_complete")
	return nil
}

func (a *Application) shutdown() {
	a.logger.Info("shutdown_signal")
	a.health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("server_shutdown_failed", slog.Any("err", err))
	}
	a.board.ClearTooltip()
	a.loader.Stop()
	if err := a.publisher.Stop(shutdownCtx); err != nil {
		a.logger.Error("event_publisher_stop_failed", slog.Any("err", err))
	}
}

// Close flushes and closes resources owned by the application instance.
func (a *Application) Close() error {
	closeWorkers(a.workers, a.logger)
	a.workers = nil
	if a.logFile == nil {
		return nil
	}
	if err := a.logFile.Close(); err != nil {
		return err
	}
	a.logFile = nil
	return nil
}
