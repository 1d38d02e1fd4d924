package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/harun/yordamchi/internal/config"
	"github.com/harun/yordamchi/internal/locale"
	"github.com/harun/yordamchi/internal/logger"
	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/telegram"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/harun/yordamchi/pkg/commandqueue"
	"github.com/harun/yordamchi/pkg/filehost"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/gate"
	"github.com/harun/yordamchi/pkg/llm"
	"github.com/harun/yordamchi/pkg/registry"
	"github.com/harun/yordamchi/pkg/render"
	"github.com/harun/yordamchi/pkg/session"
	"github.com/harun/yordamchi/pkg/weather"
	"github.com/harun/yordamchi/pkg/workflows"
)

// poller delivers platform updates until its context ends.
type poller interface {
	Run(ctx context.Context, handle telegram.UpdateFunc) error
}

// platform is the connected chat platform.
type platform struct {
	poller poller
	api    telegram.API
	token  string
}

// Version is reported on traces; the CLI sets it before New.
var Version = "dev"

// connect authenticates against the Bot API. Tests replace it.
var connect = func(cfg *config.TelegramConfig) (*platform, error) {
	bot, err := telegram.New(cfg)
	if err != nil {
		return nil, err
	}
	return &platform{poller: bot, api: bot.API(), token: bot.Token()}, nil
}

// Daemon represents the Yordamchi daemon service
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	queue      *commandqueue.CommandQueue
	sessions   *session.Store
	registry   registry.Store
	catalog    *locale.Catalog
	watcher    *locale.Watcher
	router     *fsm.Router
	workflows  *workflows.Service
	classifier *telegram.Classifier
	presenter  *telegram.Presenter

	platform *platform

	// Internal
	eventLoop     *EventLoop
	lifecycle     *LifecycleManager
	metricsServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status reports whether the daemon runs and for how long.
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
	Sessions  int
	Lanes     int
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if err := config.ResolvePaths(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()
	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := tracing.Init(tracing.Config{ServiceName: "yordamchi", ServiceVersion: Version, SampleRatio: cfg.Metrics.TraceSampleRatio}); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	} else {
		d.tracingEnabled = true
	}

	if err := d.initializeCoreModules(); err != nil {
		d.abort()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	if err := d.initializeServices(); err != nil {
		d.abort()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	eventLoop, err := NewEventLoop(d)
	if err != nil {
		d.abort()
		return nil, fmt.Errorf("failed to create event loop: %w", err)
	}
	d.eventLoop = eventLoop
	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// abort releases whatever New managed to open.
func (d *Daemon) abort() {
	d.cancel()
	if d.watcher != nil {
		_ = d.watcher.Stop()
	}
	if d.registry != nil {
		_ = d.registry.Close()
	}
	if d.queue != nil {
		_ = d.queue.Close()
	}
	if d.tracingEnabled {
		_ = tracing.Shutdown(context.Background())
		d.tracingEnabled = false
	}
}

// initializeCoreModules opens the state the daemon owns: queue, sessions, registry, texts.
func (d *Daemon) initializeCoreModules() error {
	tg := d.config.Telegram
	d.queue = commandqueue.NewWithConfig(commandqueue.Config{
		DedupTTL:     config.Duration(tg.DedupeTTLSeconds),
		MaxLaneDepth: tg.MaxPendingPerUser,
	})
	d.logger.Info().Msg("Command queue initialized")

	if err := observability.InitAuditLogger(d.config.Logging.AuditFile); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
	} else {
		d.logger.Info().Str("path", d.config.Logging.AuditFile).Msg("Audit logger initialized")
	}

	d.sessions = session.NewStore()
	if d.config.Session.Restore {
		if err := d.sessions.LoadSnapshot(d.config.Session.SnapshotPath); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to restore sessions, starting empty")
		}
	}
	d.logger.Info().Int("sessions", d.sessions.Len()).Msg("Session store initialized")

	reg, err := registry.Open(registry.Config{Driver: d.config.Registry.Driver, Path: d.config.Registry.Path})
	if err != nil {
		return fmt.Errorf("failed to open user registry: %w", err)
	}
	d.registry = reg
	if n, err := reg.Count(d.ctx); err == nil {
		observability.SetRegisteredUsers(n)
	}
	d.logger.Info().Str("driver", d.config.Registry.Driver).Msg("User registry initialized")

	catalog, err := locale.New(d.config.Locale.OverridePath)
	if err != nil {
		return fmt.Errorf("failed to load texts: %w", err)
	}
	d.catalog = catalog

	if d.config.Locale.Watch && d.config.Locale.OverridePath != "" {
		watcher, err := locale.Watch(catalog, d.logger.GetZerolog(), func(err error) {
			status := "success"
			if err != nil {
				status = "rejected"
			}
			observability.RecordConfigAudit(context.Background(), "texts_reload", "file", map[string]interface{}{
				"path":   catalog.OverridePath(),
				"status": status,
			})
		})
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to watch text overrides")
		} else {
			d.watcher = watcher
		}
	}
	d.logger.Info().Strs("languages", catalog.Languages()).Msg("Texts loaded")

	return nil
}

// initializeServices connects the platform and the adapters and builds the router.
func (d *Daemon) initializeServices() error {
	p, err := connect(&d.config.Telegram)
	if err != nil {
		return fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	d.platform = p
	d.presenter = telegram.NewPresenter(p.api)
	d.classifier = telegram.NewClassifier(d.catalog)

	aiCfg := d.config.AI
	timeouts := d.config.Timeouts
	adapters, err := llm.New(llm.Config{
		Provider:           aiCfg.Provider,
		APIKey:             aiCfg.APIKey,
		BaseURL:            aiCfg.BaseURL,
		Model:              aiCfg.Model,
		VisionModel:        aiCfg.VisionModel,
		TranscriptionModel: aiCfg.TranscriptionModel,
		SpeechModel:        aiCfg.SpeechModel,
		Voice:              aiCfg.Voice,
		Temperature:        aiCfg.Temperature,
		MaxTokens:          aiCfg.MaxTokens,
		Timeout:            config.Duration(timeouts.Chat),
	})
	if err != nil {
		return fmt.Errorf("failed to create AI adapters: %w", err)
	}
	d.logger.Info().Str("provider", aiCfg.Provider).Str("model", aiCfg.Model).Msg("AI adapters initialized")

	wcfg := d.config.Weather
	forecaster := weather.NewClient(weather.Config{
		APIKey:    wcfg.APIKey,
		BaseURL:   wcfg.BaseURL,
		Timeout:   config.Duration(timeouts.Weather),
		CacheSize: wcfg.CacheSize,
		CacheTTL:  config.Duration(wcfg.CacheTTLSeconds),
	})

	rcfg := d.config.Render
	deps := workflows.Deps{
		Presenter:   d.presenter,
		Media:       telegram.NewMedia(p.api, p.token, d.config.Telegram.MaxMediaMB),
		Catalog:     d.catalog,
		Chat:        adapters.Chat,
		Vision:      adapters.Vision,
		Transcriber: adapters.Transcriber,
		Speaker:     adapters.Speaker,
		Renderer: render.New(render.Options{
			QRSize:        rcfg.QRSize,
			SheetFormat:   rcfg.SheetFormat,
			CaptionFontPt: rcfg.CaptionFontPt,
			TitleMaxRunes: rcfg.TitleMaxChars,
		}),
		Weather:   forecaster,
		Languages: d.registry,
		Timeouts: workflows.Timeouts{
			Chat:          config.Duration(timeouts.Chat),
			Vision:        config.Duration(timeouts.Vision),
			Transcription: config.Duration(timeouts.Transcription),
			Speech:        config.Duration(timeouts.Speech),
			Weather:       config.Duration(timeouts.Weather),
			Render:        config.Duration(timeouts.Render),
			Upload:        config.Duration(timeouts.Upload),
			Media:         config.Duration(timeouts.Media),
		},
		Channel:        d.config.Gate.Channel,
		ChannelURL:     d.config.Gate.ChannelURL,
		SpeechMaxRunes: aiCfg.SpeechMaxChars,
	}

	fh := d.config.FileHost
	if uploader := filehost.New(filehost.Config{
		URL:       fh.URL,
		FieldName: fh.FieldName,
		Timeout:   config.Duration(timeouts.Upload),
		MaxBytes:  int64(fh.MaxMB) * 1024 * 1024,
	}); uploader != nil {
		deps.Uploader = uploader
		d.logger.Info().Str("url", fh.URL).Msg("File host enabled")
	}

	d.workflows = workflows.New(deps)

	var oracle gate.Oracle
	if d.config.Gate.Enabled {
		oracle = telegram.NewMembership(p.api, d.config.Gate.Channel)
		d.logger.Info().Str("channel", d.config.Gate.Channel).Msg("Access gate enabled")
	}
	accessGate := gate.New(oracle, config.Duration(timeouts.Gate))

	table := fsm.NewTable()
	d.workflows.Register(table)
	d.router = fsm.NewRouter(table, d.sessions, accessGate, d.workflows)
	d.logger.Info().Int("routes", table.Len()).Msg("Router initialized")

	if d.config.Metrics.Enabled {
		addr := net.JoinHostPort(d.config.Metrics.Host, strconv.Itoa(d.config.Metrics.Port))
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		d.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}

	return nil
}

// Start starts the daemon: PID file, maintenance jobs, metrics and the update poller.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.Component("daemon").With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting Yordamchi daemon")

	if err := d.lifecycle.Start(); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if err := telegram.PublishCommands(d.platform.api, d.catalog); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish bot commands")
	}

	d.eventLoop.Start()
	logger.Info().Msg("Maintenance jobs scheduled")

	if d.metricsServer != nil {
		ln, err := net.Listen("tcp", d.metricsServer.Addr)
		if err != nil {
			logger.Warn().Err(err).Str("addr", d.metricsServer.Addr).Msg("Failed to start metrics server")
			d.metricsServer = nil
		} else {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				if err := d.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("Metrics server failed")
				}
			}()
			logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server started")
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.platform.poller.Run(d.ctx, d.handleUpdate); err != nil {
			logger.Error().Err(err).Msg("Update polling stopped")
		}
	}()

	logger.Info().Msg("Daemon started successfully")
	return nil
}

// Stop drains the queue, persists state and releases every resource.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.Component("daemon").With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping Yordamchi daemon")

	// Stop intake first so the queue can drain.
	d.cancel()

	d.eventLoop.Stop()
	logger.Info().Msg("Maintenance jobs stopped")

	d.eventLoop.HandleShutdown()

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if err := d.queue.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close command queue")
	}

	if err := d.sessions.SaveSnapshot(d.config.Session.SnapshotPath); err != nil {
		logger.Error().Err(err).Msg("Failed to save session snapshot")
	}

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop text watcher")
		}
	}

	if err := d.registry.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close user registry")
	}

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if d.tracingEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		d.tracingEnabled = false
	}

	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	logger.Info().Msg("Daemon stopped successfully")
	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:  d.running,
		Sessions: d.sessions.Len(),
		Lanes:    d.queue.LaneCount(),
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetQueue returns the command queue
func (d *Daemon) GetQueue() *commandqueue.CommandQueue {
	return d.queue
}

// GetSessionStore returns the session store
func (d *Daemon) GetSessionStore() *session.Store {
	return d.sessions
}

// GetRouter returns the event router
func (d *Daemon) GetRouter() *fsm.Router {
	return d.router
}

// GetRegistry returns the user registry
func (d *Daemon) GetRegistry() registry.Store {
	return d.registry
}
