package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/OCAP2/mapdrive/internal/camera"
	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/dispatcher"
	"github.com/OCAP2/mapdrive/internal/entity"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/input"
	"github.com/OCAP2/mapdrive/internal/logging"
	"github.com/OCAP2/mapdrive/internal/navigation"
	intOtel "github.com/OCAP2/mapdrive/internal/otel"
	"github.com/OCAP2/mapdrive/internal/routing"
	"github.com/OCAP2/mapdrive/internal/scene"
	"github.com/OCAP2/mapdrive/internal/store"
	"github.com/OCAP2/mapdrive/internal/telemetry"
	"github.com/OCAP2/mapdrive/internal/terrain"
	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// keyHold is how long a terminal key press keeps its action held. Terminals
// only report presses, and auto-repeat fills the gaps.
const keyHold = 300 * time.Millisecond

// app wires a session together.
type app struct {
	slogManager *logging.SlogManager
	log         *slog.Logger
	logFile     *os.File
	otel        *intOtel.Provider

	events      *dispatcher.Dispatcher
	store       store.Store
	ctrl        *entity.Controller
	snapshotter *entity.Snapshotter
	view        *camera.MapView
	composer    *camera.Composer
	nav         *navigation.Controller
	telemetry   *telemetry.Manager
	recorder    *telemetry.Recorder

	latch    *input.Latch
	models   map[string]core.ModelDescriptor
	start    config.StartConfig
	messages *messageLog
}

func newApp(configDir string, sessionStart time.Time) (_ *app, err error) {
	a := &app{
		slogManager: logging.NewSlogManager(AppName),
		latch:       input.NewLatch(keyHold),
		messages:    newMessageLog(5),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Console logging until the log file exists.
	a.slogManager.Setup(nil, "info", nil, nil)
	a.log = a.slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		a.log.Warn("Failed to load config, using defaults!", "error", err)
	}

	if err := a.setupLogging(sessionStart); err != nil {
		return nil, err
	}

	if a.models, err = config.GetModels(); err != nil {
		return nil, err
	}
	a.start = config.GetStartConfig()

	if err := a.setupEvents(); err != nil {
		return nil, err
	}

	if a.store, err = store.New(config.GetStorageConfig(), a.slogManager.Component("store")); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	tc := config.GetTerrainConfig()
	ground, err := terrain.New(tc.Type, tc.BaseElevation)
	if err != nil {
		return nil, err
	}

	a.ctrl, err = entity.New(entity.Dependencies{
		Loader:  &scene.HeadlessLoader{},
		Terrain: ground,
		Input:   a.latch,
		Store:   a.store,
		Events:  a.events,
		Logger:  a.slogManager.Component("entity"),
	}, entity.Options{
		Loop:    config.GetLoopConfig(),
		Physics: config.GetPhysicsConfig(),
	})
	if err != nil {
		return nil, err
	}

	if err := a.restoreEntity(context.Background()); err != nil {
		return nil, err
	}

	a.snapshotter = entity.NewSnapshotter(a.ctrl, config.GetStorageConfig().SnapshotInterval, a.slogManager.Component("snapshot"))
	a.snapshotter.Start()

	camCfg := config.GetCameraConfig()
	a.view = &camera.MapView{}
	a.composer = camera.NewComposer(a.view, a.ctrl,
		camera.NewScalars(camCfg, a.store, a.slogManager.Component("camera")), camCfg)

	a.nav = navigation.New(a.router(), a.ctrl, navigation.DispatchFeedback{Events: a.events},
		a.slogManager.Component("navigation"), navigation.OptionsFromConfig(config.GetNavigationConfig()))

	a.setupTelemetry()

	a.log.Info("Session ready", "version", CurrentVersion, "mode", a.ctrl.Mode())
	return a, nil
}

func (a *app) setupLogging(sessionStart time.Time) error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}

	path := logging.LogFilePath(logsDir, AppName, sessionStart)
	if _, err := os.Stat(path); err == nil {
		os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = f

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(otelCfg, f)
	if err != nil {
		a.log.Error("Failed to initialize OTel provider", "error", err)
		a.otel, _ = intOtel.New(config.OTelConfig{}, nil)
	} else if otelCfg.Enabled {
		a.log.Info("OTel provider initialized", "file", path, "endpoint", otelCfg.Endpoint)
	}

	var provider *sdklog.LoggerProvider
	if a.otel.Enabled() {
		provider = a.otel.LoggerProvider()
	}
	a.slogManager.Setup(f, viper.GetString("logLevel"), provider, func() []slog.Attr {
		if a.ctrl == nil {
			return nil
		}
		return a.ctrl.LogAttrs()
	})
	a.log = a.slogManager.Logger()
	a.log.Info("Logging to file", "path", path)
	return nil
}

// setupEvents creates the feedback bus and routes every kind to the HUD.
func (a *app) setupEvents() error {
	zl := zerolog.New(a.logFile).With().Timestamp().Str("component", "dispatcher").Logger()
	d, err := dispatcher.New(logging.NewDispatcherLogger(zl))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	for _, kind := range []string{
		dispatcher.KindStateSwitched,
		dispatcher.KindFlyingChanged,
		dispatcher.KindNavigationStarted,
		dispatcher.KindArrivalZone,
		dispatcher.KindArrivalZoneCleared,
		dispatcher.KindArrived,
		dispatcher.KindNavigationCancelled,
	} {
		d.Register(kind, func(e dispatcher.Event) (any, error) {
			if msg := describeEvent(e); msg != "" {
				a.messages.Add(msg)
			}
			return nil, nil
		}, dispatcher.Buffered(32), dispatcher.Logged())
	}
	a.events = d
	return nil
}

// restoreEntity places the entity where the last session left it, or at the
// configured start, and enters the matching movement state.
func (a *app) restoreEntity(ctx context.Context) error {
	mode := a.start.Mode
	saved, ok, err := a.ctrl.Restore()
	if err != nil {
		a.log.Warn("Failed to restore entity, starting fresh", "error", err)
		ok = false
	}

	if ok {
		mode = saved.Mode
		if desc, found := a.models[saved.ModelID]; found {
			return a.ctrl.SwitchState(ctx, mode, desc)
		}
	} else {
		pos, _, err := geo.LngLatFromString(a.start.Position)
		if err != nil {
			return fmt.Errorf("invalid start position %q: %w", a.start.Position, err)
		}
		if err := a.ctrl.SetPosition(pos); err != nil {
			return err
		}
	}

	desc, err := a.modelFor(mode)
	if err != nil {
		return err
	}
	return a.ctrl.SwitchState(ctx, mode, desc)
}

func (a *app) modelFor(mode core.Mode) (core.ModelDescriptor, error) {
	id := a.start.CarModel
	if mode == core.ModeWalking {
		id = a.start.WalkingModel
	}
	desc, ok := a.models[id]
	if !ok {
		return core.ModelDescriptor{}, fmt.Errorf("no model %q for mode %s", id, mode)
	}
	return desc, nil
}

func (a *app) router() routing.Service {
	rc := config.GetRoutingConfig()
	if rc.ServerURL == "" {
		return routing.Straight{Speed: 10}
	}
	return routing.ByMode{
		Car:     routing.New(rc.ServerURL, rc.CarProfile, rc.Timeout),
		Walking: routing.New(rc.ServerURL, rc.WalkingProfile, rc.Timeout),
		Mode:    a.ctrl.Mode,
	}
}

func (a *app) setupTelemetry() {
	tc := config.GetTelemetryConfig()
	zl := zerolog.New(a.logFile).With().Timestamp().Str("component", "telemetry").Logger()

	a.telemetry = telemetry.NewManager(tc, zl)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch err := a.telemetry.Connect(ctx); {
	case errors.Is(err, telemetry.ErrDisabled):
		return
	case err != nil:
		a.log.Error("Failed to set up telemetry", "error", err)
		return
	}
	a.recorder = telemetry.NewRecorder(a.telemetry, a.ctrl, a.nav, tc.Interval, zl)
	a.recorder.Start()
}

// close stops background work and flushes state and logs.
func (a *app) close() error {
	var errs []error

	if a.recorder != nil {
		a.recorder.Stop()
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Close())
	}
	if a.nav != nil {
		a.nav.CancelNavigation()
	}
	if a.snapshotter != nil {
		errs = append(errs, a.snapshotter.Stop())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.events != nil {
		a.events.Close()
	}

	if n := a.slogManager.RejectedRecords(); n > 0 && a.log != nil {
		a.log.Warn("Log sinks rejected records", "count", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs = append(errs, a.slogManager.Flush(ctx))
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
