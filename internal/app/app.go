// Package app wires capture, landmark detection, the proximity engine,
// the overlay and notifications into the running Hands-Off application.
package app

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/capture"
	"github.com/ayusman/handsoff/internal/detector"
	"github.com/ayusman/handsoff/internal/engine"
	"github.com/ayusman/handsoff/internal/overlay"
	"github.com/ayusman/handsoff/internal/plugin"
	"github.com/ayusman/handsoff/internal/proximity"
	"github.com/ayusman/handsoff/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	// Store supplies persisted settings, weights and notifier bindings. May
	// be nil, in which case defaults apply and no plugins are bound.
	Store *store.Store
	// Camera overrides the webcam. When nil a camera is opened on CameraID.
	Camera   capture.Camera
	CameraID int
	// Detector overrides landmark detection. When nil the MediaPipe service
	// is used if available, otherwise a detector that never sees anything.
	Detector     detector.Detector
	PluginDir    string
	MotionThresh float64
	// Muted forces notifications off regardless of the stored setting.
	Muted       bool
	OverlayHold time.Duration
	// Observers receive every dispatched alert, muted or not, on a
	// background goroutine. The dashboard event hub is one.
	Observers []alert.Notifier
	Logger    *zap.Logger
}

// App is the main application that turns camera frames into proximity
// alerts.
type App struct {
	config    Config
	logger    *zap.Logger
	camera    capture.Camera
	motion    *capture.MotionDetector
	rate      *capture.FrameRate
	detector  detector.Detector
	engine    *engine.Engine
	renderer  *overlay.Renderer
	pluginMgr *plugin.Manager
	executor  *plugin.Executor
	sounds    *alert.Worker
	observers *alert.Worker

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	onAlert func(alert.Alert)

	frameMu   sync.RWMutex
	jpeg      []byte
	frameSeq  uint64
	landmarks detector.Landmarks
}

// New creates a new App. Settings, weights and the mute flag are loaded from
// the store; load failures fall back to defaults and are logged.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	logger := config.Logger

	a := &App{
		config:    config,
		logger:    logger,
		camera:    config.Camera,
		motion:    capture.NewMotionDetector(config.MotionThresh),
		rate:      capture.NewFrameRate(capture.IdleFPS, capture.ActiveFPS, capture.IdleAfter),
		detector:  config.Detector,
		renderer:  overlay.NewRenderer(config.OverlayHold),
		pluginMgr: plugin.NewManager(config.PluginDir, logger.Named("plugin")),
		executor:  plugin.NewExecutor(plugin.DefaultTimeout),
		enabled:   true,
	}

	if a.camera == nil {
		cc := capture.DefaultConfig()
		cc.DeviceID = config.CameraID
		a.camera = capture.NewCamera(cc)
	}

	if a.detector == nil {
		dc := detector.DefaultConfig()
		dc.Logger = logger.Named("detector")
		if mp, err := detector.NewMediaPipeDetector(dc); err == nil {
			a.detector = mp
			logger.Info("using MediaPipe landmark detection")
		} else {
			logger.Warn("MediaPipe not available, landmarks disabled", zap.Error(err))
			a.detector = detector.NewMockDetector()
		}
	}

	ecfg := a.loadEngineConfig()

	notifier := plugin.NewNotifier(a.pluginMgr, a.executor, a.bindings(), logger.Named("plugin"))
	a.sounds = alert.NewWorker(notifier, alert.WorkerConfig{
		JobTimeout: a.executor.Timeout(),
		Logger:     logger.Named("notify"),
	})
	ecfg.Queue = a.sounds

	if len(config.Observers) > 0 {
		a.observers = alert.NewWorker(alert.Fanout(config.Observers), alert.WorkerConfig{
			QueueSize: 16,
			Logger:    logger.Named("observers"),
		})
	}

	a.engine = engine.New(ecfg)
	return a
}

func (a *App) loadEngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Logger = a.logger.Named("engine")
	cfg.Muted = a.config.Muted

	s := a.config.Store
	if s == nil {
		return cfg
	}

	if t, err := s.Settings().LoadThresholds(cfg.Thresholds); err != nil {
		a.logger.Warn("failed to load thresholds, using defaults", zap.Error(err))
	} else {
		cfg.Thresholds = t
	}

	if sens, err := s.Sensitivity().Load(cfg.Sensitivity); err != nil {
		a.logger.Warn("failed to load sensitivity, using defaults", zap.Error(err))
	} else {
		cfg.Sensitivity = sens
	}

	if muted, err := s.Settings().Muted(); err != nil {
		a.logger.Warn("failed to load mute flag", zap.Error(err))
	} else if muted {
		cfg.Muted = true
	}

	return cfg
}

// bindings looks up enabled notifiers in the store on every alert, so API
// edits take effect without a restart.
func (a *App) bindings() plugin.Bindings {
	return plugin.BindingsFunc(func(level proximity.Level) ([]plugin.Binding, error) {
		if a.config.Store == nil {
			return nil, nil
		}
		notifiers, err := a.config.Store.Notifiers().ListEnabledForLevel(level)
		if err != nil {
			return nil, err
		}
		out := make([]plugin.Binding, 0, len(notifiers))
		for _, n := range notifiers {
			out = append(out, plugin.Binding{Plugin: n.PluginName, Action: n.ActionName, Config: n.Config})
		}
		return out, nil
	})
}

// SetEnabled enables or disables monitoring. Disabling closes any open
// proximity episode.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	was := a.enabled
	a.enabled = enabled
	a.mu.Unlock()

	if was && !enabled {
		a.engine.Process(nil, nil, time.Now())
		a.renderer.Clear()
	}
	if was != enabled {
		a.logger.Info("monitoring", zap.Bool("enabled", enabled))
	}
}

// IsEnabled returns whether monitoring is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// OnAlert registers a callback run synchronously for every dispatched
// alert. It must not block.
func (a *App) OnAlert(fn func(alert.Alert)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onAlert = fn
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.rate.Reset()
	a.camera.SetFPS(a.rate.FPS())

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.logger.Info("detection pipeline started")
	return nil
}

// Stop halts the frame loop, releases the camera and detector, and waits
// for queued notifications.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("error closing camera", zap.Error(err))
	}
	a.motion.Close()
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("error closing detector", zap.Error(err))
	}

	a.sounds.Close()
	if a.observers != nil {
		a.observers.Close()
	}

	a.logger.Info("detection pipeline stopped")
}

// LatestJPEG returns the most recent annotated frame and its sequence
// number.
func (a *App) LatestJPEG() ([]byte, uint64) {
	a.frameMu.RLock()
	defer a.frameMu.RUnlock()
	return a.jpeg, a.frameSeq
}

// Landmarks returns the landmarks seen on the most recent frame.
func (a *App) Landmarks() detector.Landmarks {
	a.frameMu.RLock()
	defer a.frameMu.RUnlock()
	return a.landmarks
}

func (a *App) publishFrame(frame *gocv.Mat, lm detector.Landmarks) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.logger.Debug("jpeg encode failed", zap.Error(err))
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.frameMu.Lock()
	a.jpeg = data
	a.frameSeq++
	a.landmarks = lm
	a.frameMu.Unlock()
}

// Engine returns the proximity engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// FrameRate returns the adaptive frame rate controller.
func (a *App) FrameRate() *capture.FrameRate {
	return a.rate
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Executor returns the plugin executor.
func (a *App) Executor() *plugin.Executor {
	return a.executor
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}
