package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/app"
	"github.com/ayusman/handsoff/internal/logger"
	"github.com/ayusman/handsoff/internal/server"
	"github.com/ayusman/handsoff/internal/store"
	"github.com/ayusman/handsoff/internal/tray"
)

// Version is the application version.
const Version = "0.1.0"

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// traySyncInterval is how often the tray picks up changes made from the
// dashboard.
const traySyncInterval = 2 * time.Second

// Options holds the command line configuration.
type Options struct {
	CameraID  int
	Addr      string
	DataDir   string
	PluginDir string
	WebDir    string
	LogLevel  string
	LogFormat string
	Muted     bool
	NoTray    bool
}

var opts Options

var rootCmd = &cobra.Command{
	Use:          "handsoff",
	Short:        "Webcam face touch alerts",
	Version:      Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), opts)
	},
}

// Execute runs the root command with a context cancelled on SIGINT or
// SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&opts.CameraID, "camera", 0, "camera device index")
	flags.StringVar(&opts.Addr, "addr", "127.0.0.1:8080", "dashboard listen address")
	flags.StringVar(&opts.DataDir, "data-dir", "", "directory for the settings database (default ~/.handsoff)")
	flags.StringVar(&opts.PluginDir, "plugin-dir", "", "notification plugin directory (default <data-dir>/plugins)")
	flags.StringVar(&opts.WebDir, "web-dir", "", "dashboard static files (default: search web, ../web, <data-dir>/web)")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&opts.LogFormat, "log-format", "console", "log format: console or json")
	flags.BoolVar(&opts.Muted, "muted", false, "start with alert sounds muted")
	flags.BoolVar(&opts.NoTray, "no-tray", false, "run without the system tray")
}

func run(ctx context.Context, o Options) error {
	log, err := logger.New(o.LogLevel, o.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	dataDir, err := resolveDataDir(o.DataDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(filepath.Join(dataDir, "handsoff.db"))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	pluginDir := o.PluginDir
	if pluginDir == "" {
		pluginDir = filepath.Join(dataDir, "plugins")
	}

	hub := server.NewEventHub(log.Named("events"))

	a := app.New(app.Config{
		Store:     st,
		CameraID:  o.CameraID,
		PluginDir: pluginDir,
		Muted:     o.Muted,
		Observers: []alert.Notifier{hub},
		Logger:    log,
	})
	defer a.Stop()

	if err := a.DiscoverPlugins(); err != nil {
		log.Warn("plugin discovery failed", zap.String("dir", pluginDir), zap.Error(err))
	} else {
		log.Info("plugins loaded", zap.Int("count", len(a.PluginManager().List())))
	}

	webDir := o.WebDir
	if webDir == "" {
		webDir = findWebDir(dataDir)
	}
	if webDir != "" {
		log.Info("serving static files", zap.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Engine:    a.Engine(),
		Store:     st,
		Plugins:   a.PluginManager(),
		Executor:  a.Executor(),
		Frames:    a,
		Events:    hub,
		Logger:    log.Named("http"),
	})

	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start camera: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe(o.Addr)
		cancel()
	}()

	if o.NoTray {
		<-ctx.Done()
	} else {
		runTray(ctx, cancel, a, st, dashboardURL(o.Addr), log)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	select {
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
	}

	log.Info("shutting down")
	return nil
}

// runTray blocks on the tray event loop until Quit is chosen or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, a *app.App, st *store.Store, url string, log *zap.Logger) {
	t := tray.New()
	eng := a.Engine()
	t.SetMuted(eng.Muted())

	a.OnAlert(t.SetAlert)
	t.OnToggle(a.SetEnabled)
	t.OnMute(func(muted bool) {
		eng.SetMuted(muted)
		if err := st.Settings().SetMuted(muted); err != nil {
			log.Warn("failed to persist mute flag", zap.Error(err))
		}
	})
	t.OnReset(func() { eng.ResetStats() })
	t.OnDashboard(func() {
		if err := openBrowser(url); err != nil {
			log.Warn("failed to open dashboard", zap.String("url", url), zap.Error(err))
		}
	})
	t.OnQuit(cancel)

	go func() {
		ticker := time.NewTicker(traySyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				t.SetMuted(eng.Muted())
				if n := eng.Snapshot(time.Now()).TotalAlerts; n != t.Count() {
					t.SetCount(n)
				}
			}
		}
	}()

	t.Run()
}

func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".handsoff"), nil
}

// findWebDir returns the first existing dashboard directory among "web",
// "../web", "../../web" and <dataDir>/web, or "" if none exists.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// dashboardURL turns a listen address into a browsable URL. An empty or
// unspecified host becomes localhost.
func dashboardURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		return errors.New("unsupported platform")
	}
	return cmd.Start()
}
