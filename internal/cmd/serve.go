package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/gesturecast/internal/action"
	"github.com/ayusman/gesturecast/internal/app"
	"github.com/ayusman/gesturecast/internal/broadcast"
	"github.com/ayusman/gesturecast/internal/capture"
	"github.com/ayusman/gesturecast/internal/config"
	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/discovery"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/logging"
	"github.com/ayusman/gesturecast/internal/plugin"
	"github.com/ayusman/gesturecast/internal/queue"
	"github.com/ayusman/gesturecast/internal/replay"
	"github.com/ayusman/gesturecast/internal/server"
	"github.com/ayusman/gesturecast/internal/store"
	"github.com/ayusman/gesturecast/internal/tray"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the camera pipeline and the WebSocket gesture stream",
	Long: `Serve captures frames from the camera, recognizes gestures and broadcasts
them to every client connected to /ws. It also serves /health, /metrics and
the settings and action binding API.

With --replay the camera and landmark model are replaced by a looping
landmark recording, which is handy for wiring up subscribers.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort   int
	serveReplay string
	serveTray   bool
)

func init() {
	f := serveCmd.Flags()
	f.IntVarP(&servePort, "port", "p", 0, "Listen port (overrides GESTURECAST_PORT)")
	f.StringVar(&serveReplay, "replay", "", "Drive recognition from a landmark recording instead of the camera")
	f.BoolVar(&serveTray, "tray", false, "Show the system tray menu (overrides GESTURECAST_TRAY_ENABLED)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("tray") {
		cfg.TrayEnabled = serveTray
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("GestureCast starting", "version", Version, "addr", cfg.Addr())

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	thresholds, err := st.Settings().Thresholds(cfg.Thresholds())
	if err != nil {
		slog.Warn("Ignoring stored thresholds", "error", err)
	}
	enabled, err := st.Settings().RecognitionEnabled()
	if err != nil {
		slog.Warn("Ignoring stored recognition toggle", "error", err)
		enabled = true
	}

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		slog.Warn("Plugin discovery failed", "dir", cfg.PluginDir, "error", err)
	}
	slog.Info("Plugins loaded", "count", len(plugins.List()))

	camera, det, err := openSource(cfg)
	if err != nil {
		return err
	}

	events := queue.New[gesture.Event]()
	registry := broadcast.NewRegistry()

	application, err := app.New(app.Config{
		Camera:          camera,
		Detector:        det,
		Queue:           events,
		Settings:        st.Settings(),
		Thresholds:      thresholds,
		MotionThreshold: cfg.MotionThreshold,
		Enabled:         enabled,
	})
	if err != nil {
		det.Close()
		return fmt.Errorf("failed to create recognition pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := action.NewDispatcher(st.Actions(), plugins, plugin.NewExecutor(plugin.DefaultTimeout), action.DefaultMaxInFlight)
	sinks := []broadcast.Sink{dispatcher}

	var tr *tray.Tray
	if cfg.TrayEnabled {
		tr = tray.New(enabled)
		tr.OnToggle(application.SetEnabled)
		tr.CountClients(registry.Count)
		tr.OnSettings(func() { openBrowser(fmt.Sprintf("http://localhost:%d/", cfg.Port)) })
		sinks = append(sinks, tr)
	}

	broadcaster := broadcast.NewBroadcaster(events, registry, broadcast.Options{
		PollInterval: cfg.PollInterval,
		SendTimeout:  cfg.SendTimeout,
		Sinks:        sinks,
	})

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		slog.Info("Serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:    staticDir,
		Registry:     registry,
		PingInterval: cfg.PingInterval,
		Limits:       server.NewConnectionLimits(cfg.MaxSubscribers, cfg.MaxSubscribersPerIP, cfg.ConnectRate, cfg.ConnectBurst),
		Actions:      st.Actions(),
		Plugins:      plugins,
		Controller:   application,
		Preview:      application,
	})

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		application.Stop()
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	if err := application.Start(ctx); err != nil {
		ln.Close()
		application.Stop()
		return fmt.Errorf("failed to start recognition: %w", err)
	}

	if cfg.PluginWatch {
		if err := plugins.Watch(ctx); err != nil {
			slog.Debug("Plugin directory not watched", "error", err)
		}
	}

	broadcastDone := make(chan struct{})
	go func() {
		defer close(broadcastDone)
		broadcaster.Run(ctx)
	}()

	var advertiser *discovery.Advertiser
	if cfg.MDNSEnabled {
		advertiser, err = discovery.Advertise(cfg.Port, Version)
		if err != nil {
			slog.Warn("mDNS advertisement disabled", "error", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	quit := make(chan struct{})
	var quitOnce sync.Once
	requestQuit := func() { quitOnce.Do(func() { close(quit) }) }

	shutdown := func() error {
		err := awaitShutdown(quit, serveErr)

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		application.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := advertiser.Shutdown(); err != nil {
			slog.Error("mDNS shutdown error", "error", err)
		}

		cancel()
		<-broadcastDone
		dispatcher.Close()

		slog.Info("GestureCast stopped")
		return err
	}

	if tr == nil {
		return shutdown()
	}

	// The tray owns the main goroutine until it quits.
	tr.OnQuit(requestQuit)
	result := make(chan error, 1)
	go func() {
		result <- shutdown()
		tr.Quit()
	}()
	tr.Run()
	requestQuit()
	return <-result
}

// openSource returns the frame source and landmark detector: the camera and
// MediaPipe, or a looping recording when --replay is set.
func openSource(cfg *config.Config) (capture.Camera, detector.Detector, error) {
	if serveReplay != "" {
		rec, err := replay.Load(serveReplay)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Replaying landmark recording", "file", serveReplay, "frames", len(rec.Frames))
		frames := capture.SyntheticFrames(2, rec.Width, rec.Height)
		return capture.NewMockCamera(frames, true), replay.NewDetector(rec, true), nil
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.MaxHands,
		MinConfidence:   cfg.MinDetectConf,
		MinTrackingConf: cfg.MinTrackConf,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create hand detector (try --replay): %w", err)
	}
	return capture.NewCamera(cfg.CameraID), det, nil
}

// awaitShutdown blocks until a signal, a quit request or a server failure.
func awaitShutdown(quit <-chan struct{}, serveErr <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Shutdown signal received, cleaning up...", "signal", sig.String())
		return nil
	case <-quit:
		slog.Info("Quit requested, cleaning up...")
		return nil
	case err := <-serveErr:
		if err == nil {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// findWebDir searches for the web directory next to the working directory
// and under dataDir. Returns "" if none exists.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

func openBrowser(url string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	if err := c.Start(); err != nil && !errors.Is(err, exec.ErrNotFound) {
		slog.Warn("Failed to open browser", "url", url, "error", err)
	}
}
