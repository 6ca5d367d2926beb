package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/config"
	"github.com/ayusman/reptrack/internal/detector"
	"github.com/ayusman/reptrack/internal/exercise"
	"github.com/ayusman/reptrack/internal/server"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
	"github.com/ayusman/reptrack/internal/tray"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	withTray := flag.Bool("tray", false, "show the system tray controller")
	exerciseName := flag.String("exercise", "", "exercise to count (squat, dumbbell-curl, push-up, pull-up)")
	videoPath := flag.String("video", "", "count reps in a video file and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = cfg.NewLogger(os.Stdout)

	if *videoPath != "" {
		if err := runVideo(cfg, log, *exerciseName, *videoPath); err != nil {
			log.Error("video run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(cfg, log, *withTray); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// runVideo counts one video file to the end and prints the result.
func runVideo(cfg *config.Config, log *slog.Logger, name, path string) error {
	kind := cfg.Exercise()
	if name != "" {
		k, err := exercise.ParseKind(name)
		if err != nil {
			return err
		}
		kind = k
	}

	src, err := capture.NewVideoFile(path)
	if err != nil {
		return err
	}

	det, err := newDetector(cfg)
	if err != nil {
		return fmt.Errorf("pose detector unavailable: %w", err)
	}
	defer det.Close()

	mgr := session.NewManager(sessionConfig(cfg, nil, det, log))
	sess, err := mgr.Start(kind, src)
	if err != nil {
		return err
	}
	<-sess.Done()

	snap, err := mgr.Stop()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d\n", kind.Title(), snap.Count)
	return nil
}

func runServer(cfg *config.Config, log *slog.Logger, withTray bool) error {
	log.Info("reptrack starting", "db", cfg.Database.Path)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	defer st.Close()

	var det detector.Detector
	if mp, err := newDetector(cfg); err == nil {
		det = mp
		log.Info("using MediaPipe pose detection")
	} else {
		log.Warn("MediaPipe not available, sessions will see no landmarks", "error", err)
		det = detector.NewMockDetector()
	}
	defer det.Close()

	mgr := session.NewManager(sessionConfig(cfg, st, det, log))
	defer mgr.Close()

	webDir := cfg.Server.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Sessions:  mgr,
		CameraID:  cfg.Capture.CameraID,
		Logger:    log,
	})
	defer srv.Close()

	addr := cfg.Server.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	log.Info("server starting", "addr", addr)

	httpSrv := &http.Server{Handler: srv}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if withTray {
		runTray(cfg, log, mgr)
	} else {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			log.Info("shutting down", "signal", sig)
		case err := <-serveErr:
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
	return nil
}

// runTray blocks on the tray loop until Quit is chosen.
func runTray(cfg *config.Config, log *slog.Logger, mgr *session.Manager) {
	t := tray.New()
	dashboard := "http://" + cfg.Server.Addr()

	t.OnStart(func(k exercise.Kind) {
		if _, err := mgr.Start(k, capture.NewCamera(cfg.Capture.CameraID)); err != nil {
			log.Error("failed to start session", "exercise", k.String(), "error", err)
		}
	})
	t.OnStop(func() {
		if _, err := mgr.Stop(); err != nil && !errors.Is(err, session.ErrNoSession) {
			log.Error("failed to stop session", "error", err)
		}
	})
	t.OnDashboard(func() {
		if err := openBrowser(dashboard); err != nil {
			log.Warn("failed to open browser", "url", dashboard, "error", err)
		}
	})

	done := make(chan struct{})
	t.OnQuit(func() { close(done) })

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				snap, ok := mgr.Snapshot()
				state := exercise.State{Count: snap.Count, Stage: snap.Stage}
				t.SetStatus(state, ok && !snap.Finished)
			}
		}
	}()

	t.Run()
}

func newDetector(cfg *config.Config) (detector.Detector, error) {
	dc := detector.DefaultConfig()
	dc.Script = cfg.Detector.Script
	dc.Python = cfg.Detector.Python
	dc.MinConfidence = cfg.Detector.MinDetectionConfidence
	dc.MinTrackingConf = cfg.Detector.MinTrackingConfidence
	dc.ModelComplexity = cfg.Detector.ModelComplexity

	mp, err := detector.NewMediaPipeDetector(dc)
	if err != nil {
		return nil, err
	}
	return mp, nil
}

func sessionConfig(cfg *config.Config, st *store.Store, det detector.Detector, log *slog.Logger) session.Config {
	return session.Config{
		Store:           st,
		Detector:        det,
		Logger:          log,
		Mirror:          cfg.Capture.Mirror,
		Scale:           cfg.Capture.Scale,
		MinVisibility:   cfg.Tracking.MinVisibility,
		MotionThreshold: cfg.Capture.MotionThreshold,
		MotionHold:      cfg.Capture.MotionHold,
		Preview:         cfg.Tracking.Preview,
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
