package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/app"
	"github.com/ayusman/gymbro/internal/config"
	"github.com/ayusman/gymbro/internal/logging"
	"github.com/ayusman/gymbro/internal/metrics"
	"github.com/ayusman/gymbro/internal/pose"
	"github.com/ayusman/gymbro/internal/server"
	"github.com/ayusman/gymbro/internal/store"
	"github.com/ayusman/gymbro/internal/stream"
)

func main() {
	fmt.Println("gymbro - exercise form analysis")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "", "path for the TOML config file (defaults apply when empty)")
	replayPath := flag.String("replay", "", "JSON Lines landmark recording to analyze (overrides the config)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *env)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *replayPath != "" {
		cfg.OverrideReplay(*replayPath)
	}

	logCloser := logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogsPath,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
	})
	defer logCloser.Close()

	log.Warnf("---->> running in [%s] environment", *env)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create data directory: %v", err)
		}
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close()
	log.Debugf("using database: [%s]", st.Path())

	metricsManager := metrics.NewManager("gymbro", "server", prometheus.DefaultRegisterer)

	pluginConfigs, err := cfg.PluginConfigs()
	if err != nil {
		log.Fatalf("invalid plugin config: %v", err)
	}

	appCfg := app.Config{
		Store:         st,
		Engine:        cfg.CoordinatorConfig(),
		PluginDir:     cfg.PluginDir,
		PluginTimeout: cfg.Feedback.PluginTimeout,
		PluginConfigs: pluginConfigs,
		Metrics:       metricsManager,
	}
	if cfg.Feedback.Enabled {
		fb := cfg.FeedbackSettings()
		appCfg.Feedback = &fb
	}

	engine, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("failed to initialize engine: %v", err)
	}
	defer engine.Close()

	if err := engine.LoadProfiles(); err != nil {
		log.Fatalf("failed to load profiles: %v", err)
	}
	if err := engine.DiscoverPlugins(); err != nil {
		log.Warnf("plugin discovery failed: %v", err)
	} else {
		log.Infof("loaded %d plugins from %s", len(engine.PluginManager().List()), cfg.PluginDir)
	}

	if cfg.Nats.Enabled {
		if stop := startNats(cfg, engine); stop != nil {
			defer stop()
		}
	}

	if cfg.Replay.Path != "" || len(cfg.Replay.Command) > 0 {
		if err := startReplay(engine, cfg.Replay); err != nil {
			log.Fatalf("failed to start replay: %v", err)
		}
	}

	webDir := findWebDir(cfg.StaticDir)
	if webDir != "" {
		log.Infof("serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       engine,
		Store:     st,
	})
	if err := srv.Serve(cfg.Addr()); err != nil {
		log.Fatalf("server failed: %v", err)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)

	srv.GracefulShutdown()
}

// startNats connects to NATS and bridges frames, results and feedback. A
// connection failure is logged and the service continues without the bridge.
// The returned func stops the bridge and drains the connection.
func startNats(cfg *config.Config, engine *app.App) func() {
	nc, err := stream.Connect(cfg.Nats.URL)
	if err != nil {
		log.Errorf("failed to connect to nats at %s: %v", cfg.Nats.URL, err)
		return nil
	}

	subjects := stream.Subjects{
		Frames:   cfg.Nats.FramesSubject,
		Results:  cfg.Nats.ResultsSubject,
		Feedback: cfg.Nats.FeedbackSubject,
	}

	bridge := stream.NewBridge(nc, engine, subjects)
	if err := bridge.Start(); err != nil {
		log.Errorf("nats bridge: %v", err)
		nc.Close()
		return nil
	}

	if subjects.Feedback != "" {
		engine.AddFeedbackSink(stream.NewFeedbackPublisher(nc, subjects.Feedback))
	}

	return func() {
		if err := bridge.Stop(); err != nil {
			log.Warnf("nats bridge stop: %v", err)
		}
		if err := nc.Drain(); err != nil {
			log.Warnf("nats drain: %v", err)
		}
	}
}

// startReplay feeds a recorded session or a live pose estimator through the
// shared engine.
func startReplay(engine *app.App, cfg config.ReplayConfig) error {
	var src pose.Source
	origin := cfg.Path
	if len(cfg.Command) > 0 {
		src = pose.NewCommandSource(cfg.Command[0], cfg.Command[1:]...)
		origin = cfg.Command[0]
	} else {
		f, err := os.Open(cfg.Path)
		if err != nil {
			return err
		}
		src = pose.NewReplaySource(f)
	}

	if err := engine.Start(src, cfg.FPS); err != nil {
		src.Close()
		return err
	}

	go func() {
		<-engine.Done()
		log.WithField("source", origin).Info("frame source finished")
	}()
	return nil
}

// findWebDir returns the first existing directory among the configured one,
// "../web" and "../../web". It returns "" when none exists.
func findWebDir(configured string) string {
	candidates := []string{configured, "../web", "../../web"}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
