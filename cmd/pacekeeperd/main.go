// Package main provides the pacekeeper daemon entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pacekeeper/pacekeeper/internal/classifier"
	"github.com/pacekeeper/pacekeeper/internal/config"
	"github.com/pacekeeper/pacekeeper/internal/db/store"
	"github.com/pacekeeper/pacekeeper/internal/watcher"
	"github.com/pacekeeper/pacekeeper/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP listen port (default: from config)")
	dbPath := flag.String("db", "", "SQLite database path (default: ~/.pacekeeper/pacekeeper.db)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}
	if err := config.EnsureSettings(); err != nil {
		log.Warn().Err(err).Msg("Failed to write default settings file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		cancel()
	}()

	st, err := store.NewStore(store.Config{Path: cfg.DBPath, MaxConns: cfg.MaxConns})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer st.Close()

	cls := buildClassifier(ctx, cfg)

	svc := worker.New(Version, cfg, st, cls)

	startSettingsWatcher(svc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Start(ctx)
	})

	log.Info().Str("version", Version).Int("port", cfg.Port).Msg("pacekeeper started")
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Service error")
	}
}

// buildClassifier picks the Gemini classifier when an API key is present
// and falls back to the lexical one otherwise.
func buildClassifier(ctx context.Context, cfg *config.Config) classifier.Classifier {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Info().Msg("GEMINI_API_KEY not set, using lexical classifier")
		return classifier.NewLexical()
	}

	cls, err := classifier.NewGenAI(ctx, classifier.GenAIConfig{
		APIKey:    apiKey,
		Model:     cfg.Model,
		Timeout:   cfg.ClassifyTimeout(),
		Threshold: cfg.ConfidenceThreshold,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Gemini classifier, using lexical classifier")
		return classifier.NewLexical()
	}
	log.Info().Str("model", cfg.Model).Msg("Using Gemini classifier")
	return cls
}

// startSettingsWatcher hot-reloads the intervention policy when the
// settings file changes. Port and DB path changes still need a restart.
func startSettingsWatcher(svc *worker.Service) {
	path := config.SettingsPath()
	w, err := watcher.New(path, func() {
		cfg, err := config.Load()
		if err != nil {
			log.Warn().Err(err).Msg("Settings changed but reload failed, keeping current policy")
			return
		}
		svc.Decider().SetPolicy(cfg.Intervention)
		log.Info().Msg("Intervention policy reloaded")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher")
		return
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start settings watcher")
		return
	}
	log.Info().Str("path", path).Msg("Settings file watcher started")
}
