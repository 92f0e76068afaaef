package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	plancache "github.com/plancache/plancache"
	"github.com/plancache/plancache/cache"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	originFlag         string
	providerFlag       string
	dbFilenameFlag     string
	skipWaitingFlag    bool
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "plancache.yml", "Path to plan config file")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to fetch from (overrides config)")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&providerFlag, "provider", "", "Cache provider to use: sqlite or memory (overrides config)")
	flag.StringVar(&dbFilenameFlag, "db", "", "Cache DB file name (overrides config)")
	flag.BoolVar(&skipWaitingFlag, "skip-waiting", false, "Activate immediately after install")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("build", version).Logger()

	config, err := plancache.LoadConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	if originFlag != "" {
		config.Origin = originFlag
	}
	if providerFlag != "" {
		config.Provider = providerFlag
	}
	if dbFilenameFlag != "" {
		config.DB = dbFilenameFlag
	}
	if skipWaitingFlag {
		config.Options.SkipWaiting = true
	}
	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}

	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin url")
	}

	var provider cache.CacheProvider
	switch config.Provider {
	case "", "sqlite":
		provider = cache.NewSQLiteCache(config.DB)
	case "memory":
		provider = cache.NewMemCache()
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", config.Provider)
	}

	worker, err := plancache.New(plancache.Config{
		Plan:    config.Plan,
		Options: config.Options,
		Cache:   provider,
		Fetcher: plancache.NewOrigin(*originURL, ""),
		Scope:   config.Scope,
		Logger:  &log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot build worker")
	}

	if err := worker.Install(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Install failed")
	}
	if !worker.Active() {
		worker.Activate()
	}

	r := chi.NewRouter()
	r.Get("/.plancache/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"version":    worker.Version().String(),
			"cache":      worker.CacheName(),
			"active":     worker.Active(),
			"preloadSet": worker.PreloadSet(),
		})
	})
	r.Handle("/*", worker)

	log.Info().Msgf("Serving port %v from %s", portFlag, originURL)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", portFlag), r); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
