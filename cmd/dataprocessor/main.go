package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataprocessor/internal/config"
	"dataprocessor/internal/datasource/httpds"
	"dataprocessor/internal/fetch"
	"dataprocessor/internal/journal"
	"dataprocessor/internal/loader"
	"dataprocessor/internal/parser/csv"
	"dataprocessor/internal/registry"
	"dataprocessor/internal/storage"

	// register the built-in backends with the storage factory.
	_ "dataprocessor/internal/storage/all"
)

// main loads the configured DUO resources into Postgres. Configuration comes
// from flags, then the environment (a .env file is read first), then
// defaults.
func main() {
	if err := config.LoadDotEnv(); err != nil {
		fatalf("%v", err)
	}
	cfg := config.FromEnv(os.Getenv)

	var (
		resources   string
		validate    bool
		history     int
		delimiter   = cfg.Delimiter
		metricsFlag string
	)
	flag.StringVar(&cfg.Schema, "schema", cfg.Schema, "target Postgres schema")
	flag.StringVar(&resources, "resources", "", "comma-separated resource names (default "+config.DefaultResource+")")
	flag.StringVar(&cfg.DatasetPrefix, "dataset", cfg.DatasetPrefix, "table name prefix: <dataset>_<resource>_new")
	flag.IntVar(&cfg.Parallel, "parallel", cfg.Parallel, "number of resources loaded concurrently")
	flag.StringVar(&cfg.RegistryPath, "registry", "", "resource registry YAML (default: embedded)")
	flag.StringVar(&cfg.DownloadDir, "download-dir", cfg.DownloadDir, "shared download directory (overrides env "+config.EnvDownloadDir+")")
	flag.StringVar(&delimiter, "delimiter", delimiter, `CSV field delimiter ("\t" for tab)`)
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP download timeout")
	flag.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows per COPY batch")
	flag.StringVar(&metricsFlag, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env "+config.EnvMetricsBackend+")")
	flag.StringVar(&cfg.Metrics.PushgatewayURL, "pushgateway-url", cfg.Metrics.PushgatewayURL, "Pushgateway base URL (overrides env "+config.EnvPushgatewayURL+")")
	flag.StringVar(&cfg.Metrics.DatadogAddr, "datadog-addr", cfg.Metrics.DatadogAddr, "DogStatsD address (overrides env "+config.EnvDatadogAddr+")")
	flag.StringVar(&cfg.JournalPath, "journal", "", "SQLite run journal path (disabled when empty)")
	flag.IntVar(&history, "history", 0, "print the newest N journal runs and exit; a single -resources name filters them")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if resources != "" {
		cfg.Resources = config.ParseResources(resources)
	}
	cfg.Delimiter = delimiter
	if metricsFlag != "" {
		cfg.Metrics.Backend = metricsFlag
	}

	if history > 0 {
		filter := ""
		if len(cfg.Resources) == 1 && resources != "" {
			filter = cfg.Resources[0]
		}
		if err := showHistory(context.Background(), os.Stdout, cfg.JournalPath, filter, history); err != nil {
			fatalf("%v", err)
		}
		os.Exit(0)
	}

	reg, err := loadRegistry(cfg.RegistryPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidateConfig(cfg, reg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: schema=%s resources=%v", cfg.Schema, cfg.Resources)
		os.Exit(0)
	}

	flush := setupMetrics(cfg.Metrics, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = run(ctx, cfg, reg, *verbose)
	// Flushed before log.Fatalf, which skips deferred calls.
	flush()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func run(ctx context.Context, cfg config.Config, reg registry.Registry, verbose bool) error {
	comma, err := cfg.Comma()
	if err != nil {
		return err
	}

	repo, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: cfg.DSN, BatchSize: cfg.BatchSize})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	client := httpds.NewClient(httpds.Config{
		Timeout:     cfg.Timeout,
		BaseHeaders: http.Header{"User-Agent": []string{"dataprocessor"}},
	})
	f := fetch.New(client, reg, fetch.Config{
		BaseURL: cfg.BaseURL,
		Dir:     cfg.DownloadDir,
		Source:  registry.SourceDUO,
		Family:  registry.FamilyRIO,
	})
	l := loader.New(repo, f, loader.Config{
		DatasetPrefix: cfg.DatasetPrefix,
		CSV:           csv.Options{Comma: comma},
	})

	var j *journal.Journal
	if cfg.JournalPath != "" {
		j, err = journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
	}

	if verbose {
		log.Printf("run: schema=%s resources=%v parallel=%d download_dir=%s", cfg.Schema, cfg.Resources, cfg.Parallel, cfg.DownloadDir)
	}
	return loadAll(ctx, l, j, runConfig{
		Schema:        cfg.Schema,
		DatasetPrefix: cfg.DatasetPrefix,
		Resources:     cfg.Resources,
		Parallel:      cfg.Parallel,
	})
}

func loadRegistry(path string) (registry.Registry, error) {
	if path == "" {
		return registry.Default()
	}
	return registry.Load(path)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
