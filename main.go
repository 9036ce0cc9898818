package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"niftyflow/config"
	"niftyflow/internal/metrics"
	"niftyflow/internal/pipeline"
	"niftyflow/internal/snapshot"
	"niftyflow/internal/trigger"
	"niftyflow/logger"
	"niftyflow/reader/nse"
	"niftyflow/reader/quantsapp"
	"niftyflow/report"
	"niftyflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	serve := flag.Bool("serve", false, "Start the HTTP trigger server")
	loop := flag.Bool("loop", false, "Run a cycle every fetch interval until interrupted")
	flag.Bool("once", true, "Run a single cycle and exit (default mode)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}
	metrics.Init()

	log.WithFields(logger.Fields{
		"service":     cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": config.AppEnvironment(),
		"source":      cfg.Source.Variant,
	}).Info("starting niftyflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Failed to build pipeline")
		os.Exit(1)
	}
	runner := &serialRunner{p: p}

	var wg sync.WaitGroup
	if *serve {
		srv := trigger.NewServer(cfg.Server, runner, p.Cache(), log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.WithComponent("main").WithError(err).Error("trigger server failed")
				stop()
			}
		}()
	}

	if *loop {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runLoop(ctx, runner, cfg.Schedule.FetchInterval, log)
		}()
	}

	if !*serve && !*loop {
		res := runner.Run(ctx)
		if res.Status == pipeline.StatusFetchFailed {
			os.Exit(1)
		}
		return
	}

	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	wg.Wait()
	log.Info("shutdown complete")
}

func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	var store snapshot.Store = snapshot.NewFileStore(cfg.Cache.File)
	if cfg.Cache.S3.Enabled {
		s3Store, err := snapshot.NewS3Store(ctx, cfg.Cache.S3)
		if err != nil {
			return nil, err
		}
		store = s3Store
	}
	cache := snapshot.NewCache(store)

	sink, err := writer.NewTelegramWriter(cfg.Telegram)
	if err != nil {
		return nil, err
	}

	gate, err := pipeline.NewGate(cfg.Schedule.MarketHours)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Cache:           cache,
		Sink:            sink,
		Gate:            gate,
		MessageInterval: cfg.Telegram.MessageInterval,
		Report: report.Options{
			TopN:     cfg.Report.TopN,
			Location: report.IST(),
		},
	}

	switch cfg.Source.Variant {
	case config.SourceNSE:
		opts.Source = nse.NewReader(cfg.Source.NSE)
		opts.Render = pipeline.CombinedRenderer
		opts.Report.Instrument = cfg.Source.NSE.Symbol
		opts.Report.SourceLabel = "nseindia.com"
	default:
		opts.Source = quantsapp.NewReader(cfg.Source.Quantsapp, nil)
		opts.Render = pipeline.SplitRenderer
		opts.Report.SourceLabel = cfg.Source.Quantsapp.SourceLabel
	}

	return pipeline.New(opts), nil
}

// serialRunner keeps the loop and the trigger from running cycles at the
// same time against one cache.
type serialRunner struct {
	mu sync.Mutex
	p  *pipeline.Pipeline
}

func (r *serialRunner) Run(ctx context.Context) pipeline.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p.Run(ctx)
}

func runLoop(ctx context.Context, runner *serialRunner, interval time.Duration, log *logger.Log) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	log.WithComponent("main").WithFields(logger.Fields{"interval": interval.String()}).Info("starting scheduled loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runner.Run(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
