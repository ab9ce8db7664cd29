package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hoaxalyzer/internal/analysis"
	"hoaxalyzer/internal/archive"
	"hoaxalyzer/internal/config"
	"hoaxalyzer/internal/logging"
	"hoaxalyzer/internal/pipeline"
	"hoaxalyzer/internal/queue"
	"hoaxalyzer/internal/store"
	"hoaxalyzer/internal/telemetry"
	workerproc "hoaxalyzer/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		log.Error("migrations", "err", err)
		os.Exit(1)
	}

	q := queue.NewAnalysisQueue(cfg)

	arch, err := archive.New(ctx, cfg)
	if err != nil {
		log.Error("init archive", "err", err)
		os.Exit(1)
	}

	keywords := analysis.NewKeywordExtractor()
	ml := analysis.NewMLClient(cfg.MLServiceURL, cfg.MLServiceKey, cfg.MLTimeout, log)

	deps := pipeline.Deps{
		Jobs:       st,
		Results:    st,
		Acquirer:   analysis.NewScraper(nil, cfg.ScrapeTimeout),
		Crawler:    analysis.NewSampleCrawler(),
		Normalizer: analysis.NewNormalizer(),
		Sentiment:  ml,
		Hoax:       ml,
		Keywords:   keywords,
		Explainer:  analysis.NewTemplateExplainer(keywords),
		Limits: pipeline.Limits{
			CrawlMaxItems: cfg.CrawlMaxItems,
			ExplainMaxLen: cfg.ExplainMaxLen,
			PreviewMaxLen: cfg.PreviewMaxLen,
			URLKeywords:   cfg.URLKeywords,
			TopicKeywords: cfg.TopicKeywords,
		},
		Log: log,
	}
	if arch != nil {
		deps.Archive = arch
	}

	processor := workerproc.NewProcessor(cfg, q, st, pipeline.New(deps), log)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Warn("metrics server stopped", "err", err)
		}
	}()

	log.Info("worker started",
		"concurrency", cfg.WorkerConcurrency,
		"visibility", cfg.VisibilityTimeout,
		"pipeline_timeout", cfg.PipelineTimeout,
	)
	if err := processor.Run(ctx); err != nil {
		log.Info("worker stopped", "err", err)
	}
}
