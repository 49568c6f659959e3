package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/dates"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
	"github.com/aluiziolira/go-scrape-reviews/report"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
	"github.com/aluiziolira/go-scrape-reviews/sentiment"
	"github.com/aluiziolira/go-scrape-reviews/textnorm"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewscrape",
		Short: "reviewscrape collects Flipkart product reviews and scores their sentiment.",
	}
	root.AddCommand(newScrapeCmd(cfg), newPresetsCmd())
	return root
}

func newScrapeCmd(cfg *config.Config) *cobra.Command {
	var (
		preset   string
		noReport bool
	)

	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Scrape the review pages of a product and export the enriched dataset.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTarget(cfg, args, preset)
			if err != nil {
				return err
			}
			cfg.TargetURL = target
			cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
			cfg.Fetcher = strings.ToLower(cfg.Fetcher)

			logger, _ := newLogger(cfg.Verbose)
			slog.SetDefault(logger)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			// Usage output is for argument errors only.
			cmd.SilenceUsage = true
			return runScrape(cmd.Context(), cfg, !noReport)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&preset, "preset", "", "Scrape a named preset instead of a URL (see the presets command)")
	flags.IntVarP(&cfg.MaxPages, "pages", "p", cfg.MaxPages, "Maximum review pages to visit (1-1000)")
	flags.StringVar(&cfg.Fetcher, "fetcher", cfg.Fetcher, "Page fetcher: chrome or static")
	flags.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run Chrome headless")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Maximum wait for review blocks to render")
	flags.DurationVar(&cfg.SettleDelay, "settle", cfg.SettleDelay, "Wait after advancing to the next page")
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retry attempts per page load or render")
	flags.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	flags.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	flags.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file path")
	flags.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "Browser user agent")
	flags.IntVar(&cfg.LemmaCacheSize, "lemma-cache", cfg.LemmaCacheSize, "Lemma cache entries (0 disables)")
	flags.IntVar(&cfg.TopWords, "top-words", cfg.TopWords, "Words per sentiment in the report")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	flags.BoolVar(&noReport, "no-report", false, "Skip the summary tables")
	return cmd
}

func resolveTarget(cfg *config.Config, args []string, preset string) (string, error) {
	switch {
	case preset != "" && len(args) > 0:
		return "", errors.New("pass either a URL or --preset, not both")
	case preset != "":
		u, ok := config.Preset(preset)
		if !ok {
			return "", fmt.Errorf("unknown preset %q (known: %s)", preset, strings.Join(config.PresetNames(), ", "))
		}
		return u, nil
	case len(args) > 0:
		return args[0], nil
	case cfg.TargetURL != "":
		return cfg.TargetURL, nil
	default:
		return "", errors.New("a review URL, --preset or REVIEWS_URL is required")
	}
}

func runScrape(parent context.Context, cfg *config.Config, withReport bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	selectors := parser.FlipkartSelectors()
	resolver := dates.New(nil)

	var open scraper.Opener
	switch cfg.Fetcher {
	case "static":
		open = scraper.StaticOpener(cfg, selectors, nil)
	default:
		open = scraper.ChromeOpener(cfg, selectors)
	}
	controller := scraper.NewController(cfg, open, selectors, resolver)

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(controller.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting scrape",
		slog.String("url", cfg.TargetURL),
		slog.Int("pages", cfg.MaxPages),
		slog.String("fetcher", cfg.Fetcher),
	)

	result, runErr := controller.Run(ctx, cfg.TargetURL, cfg.MaxPages)
	var invalid *scraper.InvalidTargetError
	if errors.As(runErr, &invalid) {
		return runErr
	}
	if result == nil {
		return fmt.Errorf("scrape: %w", runErr)
	}

	normalizer, err := textnorm.New(cfg.LemmaCacheSize)
	if err != nil {
		return fmt.Errorf("create normalizer: %w", err)
	}
	p := pipeline.NewPipeline(normalizer, sentiment.NewClassifier(nil), resolver).
		WithObserver(controller.Metrics.ObserveSentiment)
	ds := p.Build(result)

	if err := export(p, ds, cfg); err != nil {
		return err
	}

	if withReport {
		report.Render(os.Stdout, report.Summarize(ds, cfg.TopWords))
	}
	printSummary(result, ds, cfg.OutputFile, p.GetMetrics())

	if runErr != nil {
		// Partial results were exported above.
		return fmt.Errorf("scrape aborted: %w", runErr)
	}
	return nil
}

func export(p *pipeline.Pipeline, ds *models.Dataset, cfg *config.Config) error {
	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}

	if err := p.Export(ds, writer); err != nil {
		writer.Close()
		return fmt.Errorf("export dataset: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	if ds.Len() > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	} else {
		slog.Warn("no reviews collected", slog.String("output", cfg.OutputFile))
	}
	return nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Prints the named product-review URLs.",
		Run: func(cmd *cobra.Command, args []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Preset", "Product", "URL"})
			for _, name := range config.PresetNames() {
				u, _ := config.Preset(name)
				t.AppendRow(table.Row{name, scraper.ProductName(u), u})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		},
	}
}
