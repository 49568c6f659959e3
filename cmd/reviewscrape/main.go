package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		return pipeline.NewDualWriter(filename, pipeline.DualJSONName(filename))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.ScrapeResult, ds *models.Dataset, outputFile string, metrics map[string]interface{}) {
	separator := strings.Repeat("-", 50)
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	duration := result.EndTime.Sub(result.StartTime)
	fmt.Printf("  Product:        %s\n", result.Product)
	fmt.Printf("  Reviews:        %d\n", ds.Len())
	fmt.Printf("  Pages visited:  %d\n", result.PagesVisited)
	fmt.Printf("  Total pages:    %s\n", result.TotalPages)
	fmt.Printf("  Stop reason:    %s\n", result.StopReason)
	if result.FailedPage > 0 {
		fmt.Printf("  Failed page:    %d\n", result.FailedPage)
	}
	fmt.Printf("  Retries:        %d\n", result.RetryCount)
	if unknown, ok := metrics["unknown_dates"].(int64); ok && unknown > 0 {
		fmt.Printf("  Unknown dates:  %d\n", unknown)
	}
	fmt.Printf("  Duration:       %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Output file:    %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
