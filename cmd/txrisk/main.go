package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/adamopay/txrisk/internal/compliance/engine"
	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/ingest"
	"github.com/adamopay/txrisk/internal/report"
	"github.com/adamopay/txrisk/internal/server"
	"github.com/adamopay/txrisk/pkg/logger"
	"github.com/adamopay/txrisk/pkg/metrics"
	"github.com/adamopay/txrisk/pkg/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	var (
		configPath = flag.String("config", "", "path to YAML configuration file")
		mode       = flag.String("mode", "portfolio", "analyze | portfolio | serve")
		input      = flag.String("input", "", "transaction report CSV (analyze/portfolio modes)")
		client     = flag.String("client", "", "client ID to analyze (analyze mode)")
		csvOut     = flag.String("csv", "", "write portfolio results CSV to this path")
		alertsOut  = flag.String("alerts", "", "write alerts CSV to this path")
		workers    = flag.Int("workers", 4, "concurrent analyses (portfolio mode)")
		printCfg   = flag.Bool("print-config", false, "print the effective configuration and exit")
	)
	flag.Parse()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.New(logLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zapLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	if *printCfg {
		out, err := cfg.YAML()
		if err != nil {
			zapLogger.Fatal("failed to render configuration", zap.Error(err))
		}
		os.Stdout.Write(out)
		return
	}

	metrics.Register(prometheus.DefaultRegisterer)
	eng := engine.New(cfg.Thresholds, zapLogger)

	switch *mode {
	case "analyze":
		if err := runAnalyze(eng, *input, *client); err != nil {
			zapLogger.Fatal("analysis failed", zap.Error(err))
		}
	case "portfolio":
		if err := runPortfolio(eng, *input, *csvOut, *alertsOut, *workers); err != nil {
			zapLogger.Fatal("portfolio analysis failed", zap.Error(err))
		}
	case "serve":
		runServe(cfg, eng, zapLogger)
	default:
		zapLogger.Fatal("unknown mode", zap.String("mode", *mode))
	}
}

func runAnalyze(eng *engine.Engine, input, client string) error {
	if input == "" {
		return fmt.Errorf("analyze mode requires -input")
	}
	sets, err := ingest.LoadFile(input)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, set := range sets {
		if client != "" && set.ClientID != client {
			continue
		}
		analysis := eng.Analyze(set, now)
		if err := report.Text(os.Stdout, analysis.Verdict); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func runPortfolio(eng *engine.Engine, input, csvOut, alertsOut string, workers int) error {
	if input == "" {
		return fmt.Errorf("portfolio mode requires -input")
	}
	sets, err := ingest.LoadFile(input)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	results := eng.AnalyzePortfolio(context.Background(), sets, now, workers)

	verdicts := make([]models.RiskVerdict, 0, len(results))
	for _, a := range results {
		verdicts = append(verdicts, a.Verdict)
	}

	if err := report.Summary(os.Stdout, engine.Summarize(results, now)); err != nil {
		return err
	}
	if csvOut != "" {
		if err := writeCSV(csvOut, verdicts, report.PortfolioCSV); err != nil {
			return err
		}
	}
	if alertsOut != "" {
		if err := writeCSV(alertsOut, verdicts, report.AlertsCSV); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, verdicts []models.RiskVerdict, render func(io.Writer, []models.RiskVerdict) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f, verdicts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runServe(cfg *config.Config, eng *engine.Engine, zapLogger *zap.Logger) {
	srv := server.New(cfg.Server, eng, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("shutdown complete")
}
