package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/use-agent/channelscout/browser"
	"github.com/use-agent/channelscout/config"
	"github.com/use-agent/channelscout/extract"
	"github.com/use-agent/channelscout/pipeline"
	"github.com/use-agent/channelscout/sink"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	if len(cfg.Sweep.Keywords) == 0 {
		cfg.Sweep.Keywords = promptKeywords()
	}
	if len(cfg.Sweep.Keywords) == 0 {
		slog.Error("no keywords supplied; set KEYWORDS or enter them at the prompt")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("channelscout failed", "error", err)
		os.Exit(1)
	}
	slog.Info("channelscout finished")
}

func run(cfg *config.Config) error {
	slog.Info("channelscout starting",
		"keywords", cfg.Sweep.Keywords,
		"maxPages", cfg.Sweep.MaxPages,
		"csv", cfg.Sink.CSVFile,
		"mirror", cfg.Sink.SpreadsheetKey != "",
	)

	// ── 3. Validate selector configuration up front ─────────────────
	selectors := extract.DefaultSelectors()
	if err := selectors.Validate(); err != nil {
		return err
	}

	// ── 4. Initialise sinks ─────────────────────────────────────────
	store, err := sink.NewCSVStore(cfg.Sink.CSVFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var mirror *sink.SheetMirror
	if cfg.Sink.SpreadsheetKey != "" {
		mirror, err = sink.NewSheetMirror(ctx, cfg.Sink.SpreadsheetKey, cfg.Sink.SheetName, cfg.Sink.CredentialsFile)
		if err != nil {
			return err
		}
		slog.Info("spreadsheet mirror enabled", "sheet", cfg.Sink.SheetName)
	} else {
		slog.Info("SPREADSHEET_KEY not set; results go to the CSV file only")
	}
	records := sink.NewComposite(store, mirror)

	// ── 5. Launch browser (closed unconditionally on return) ────────
	b, err := browser.Launch(cfg.Browser)
	if err != nil {
		return err
	}
	defer b.Close()

	search, err := b.SearchTab(cfg.Sweep.ListingBase)
	if err != nil {
		return err
	}

	// ── 6. Assemble the sweep ───────────────────────────────────────
	tabs := browser.NewTabController(b, search, cfg.Sweep.NavTimeout)
	ex := extract.New(selectors, cfg.Sweep.ElementTimeout)
	channel := pipeline.NewChannelPipeline(tabs, ex, cfg.Sweep.ListingBase, cfg.Sweep.SettleDelay)
	limiter := rate.NewLimiter(rate.Limit(cfg.Sweep.PageRPS), cfg.Sweep.PageBurst)
	sweep := pipeline.NewSweep(tabs, ex, channel, records, limiter, cfg.Sweep)

	// ── 7. Run ──────────────────────────────────────────────────────
	return sweep.Run(ctx)
}

// promptKeywords asks for a comma-separated keyword list when stdin is a
// terminal. Non-interactive runs get nil and fail fast in main.
func promptKeywords() []string {
	fi, err := os.Stdin.Stat()
	if err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return nil
	}

	fmt.Print("keywords (comma-separated): ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil
	}

	var keywords []string
	for _, part := range strings.Split(line, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
