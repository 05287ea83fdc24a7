package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	framecull "github.com/anatolykoptev/go-framecull"
	"github.com/anatolykoptev/go-framecull/internal/reportdb"
)

var (
	configPath = flag.String("config", "", "YAML policy file (stock defaults apply when empty)")
	inputDir   = flag.String("input", "", "Directory with one subdirectory of frames per category")
	outputDir  = flag.String("output", "", "Directory for ranked copies of the selection")
	reportPath = flag.String("report", "", "Path for the JSON audit report")
	dbPath     = flag.String("db", "", "SQLite report database to append this run to")
	categories = flag.String("categories", "", "Comma-separated subset of configured categories to run")
	workers    = flag.Int("workers", 0, "Scoring workers (0 = CPU count)")
	dryRun     = flag.Bool("dry-run", false, "Score and report without copying files")
	history    = flag.Int("history", 0, "Print the last N runs recorded in -db and exit")
	verbose    = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if *history > 0 {
		if *dbPath == "" {
			log.Fatal("-history requires -db")
		}
		printHistory(*dbPath, *history)
		return
	}

	cfg, err := framecull.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *reportPath != "" {
		cfg.ReportPath = *reportPath
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if cfg.InputDir == "" {
		log.Fatal("input directory is required (-input or input_dir in the config)")
	}
	if *categories != "" {
		keep := make(framecull.CategorySet)
		for _, name := range strings.Split(*categories, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			ccfg, ok := cfg.Categories[name]
			if !ok {
				log.Fatalf("unknown category %q", name)
			}
			keep[name] = ccfg
		}
		cfg.Categories = keep
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := framecull.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("run aborted: %v", err)
	}

	rep := framecull.BuildReport(res)
	if cfg.ReportPath != "" {
		if err := rep.WriteFile(cfg.ReportPath); err != nil {
			log.Fatalf("failed to write report: %v", err)
		}
	}
	if *dbPath != "" {
		db, err := reportdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open report database: %v", err)
		}
		if err := db.RecordRun(rep); err != nil {
			log.Fatalf("failed to record run: %v", err)
		}
		db.Close()
	}
	if cfg.OutputDir != "" && !*dryRun {
		for _, cat := range res.Categories {
			if err := framecull.CopySelection(cat, cfg.OutputDir); err != nil {
				log.Fatalf("failed to copy selection: %v", err)
			}
		}
	}

	for _, cat := range res.Categories {
		note := ""
		if cat.Partial {
			note = " (partial)"
		}
		fmt.Printf("%s: selected %d/%d from %d candidates, %d defects%s\n",
			cat.Category, len(cat.Selected), cat.Config.TargetCount,
			len(cat.Candidates), len(cat.Defects), note)
	}
	failed := make([]string, 0, len(res.Failed))
	for name := range res.Failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, res.Failed[name])
	}
	if len(res.Categories) == 0 && len(failed) > 0 {
		os.Exit(1)
	}
}

// printHistory lists the most recent recorded runs with their per-status
// candidate counts, newest first.
func printHistory(path string, n int) {
	db, err := reportdb.Open(path)
	if err != nil {
		log.Fatalf("failed to open report database: %v", err)
	}
	defer db.Close()

	sums, err := db.RunSummaries(n)
	if err != nil {
		log.Fatalf("failed to load run history: %v", err)
	}
	for _, s := range sums {
		fmt.Printf("%s  %s  categories=%d selected=%d defects=%d\n",
			s.CreatedAt.Format(time.RFC3339), s.RunID, s.Categories, s.Selected, s.Defects)
		counts, err := db.StatusCounts(s.RunID)
		if err != nil {
			log.Fatalf("failed to load status counts: %v", err)
		}
		statuses := make([]string, 0, len(counts))
		for status := range counts {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			fmt.Printf("    %-28s %d\n", status, counts[status])
		}
	}
}
