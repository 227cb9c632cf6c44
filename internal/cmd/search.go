package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/mailscan/internal/config"
	"github.com/harrison/mailscan/internal/display"
	"github.com/harrison/mailscan/internal/history"
	"github.com/harrison/mailscan/internal/logger"
	"github.com/harrison/mailscan/internal/models"
	"github.com/harrison/mailscan/internal/report"
	"github.com/harrison/mailscan/internal/search"
	"github.com/harrison/mailscan/internal/targets"
)

// NewSearchCommand creates the search command
func NewSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a directory tree for a list of email addresses",
		Long: `Search every CSV file under --root for each address in --targets.

The first row matching each address is appended to the results file as
"<row>,<row text>". The results file is truncated at the start of every
run and defaults to email_search_results.txt inside the search root.

Configuration is loaded from .mailscan/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  mailscan search --targets emails.txt --root ./exports
  mailscan search --targets emails.md --root ./exports --workers 4
  mailscan search --targets emails.txt --root ./exports --output hits.txt --timeout 30m
  mailscan search --targets emails.txt --root ./exports --report run.html`,
		Args: cobra.NoArgs,
		RunE: runSearchCommand,
	}

	addScanFlags(cmd)
	cmd.Flags().String("targets", "", "File with one email address per line, or a Markdown list")
	cmd.Flags().String("root", "", "Directory to search")
	cmd.Flags().String("output", "", "Results file (default: <root>/email_search_results.txt)")
	cmd.Flags().Int("workers", 0, "Maximum number of addresses searched at once (0 = unlimited)")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30m, 2h)")
	cmd.Flags().String("log-dir", "", "Directory for run logs")
	cmd.Flags().String("report", "", "Write a Markdown run report to this file")
	cmd.Flags().Bool("html", false, "Render the run report as HTML")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.MarkFlagRequired("targets")
	cmd.MarkFlagRequired("root")

	return cmd
}

// runSearchCommand implements the search command logic
func runSearchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	targetsPath, _ := cmd.Flags().GetString("targets")
	rootFlag, _ := cmd.Flags().GetString("root")
	outputFlag, _ := cmd.Flags().GetString("output")
	reportPath, _ := cmd.Flags().GetString("report")
	forceHTML, _ := cmd.Flags().GetBool("html")

	root, err := filepath.Abs(rootFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve search root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to access search root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("search root %s is not a directory", root)
	}
	output := outputFlag
	if output == "" {
		output = filepath.Join(root, cfg.OutputName)
	}
	if output, err = filepath.Abs(output); err != nil {
		return fmt.Errorf("failed to resolve results file: %w", err)
	}

	reg, err := targets.Load(targetsPath)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		return fmt.Errorf("%s: %w", targetsPath, search.ErrNoTargets)
	}
	if dups := reg.Duplicates(); len(dups) > 0 {
		display.WarnDuplicateTargets(dups).Display(cmd.ErrOrStderr())
	}

	opts, err := engineOptions(cfg, root, output)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()
	multiLog := &multiLogger{loggers: []logger.Logger{consoleLog, fileLog}}

	// The results file must be exclusively ours before any target is dispatched
	sink, err := search.OpenSink(output)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	runID := history.NewRunID()
	store := openHistory(cfg, multiLog)
	if store != nil {
		err := store.StartRun(ctx, &history.Run{
			ID:          runID,
			Root:        root,
			Output:      output,
			TargetsFile: reg.Source(),
			Targets:     reg.Len(),
			StartedAt:   time.Now(),
		})
		if err != nil {
			multiLog.LogWarn(fmt.Sprintf("History disabled for this run: %v", err))
			store.Close()
			store = nil
		} else {
			defer store.Close()
			multiLog.LogDebug(fmt.Sprintf("Recording run in %s", store.Path()))
		}
	}

	events := search.NewEmitter()

	var matchesMu sync.Mutex
	var matches []models.MatchRecord
	opts.OnMatch = func(rec models.MatchRecord) {
		matchesMu.Lock()
		matches = append(matches, rec)
		matchesMu.Unlock()

		if store != nil {
			// recorded even when the run is being cancelled
			if err := store.RecordMatch(context.WithoutCancel(ctx), runID, rec); err != nil {
				events.Logf(models.LevelWarn, "Failed to record match in history: %v", err)
			}
		}
	}

	engine := search.NewEngine(opts, nil, sink, events)
	multiLog.LogInfo(fmt.Sprintf("Run %s: %d target(s) from %s", runID, reg.Len(), targetsPath))
	multiLog.LogInfo(fmt.Sprintf("Writing results to %s", output))

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		consumeEvents(events.Events(), engine.Coordinator(), cfg.ProgressInterval, consoleLog, fileLog)
	}()

	summary, runErr := engine.Run(ctx, reg.Targets())
	events.Close()
	<-consumed

	if summary == nil {
		return fmt.Errorf("search failed: %w", runErr)
	}
	summary.RunID = runID
	summary.Output = output

	if err := sink.Close(); err != nil {
		multiLog.LogError(fmt.Sprintf("Failed to close results file: %v", err))
	}

	multiLog.LogSummary(*summary)

	if summary.Cancelled {
		display.WarnCancelled(engine.Coordinator().Snapshot(), output).Display(cmd.ErrOrStderr())
	} else if len(summary.NotFound) > 0 {
		display.WarnTargetsNotFound(summary.NotFound, len(summary.NotFound)+summary.Found).Display(cmd.ErrOrStderr())
	}

	if store != nil {
		if err := store.FinishRun(context.WithoutCancel(ctx), *summary); err != nil {
			multiLog.LogWarn(fmt.Sprintf("Failed to record run in history: %v", err))
		}
	}

	if reportPath != "" {
		matchesMu.Lock()
		rep := report.Report{Summary: *summary, TargetsFile: reg.Source(), Matches: matches}
		matchesMu.Unlock()
		if err := report.Write(reportPath, rep, report.FormatFor(reportPath, forceHTML)); err != nil {
			multiLog.LogWarn(fmt.Sprintf("Failed to write report: %v", err))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to: %s\n", reportPath)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Results written to: %s\n", output)
	fmt.Fprintf(cmd.OutOrStdout(), "Logs written to: %s\n", fileLog.RunFile())

	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			return fmt.Errorf("search timed out after %s: %w", cfg.Timeout, runErr)
		}
		return fmt.Errorf("search cancelled: %w", runErr)
	}
	return nil
}

// openHistory opens the history store, or returns nil when history is
// disabled or unavailable.
func openHistory(cfg *config.Config, log logger.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}

	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		log.LogWarn(fmt.Sprintf("History disabled: %v", err))
		return nil
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("History disabled: %v", err))
		return nil
	}
	return store
}

// consumeEvents routes engine events to the loggers until the stream closes.
// The console progress bar is redrawn from the coordinator at most once per
// interval; progress events themselves only reach the file log.
func consumeEvents(events <-chan models.Event, coord *search.Coordinator, interval time.Duration, console, file logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var shown models.Progress
	redraw := func() {
		if snap := coord.Snapshot(); snap != shown && snap.Total > 0 {
			console.LogProgress(snap)
			shown = snap
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				redraw()
				return
			}
			switch ev.Kind {
			case models.EventProgress:
				file.LogEvent(ev)
			case models.EventDone:
				redraw()
				console.LogEvent(ev)
				file.LogEvent(ev)
			default:
				console.LogEvent(ev)
				file.LogEvent(ev)
			}
		case <-ticker.C:
			redraw()
		}
	}
}
