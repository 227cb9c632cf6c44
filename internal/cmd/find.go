package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/mailscan/internal/fileutil"
	"github.com/harrison/mailscan/internal/logger"
	"github.com/harrison/mailscan/internal/models"
	"github.com/harrison/mailscan/internal/search"
)

// notFoundMessage is printed when find has no match.
const notFoundMessage = "Email not found in any CSV file in the selected folder or its subfolders"

// NewFindCommand creates the find command
func NewFindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <email> <root>",
		Short: "Find the first row containing one email address",
		Long: `Search every CSV file under <root> for a single email address and print
the first matching row.

Only warnings are logged unless --log-level is given. With --output the
match is also appended to a results file. With --dry-run the candidate
files are listed and nothing is searched.

Examples:
  mailscan find alice@example.com ./exports
  mailscan find alice@example.com ./exports --ext .csv,.txt
  mailscan find alice@example.com ./exports --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: runFindCommand,
	}

	addScanFlags(cmd)
	cmd.Flags().String("output", "", "Also append the match to this results file")
	cmd.Flags().Bool("dry-run", false, "List the files that would be searched and exit")

	return cmd
}

// runFindCommand implements the find command logic
func runFindCommand(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		cfg.LogLevel = "warn"
	}

	target := models.NewTarget(args[0])
	if target.Value == "" {
		return fmt.Errorf("email address cannot be empty")
	}

	root, err := filepath.Abs(args[1])
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

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		opts, err := engineOptions(cfg, root)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return listCandidates(cmd, opts)
	}

	var exclude []string
	var sink search.Appender
	var resultSink *search.ResultSink
	outputFlag, _ := cmd.Flags().GetString("output")
	if outputFlag != "" {
		output, err := filepath.Abs(outputFlag)
		if err != nil {
			return fmt.Errorf("failed to resolve results file: %w", err)
		}
		resultSink, err = search.OpenSink(output)
		if err != nil {
			return fmt.Errorf("failed to open results file: %w", err)
		}
		defer resultSink.Close()
		sink = resultSink
		exclude = append(exclude, output)
	}

	opts, err := engineOptions(cfg, root, exclude...)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	events := search.NewEmitter()
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for ev := range events.Events() {
			console.LogEvent(ev)
		}
	}()

	engine := search.NewEngine(opts, nil, sink, events)
	rec, err := engine.Search(ctx, target)
	events.Close()
	<-consumed

	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if rec == nil {
		fmt.Fprintln(cmd.OutOrStdout(), notFoundMessage)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), rec.Describe())
	if resultSink != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Match appended to: %s\n", resultSink.Path())
	}
	return nil
}

// listCandidates prints every file a search under opts.Root would open,
// followed by any unreadable paths.
func listCandidates(cmd *cobra.Command, opts search.Options) error {
	walk := opts.Walk
	if len(walk.Extensions) == 0 {
		walk.Extensions = []string{search.DefaultExtension}
	}

	result, err := fileutil.ScanDirectory(opts.Root, walk)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range result.Files {
		fmt.Fprintln(out, f)
	}
	for _, scanErr := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipping: %v\n", scanErr)
	}
	fmt.Fprintf(out, "%d file(s) would be searched\n", len(result.Files))
	return nil
}
