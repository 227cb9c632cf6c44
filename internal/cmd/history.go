package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/mailscan/internal/display"
	"github.com/harrison/mailscan/internal/history"
)

// NewHistoryCommand creates the history command and its subcommands
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past search runs",
		Long: `List search runs recorded in the history database, most recent first.

The database lives at $MAILSCAN_HOME/history.db unless history.db_path
is set in the configuration file.

Examples:
  mailscan history
  mailscan history --limit 5
  mailscan history show 1a2b3c4d`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .mailscan/config.yaml)")
	cmd.PersistentFlags().String("db", "", "Path to the history database")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")

	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its matches",
		Long:  "Show the statistics and matches of one run. A unique prefix of the run ID is enough.",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	display.PrintRuns(cmd.OutOrStdout(), runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, history.ErrAmbiguousRunID) {
			return fmt.Errorf("%w; use more characters of the run ID", err)
		}
		return err
	}

	matches, err := store.GetMatches(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}

	display.PrintRun(cmd.OutOrStdout(), run, matches)
	return nil
}

// openHistoryStore opens the database named by --db, or the configured one.
func openHistoryStore(cmd *cobra.Command) (*history.Store, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		if dbPath, err = cfg.HistoryDBPath(); err != nil {
			return nil, err
		}
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}
