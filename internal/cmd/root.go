package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for mailscan
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailscan",
		Short: "Bulk email address search across CSV exports",
		Long: `mailscan searches a directory tree of CSV files for rows that contain
any of a list of email addresses.

Each address is matched case-insensitively against the first and third
column of every row. The first matching row per address is appended to a
results file as soon as it is found, so an interrupted run keeps every
match it already made.`,
		Version: Version,
		// main prints the error; usage text would bury it
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewSearchCommand())
	cmd.AddCommand(NewFindCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
