package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dsload",
	Short: "CSV-to-PostgreSQL warehouse loader",
	Long: `dsload ingests delimited source files into a PostgreSQL warehouse.

Each configured table is parsed with encoding fallback, normalized per its
profile, and upserted by primary key (or truncated and reloaded) inside one
transaction. Every attempt leaves an audit record in logs.etl_logs, and a
failed table never stops the tables after it.

Exit Codes:
  0  - Run finished (individual tables may still have failed; check the audit trail)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - A mapped source file does not exist
  13 - SQL execution failed outside table isolation`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for dsload")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
