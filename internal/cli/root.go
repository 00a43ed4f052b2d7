package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/erpsync/internal/logging"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

var rootCmd = &cobra.Command{
	Use:   "erpsync",
	Short: "Reconciling bulk loader from an ERP database into frePPLe",
	Long: `erpsync copies master and transactional data from an ERP database into the
input tables of a frePPLe planning database.

Every row is matched against the target by its natural key: rows that exist
are updated in place, rows that do not are inserted. Each entity type is
loaded in its own transaction, in dependency order, and the pass is recorded
as a task in frePPLe's execute_log so it shows up on the task screen.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration, task or entity type
  11 - frePPLe database connection failed
  12 - ERP database unreachable or lost during the pass
  13 - Sync pass failed or an entity type was rolled back
  14 - Another pass is running against the same frePPLe database`,
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
	rootCmd.PersistentFlags().Bool("help", false, "Help for erpsync")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (default $ERPSYNC_LOG_FORMAT, else text)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", erpsync.ErrUsage, err)
	})
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

// getLogFormat reads --log-format, falling back to $ERPSYNC_LOG_FORMAT.
func getLogFormat(cmd *cobra.Command) (logging.Format, error) {
	value, _ := cmd.Flags().GetString("log-format")
	if value == "" {
		value = os.Getenv("ERPSYNC_LOG_FORMAT")
	}
	return logging.ParseFormat(value)
}
