package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// OptionalProjectDir accepts zero or one project directory argument.
// The directory holds erpsync.yaml and .env; it defaults to the working directory.
func OptionalProjectDir(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf(`%w: accepts at most 1 arg(s), received %d

Usage: %s

Example:
  %s ./frepple-sync`, erpsync.ErrUsage, len(args), cmd.UseLine(), cmd.CommandPath())
	}
	return nil
}

// projectDir returns the project directory argument or ".".
func projectDir(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return "."
	}
	return args[0]
}
