package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/source"
)

var (
	sslModes      = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	sourceDrivers = []string{source.DriverSQLServer, source.DriverPostgres, source.DriverSQLite}
)

// completeFrom completes a flag value from a fixed list.
// Entries before the last comma are kept when list is set, for
// comma-separated flags such as --entity item,loc<TAB>.
func completeFrom(values func() []string, list bool) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		done, partial := "", toComplete
		if i := strings.LastIndex(toComplete, ","); list && i >= 0 {
			done, partial = toComplete[:i+1], toComplete[i+1:]
		}
		var out []string
		for _, v := range values() {
			if strings.HasPrefix(v, partial) {
				out = append(out, done+v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

var (
	completeSSLModes    = completeFrom(func() []string { return sslModes }, false)
	completeDrivers     = completeFrom(func() []string { return sourceDrivers }, false)
	completeEntityNames = completeFrom(func() []string { return entity.FrePPLe().Names() }, true)
)

// completeDirectories lets the shell complete the project directory argument.
func completeDirectories(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveFilterDirs
}
