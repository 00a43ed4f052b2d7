package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersionInfo()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolveVersionInfo prefers ldflags values and falls back to the module
// build info for binaries installed with go install.
func resolveVersionInfo() (v, c, d string) {
	if version != "dev" {
		return version, commit, date
	}
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) (v, c, d string) {
	v, c, d = version, commit, date
	if info == nil {
		return v, c, d
	}
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		v = mv
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			c = s.Value[:min(len(s.Value), 12)]
		case "vcs.time":
			d = s.Value
		}
	}
	return v, c, d
}

// printVersionInfo writes the one-line version to stdout and the banner to stderr.
func printVersionInfo() {
	writeVersionInfo(os.Stdout, os.Stderr)
}

func writeVersionInfo(out, banner io.Writer) {
	v, c, d := resolveVersionInfo()
	fmt.Fprintf(out, "erpsync %s (%s, %s) %s/%s\n", v, c, d, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(banner, "ERP to frePPLe reconciling bulk loader")
	fmt.Fprintln(banner)
	fmt.Fprintln(banner, "Repository: https://github.com/vvka-141/erpsync")
}
