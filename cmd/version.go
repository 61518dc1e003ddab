// =============================================================================
// Bulk Importer - Version Command
// =============================================================================
//
// Reports the binary's version, build date, and Go runtime. Both values
// are stamped at build time:
//
//   go build -ldflags "\
//     -X 'github.com/vendorvault/importer/cmd.Version=1.2.0' \
//     -X 'github.com/vendorvault/importer/cmd.BuildDate=2026-08-30'"
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the release version, or "dev" for unstamped builds.
var Version = "dev"

// BuildDate is the build timestamp, or "unknown" for unstamped builds.
var BuildDate = "unknown"

// versionCmd represents the 'version' command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the importer version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("importer %s (built %s, %s)\n", Version, BuildDate, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
