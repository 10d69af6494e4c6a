package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
	"github.com/abdul-hamid-achik/pollhttp/packages/pool"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pollhttp %s (built %s, %s)\n", version, buildTime, runtime.Version())
		fmt.Fprintf(out, "default pool size: %d\n", pool.DefaultSize)
		fmt.Fprintf(out, "response timeout:  %s\n", http.ResponseTimeout)
	},
}
