package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/report"
)

// VersionInfo is the machine-readable form of `version`
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: runtime.Version()}
			if e.formatter.Format != report.FormatTable {
				return e.formatter.Print(info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "perfbudget %s (commit %s, built %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion)
			return err
		},
	}
}
