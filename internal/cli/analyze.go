package cli

import (
	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/scanner"
)

func newAnalyzeCmd(e *env) *cobra.Command {
	var (
		buildDir    string
		statsPath   string
		writeChunks string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the current build and check budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := e.loadProject()
			if err != nil {
				return err
			}
			if buildDir != "" {
				project.Build.Dir = buildDir
			}
			if statsPath != "" {
				project.Build.Stats = statsPath
			}

			chunks, err := scanner.Scan(project.Build.Dir, project.Build.Stats)
			if err != nil {
				return err
			}
			if writeChunks != "" {
				if err := scanner.WriteChunks(writeChunks, chunks); err != nil {
					return err
				}
				e.log.Infof("Wrote %d chunks to %s", len(chunks), writeChunks)
			}

			a := analyzer.New(e.log)
			return e.formatter.PrintAnalysis(a.AnalyzeChunks(chunks), a.CheckBudget(chunks, project.Budgets))
		},
	}

	cmd.Flags().StringVar(&buildDir, "build-dir", "", "build output directory (default from config)")
	cmd.Flags().StringVar(&statsPath, "stats", "", "webpack stats.json for module attribution")
	cmd.Flags().StringVar(&writeChunks, "write-chunks", "", "also write the chunk list as JSON for `diff`")
	return cmd
}
