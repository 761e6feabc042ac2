// Package cli provides the Cobra commands for the perfbudget binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/report"
	"github.com/nahidhasan98/perfbudget/internal/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// ExitError carries a process exit code out of a command
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode maps a command error to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// env is the state shared by all commands of one invocation
type env struct {
	// Global flags
	configPath string
	outputFmt  string
	logLevel   string
	quiet      bool

	errOut    io.Writer
	log       *logger.Logger
	formatter *report.Formatter
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	e := &env{errOut: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "perfbudget",
		Short: "Performance budgets for Next.js builds",
		Long: `perfbudget measures a Next.js build against size budgets, compares it with
the last stored run and optionally audits pages with Lighthouse.

Get started:
  perfbudget init       Write perf-budget.yaml
  perfbudget analyze    Inspect the current build
  perfbudget check      Run the full check (CI)`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Silence errors only when --quiet is used
			cmd.SilenceErrors = e.quiet

			format, err := report.ParseFormat(e.outputFmt)
			if err != nil {
				return err
			}
			e.formatter = report.NewFormatter(format, e.quiet)
			e.formatter.Writer = cmd.OutOrStdout()
			e.errOut = cmd.ErrOrStderr()
			e.log = logger.NewWithWriter(e.errOut, e.logLevel, "text")
			return nil
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&e.configPath, "config", config.DefaultProjectFile,
		"project config file")
	rootCmd.PersistentFlags().StringVarP(&e.outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "info",
		"log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&e.quiet, "quiet", "q", false,
		"minimal output")

	// Add subcommands
	rootCmd.AddCommand(newInitCmd(e))
	rootCmd.AddCommand(newAnalyzeCmd(e))
	rootCmd.AddCommand(newDiffCmd(e))
	rootCmd.AddCommand(newCheckCmd(e))
	rootCmd.AddCommand(newHistoryCmd(e))
	rootCmd.AddCommand(newTrendCmd(e))
	rootCmd.AddCommand(newServeCmd(e))
	rootCmd.AddCommand(newVersionCmd(e))

	return rootCmd
}

// Execute runs the CLI
func Execute() error {
	return NewRootCommand().Execute()
}

// loadProject reads the project file, falling back to defaults when it is missing
func (e *env) loadProject() (*config.Project, error) {
	project, err := config.LoadProject(e.configPath)
	if errors.Is(err, config.ErrConfigNotFound) {
		e.log.Warnf("%s not found, using default budgets (run `perfbudget init` to create it)", e.configPath)
		return config.DefaultProject(), nil
	}
	return project, err
}

// openStore opens the run history named by PERFBUDGET_DB_DSN or the project file
func (e *env) openStore(ctx context.Context, project *config.Project, settings *config.Config) (*storage.Store, error) {
	dsn := project.Storage.Path
	if settings != nil && settings.Database.DSN != "" {
		dsn = settings.Database.DSN
	}
	if dsn == "" {
		return nil, fmt.Errorf("no run history configured (storage.path)")
	}
	e.log.Debugf("Opening run history %s", dsn)
	return storage.Open(ctx, dsn)
}
