package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/check"
	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/github"
	"github.com/nahidhasan98/perfbudget/internal/lighthouse"
	"github.com/nahidhasan98/perfbudget/internal/report"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

type checkFlags struct {
	branch         string
	baselineBranch string
	commit         string
	pr             int
	skipLighthouse bool
	noSave         bool
	comment        bool
	status         bool
	upload         string
}

func newCheckCmd(e *env) *cobra.Command {
	var f checkFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the full budget check; exits non-zero when the build is blocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			project, err := e.loadProject()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("comment") {
				f.comment = project.GitHub.Comment
			}
			if !cmd.Flags().Changed("status") {
				f.status = project.GitHub.Status
			}
			return runCheck(cmd.Context(), e, settings, project, f)
		},
	}

	cmd.Flags().StringVar(&f.branch, "branch", "", "branch being checked (default from the GitHub event)")
	cmd.Flags().StringVar(&f.baselineBranch, "baseline-branch", "", "branch to compare against (default storage.baseline_branch)")
	cmd.Flags().StringVar(&f.commit, "commit", "", "commit SHA being checked")
	cmd.Flags().IntVar(&f.pr, "pr", 0, "pull request number")
	cmd.Flags().BoolVar(&f.skipLighthouse, "skip-lighthouse", false, "skip runtime metrics")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "do not store this run")
	cmd.Flags().BoolVar(&f.comment, "comment", false, "post or update the pull request comment")
	cmd.Flags().BoolVar(&f.status, "status", false, "set a commit status")
	cmd.Flags().StringVar(&f.upload, "upload", "", "dashboard URL to upload the run to (signed with PERFBUDGET_INGEST_SECRET)")
	return cmd
}

func runCheck(ctx context.Context, e *env, settings *config.Config, project *config.Project, f checkFlags) error {
	// Fill gaps from the Actions event payload
	if settings.GitHub.EventPath != "" {
		event, err := github.ReadEvent(settings.GitHub.EventPath)
		if err != nil {
			e.log.Warnf("Ignoring GitHub event: %v", err)
		} else {
			if f.branch == "" {
				f.branch = event.GetHeadBranch()
			}
			if f.baselineBranch == "" {
				f.baselineBranch = event.GetBaseBranch()
			}
			if f.commit == "" {
				f.commit = event.GetHeadSHA()
			}
			if f.pr == 0 {
				f.pr = event.GetNumber()
			}
		}
	}
	if f.branch == "" {
		f.branch = project.Storage.BaselineBranch
	}

	var store check.Store
	if project.Storage.Path != "" || settings.Database.DSN != "" {
		s, err := e.openStore(ctx, project, settings)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	var runner lighthouse.Runner
	if project.Lighthouse.Enabled && !f.skipLighthouse {
		runner = lighthouse.CLIRunner{
			Binary:  project.Lighthouse.Binary,
			Preset:  project.Lighthouse.Preset,
			Timeout: project.Lighthouse.Timeout,
		}
	}

	checker := check.NewChecker(project, store, runner, e.log)
	r, err := checker.Run(ctx, check.Options{
		Branch:         f.branch,
		BaselineBranch: f.baselineBranch,
		Commit:         f.commit,
		PRNumber:       f.pr,
		SkipLighthouse: f.skipLighthouse,
		Save:           !f.noSave,
	})
	if err != nil {
		return err
	}

	if err := e.formatter.PrintCheck(r); err != nil {
		return err
	}
	e.formatter.PrintPages(r.Pages)

	if f.comment || f.status {
		publishToGitHub(ctx, e, settings, r, f)
	}

	if f.upload != "" {
		resp, err := newUploader(e.log).Upload(ctx, f.upload, settings.Security.IngestSecret, r.Run())
		if err != nil {
			e.log.Error("Run upload failed", err)
		} else {
			e.log.Infof("Uploaded run %s to %s", resp.RunID, f.upload)
		}
	}

	if r.Blocked {
		return &ExitError{Code: 1, Message: fmt.Sprintf("performance budget failed (score %d/100)", r.Score)}
	}
	return nil
}

// publishToGitHub posts the PR comment and commit status. Failures are
// logged; they never change the check outcome.
func publishToGitHub(ctx context.Context, e *env, settings *config.Config, r *check.Report, f checkFlags) {
	client, err := github.NewClient(settings.GitHub.Token, settings.GitHub.Repository, settings.GitHub.APIURL, e.log)
	if err != nil {
		e.log.Warnf("GitHub reporting skipped: %v", err)
		return
	}

	if f.comment {
		if r.PRNumber <= 0 {
			e.log.Warn("No pull request number, skipping comment")
		} else if comment, err := client.UpsertComment(ctx, r.PRNumber, report.Markdown(r)); err != nil {
			e.log.Error("Failed to post pull request comment", err)
		} else {
			e.log.Infof("Updated pull request comment %s", comment.HTMLURL)
		}
	}

	if f.status {
		if r.Commit == "" {
			e.log.Warn("No commit SHA, skipping status")
			return
		}
		if err := client.SetStatus(ctx, r.Commit, statusState(r.Status), statusDescription(r), ""); err != nil {
			e.log.Error("Failed to set commit status", err)
		}
	}
}

func statusState(s threshold.Status) string {
	if s == threshold.StatusFail {
		return github.StateFailure
	}
	return github.StateSuccess
}

func statusDescription(r *check.Report) string {
	switch r.Status {
	case threshold.StatusFail:
		return fmt.Sprintf("Budget failed, score %d/100", r.Score)
	case threshold.StatusWarn:
		return fmt.Sprintf("Passed with warnings, score %d/100", r.Score)
	default:
		return fmt.Sprintf("Budget passed, score %d/100", r.Score)
	}
}
