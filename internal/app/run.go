package app

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/review"
	"github.com/nhle/fetchheaders/internal/session"
	appsync "github.com/nhle/fetchheaders/internal/sync"
)

// Runner wires configuration, sessions and logging into the two phases
// of a run: poll and review, then delete.
type Runner struct {
	Config *model.AppConfig
	Open   session.Factory
	Log    *zap.Logger
	Out    io.Writer

	// ProgramOptions are passed to the bubbletea program.
	ProgramOptions []tea.ProgramOption
}

// Run polls every account, shows the review and, on commit, deletes the
// marked messages. Per-account failures are reported, not returned.
func (r *Runner) Run(ctx context.Context) error {
	poller := appsync.NewPoller(r.Config.Accounts, r.Open, r.Config.Global.MaxThreads, r.Log)

	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, r.ProgramOptions...)
	final, err := tea.NewProgram(New(ctx, r.Config.Global, poller), opts...).Run()
	if err != nil {
		return fmt.Errorf("running review: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return fmt.Errorf("unexpected final model %T", final)
	}

	outcome, deletions := m.Outcome()
	return r.Finish(ctx, outcome, deletions)
}

// Finish performs the delete phase for a terminated review and prints a
// per-account summary.
func (r *Runner) Finish(ctx context.Context, outcome review.Outcome, deletions map[string][]string) error {
	if outcome != review.OutcomeCommit {
		r.Log.Info("review aborted")
		fmt.Fprintln(r.Out, "Aborted. No messages were deleted.")
		return nil
	}
	if len(deletions) == 0 {
		r.Log.Info("review committed with no marks")
		return nil
	}

	results := appsync.DeleteAll(
		ctx, r.Config.Accounts, deletions, r.Config.Global.MaxThreads, r.Open, r.Log,
	)
	PrintDeletionSummary(r.Out, results, r.Config.Accounts)
	return nil
}

// PrintDeletionSummary writes one line per account that had deletions.
func PrintDeletionSummary(w io.Writer, results []appsync.DeletionResult, accounts []model.AccountConfig) {
	byName := make(map[string]model.AccountConfig, len(accounts))
	for _, a := range accounts {
		byName[a.Name] = a
	}

	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s: failed to delete %d message(s): %v\n", res.Account, res.Count, res.Err)
			continue
		}
		acct := byName[res.Account]
		verb := "moved"
		if !acct.HardDelete {
			verb = "copied"
		}
		fmt.Fprintf(w, "%s: %s %d message(s) to %s\n", res.Account, verb, res.Count, acct.Trash)
	}
}

// Plain polls every account and prints the aggregated list without the
// interactive review. Nothing is deleted.
func (r *Runner) Plain(ctx context.Context) error {
	poller := appsync.NewPoller(r.Config.Accounts, r.Open, r.Config.Global.MaxThreads, r.Log)
	results := poller.Run(ctx)
	WritePlain(r.Out, results, r.Config.Global.ShowFlags)
	return nil
}

// WritePlain renders results as text in review order: each account's
// header, a blank line, its messages, and two blank lines.
func WritePlain(w io.Writer, results []model.AccountResult, showFlags bool) {
	state := review.New(results, review.Options{ShowFlags: showFlags})
	for _, sec := range state.Sections() {
		fmt.Fprintln(w, sec.Header())
		fmt.Fprintln(w)
		for i := sec.Start; i < sec.End; i++ {
			fmt.Fprintln(w, state.Line(i).String())
		}
		fmt.Fprint(w, "\n\n")
	}
}
