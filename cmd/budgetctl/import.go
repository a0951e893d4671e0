package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/budget-tracker/internal/wizard"
	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

type importOptions struct {
	password      string
	from, to      string
	clearPrevious bool
	acceptAll     bool
}

func importCmd() *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import <statement>",
		Short: "Import a CSV, Excel or PDF bank statement",
		Long: `Uploads a statement, asks for the date range to keep and for a category
for every merchant the classifier was unsure about, then stores the expenses.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read statement: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			w := wizard.New(c.ImportAPI(),
				wizard.WithClearPrevious(opts.clearPrevious),
				// The command exits after printing the result.
				wizard.WithAutoReturn(0, nil),
			)
			r := &importRun{
				w:    w,
				p:    newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
				out:  cmd.OutOrStdout(),
				opts: opts,
			}
			return r.run(cmd.Context(), filepath.Base(args[0]), data)
		},
	}
	cmd.Flags().StringVar(&opts.password, "password", "", "password of an encrypted PDF")
	cmd.Flags().StringVar(&opts.from, "from", "", "first day to import (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last day to import (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.clearPrevious, "clear-previous", false, "delete existing expenses before importing")
	cmd.Flags().BoolVarP(&opts.acceptAll, "yes", "y", false, "accept every suggested category")
	return cmd
}

// importRun drives a wizard from the terminal.
type importRun struct {
	w    *wizard.Wizard
	p    *prompter
	out  io.Writer
	opts importOptions
}

func (r *importRun) run(ctx context.Context, filename string, data []byte) (err error) {
	defer func() {
		if err != nil && r.w.State() != wizard.StateUpload && r.w.State() != wizard.StateDone {
			// Drop the server session; use a fresh context if ours was cancelled.
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = r.w.Cancel(cctx)
			cancel()
		}
	}()

	if err := r.spin("Reading statement", func() error { return r.w.SelectFile(ctx, filename, data) }); err != nil {
		return r.explain(err)
	}
	if err := r.unlock(ctx); err != nil {
		return err
	}
	if err := r.chooseRange(ctx); err != nil {
		return err
	}
	if r.w.State() == wizard.StateClarify {
		if err := r.clarify(ctx); err != nil {
			return err
		}
	}

	v := r.w.View()
	if v.Result == nil {
		return errors.New("import did not finish")
	}
	r.printResult(v.Result)
	return nil
}

// unlock asks for the PDF password until the statement opens. An empty
// answer gives up.
func (r *importRun) unlock(ctx context.Context) error {
	password := r.opts.password
	for r.w.State() == wizard.StatePassword {
		if password == "" {
			fmt.Fprintln(r.out, WarningStyle.Render(WarningIcon+" "+r.w.View().Message))
			var err error
			if password, err = r.p.ask("PDF password (empty to cancel)", ""); err != nil || password == "" {
				return errors.New("import cancelled")
			}
		}
		err := r.spin("Decrypting", func() error { return r.w.SubmitPassword(ctx, password) })
		password = ""
		if err == nil {
			continue
		}
		if connect.CodeOf(err) != connect.CodeFailedPrecondition {
			return r.explain(err)
		}
		fmt.Fprintln(r.out, ErrorStyle.Render(ErrorIcon+" "+r.w.View().Message))
	}
	return nil
}

func (r *importRun) chooseRange(ctx context.Context) error {
	v := r.w.View()
	r.printUpload(v)

	start, end := r.opts.from, r.opts.to
	if v.DateRange != nil {
		if start == "" {
			start = v.DateRange.MinDate
		}
		if end == "" {
			end = v.DateRange.MaxDate
		}
	}
	interactive := r.opts.from == "" && r.opts.to == ""

	for {
		if interactive && v.DateRange != nil {
			var err error
			if start, end, err = r.pickRange(v.DateRange); err != nil {
				return err
			}
		}
		err := r.spin("Classifying transactions", func() error { return r.w.SelectRange(ctx, start, end) })
		if err == nil {
			return nil
		}
		if !interactive || connect.CodeOf(err) != connect.CodeInvalidArgument || r.w.State() != wizard.StateDateRange {
			return r.explain(err)
		}
		fmt.Fprintln(r.out, ErrorStyle.Render(ErrorIcon+" "+r.w.View().Message))
	}
}

// pickRange offers the suggested ranges by number, or a custom start and end.
func (r *importRun) pickRange(dr *v1.DateRange) (string, string, error) {
	fmt.Fprintln(r.out, HeaderStyle.Render("Date range"))
	fmt.Fprintf(r.out, "  0. Everything (%s to %s)\n", dr.MinDate, dr.MaxDate)
	for i, s := range dr.SuggestedRanges {
		fmt.Fprintf(r.out, "  %d. %s %s\n", i+1, s.Label, SubtleStyle.Render(fmt.Sprintf("(%s to %s, %d days)", s.StartDate, s.EndDate, s.Days)))
	}
	fmt.Fprintln(r.out, "  c. Custom")

	for {
		answer, err := r.p.ask("Range", "0")
		if err != nil {
			return "", "", err
		}
		if strings.EqualFold(answer, "c") {
			start, err := r.p.ask("From", dr.MinDate)
			if err != nil {
				return "", "", err
			}
			end, err := r.p.ask("To", dr.MaxDate)
			if err != nil {
				return "", "", err
			}
			return start, end, nil
		}
		n, err := strconv.Atoi(answer)
		switch {
		case err != nil || n < 0 || n > len(dr.SuggestedRanges):
			fmt.Fprintln(r.out, WarningStyle.Render("Choose a number from the list or c"))
		case n == 0:
			return dr.MinDate, dr.MaxDate, nil
		default:
			s := dr.SuggestedRanges[n-1]
			return s.StartDate, s.EndDate, nil
		}
	}
}

// clarify asks for a category for every ambiguous merchant. Enter keeps
// the suggestion.
func (r *importRun) clarify(ctx context.Context) error {
	v := r.w.View()
	items := v.Range.AmbiguousItems
	fmt.Fprintln(r.out, WarningStyle.Render(fmt.Sprintf("%s %d of %d transactions need a category", WarningIcon, v.Range.AmbiguousCount, v.Range.FilteredCount)))

	if !r.opts.acceptAll {
		bar := progressbar.NewOptions(len(items),
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetDescription("Reviewed"),
		)
		for _, it := range items {
			fmt.Fprintln(r.out)
			fmt.Fprintf(r.out, "%s  %s  %s\n", BoldStyle.Render(it.NormalizedMerchant), it.Amount, SubtleStyle.Render(it.Date))
			if it.TransactionCount > 1 {
				fmt.Fprintln(r.out, SubtleStyle.Render(fmt.Sprintf("  %d transactions from this merchant", it.TransactionCount)))
			}
			if it.Reasoning != "" {
				fmt.Fprintln(r.out, SubtleStyle.Render("  "+it.Reasoning))
			}
			if len(it.Alternatives) > 0 {
				fmt.Fprintln(r.out, SubtleStyle.Render("  also: "+strings.Join(it.Alternatives, ", ")))
			}
			for {
				answer, err := r.p.ask("Category", v.Choices[it.Index])
				if err != nil {
					return err
				}
				if err := r.w.SetChoice(it.Index, answer); err != nil {
					fmt.Fprintln(r.out, ErrorStyle.Render(ErrorIcon+" "+err.Error()))
					continue
				}
				break
			}
			_ = bar.Add(1)
		}
		_ = bar.Finish()
		fmt.Fprintln(r.out)
	}

	if err := r.spin("Importing", func() error { return r.w.SubmitClarifications(ctx) }); err != nil {
		return r.explain(err)
	}
	return nil
}

func (r *importRun) printUpload(v wizard.View) {
	body := fmt.Sprintf("File:         %s (%s)\nTransactions: %d", v.Filename, v.FileType, v.TransactionCount)
	if v.DateRange != nil {
		body += fmt.Sprintf("\nPeriod:       %s to %s (%d days)", v.DateRange.MinDate, v.DateRange.MaxDate, v.DateRange.TotalDays)
	}
	fmt.Fprintln(r.out, renderBox("Statement", body))
}

func (r *importRun) printResult(res *v1.ImportTransactionsResponse) {
	body := fmt.Sprintf("Imported: %d\nSkipped:  %d\nTotal:    %d", res.Imported, res.Skipped, res.Total)
	if len(res.Learned) > 0 {
		body += "\n\nLearned rules:"
		for _, l := range res.Learned {
			body += fmt.Sprintf("\n  %s -> %s", l.MerchantName, l.Category)
		}
	}
	fmt.Fprintln(r.out, renderBox("Import complete", body))
	if res.Message != "" {
		fmt.Fprintln(r.out, SuccessStyle.Render(SuccessIcon+" "+res.Message))
	}
}

// explain replaces a transport error with the message the wizard kept for
// the user.
func (r *importRun) explain(err error) error {
	if errors.Is(err, wizard.ErrInvalidFileType) || errors.Is(err, context.Canceled) {
		return err
	}
	if msg := r.w.View().Message; msg != "" {
		return errors.New(msg)
	}
	return err
}

// spin shows a spinner on the output while fn runs.
func (r *importRun) spin(desc string, fn func() error) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = bar.Add(1)
			}
		}
	}()

	err := fn()
	close(done)
	wg.Wait()
	_ = bar.Finish()
	return err
}
