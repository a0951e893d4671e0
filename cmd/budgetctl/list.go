package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

func jobsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent statement imports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			jobs, err := c.ImportAPI().ListImportJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), SubtleStyle.Render("No imports yet"))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tFILE\tSTATUS\tIMPORTED\tSKIPPED\tTOTAL")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", j.StartedAt, j.Filename, j.Status, j.RowsImported, j.RowsSkipped, j.RowsTotal)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of jobs to show")
	return cmd
}

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Work with stored expenses",
	}
	cmd.AddCommand(expensesListCmd(), expensesCategorizeCmd(), expensesSuggestCmd(), rulesCmd())
	return cmd
}

func expensesListCmd() *cobra.Command {
	var req v1.ListExpensesRequest
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Expense.ListExpenses(cmd.Context(), connect.NewRequest(&req))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tTYPE\tCATEGORY\tID")
			for _, e := range resp.Msg.Expenses {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Date, e.Description, e.Amount, e.Type, e.Category, e.ID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SubtleStyle.Render(fmt.Sprintf("%d of %d", len(resp.Msg.Expenses), resp.Msg.Total)))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.StartDate, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.EndDate, "to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Category, "category", "", "only this category")
	cmd.Flags().IntVar(&req.Limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "page offset")
	return cmd
}

func expensesCategorizeCmd() *cobra.Command {
	var similar bool
	cmd := &cobra.Command{
		Use:   "categorize <id> <category>",
		Short: "Change the category of an expense and remember the merchant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Expense.UpdateExpenseCategory(cmd.Context(), connect.NewRequest(&v1.UpdateExpenseCategoryRequest{
				ID:             args[0],
				Category:       args[1],
				ApplyToSimilar: similar,
			}))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, SuccessStyle.Render(SuccessIcon+" "+resp.Msg.Expense.Description+" is now "+resp.Msg.Expense.Category))
			if resp.Msg.SimilarUpdated > 0 {
				fmt.Fprintf(out, "%d similar expenses updated\n", resp.Msg.SimilarUpdated)
			}
			if rule := resp.Msg.Rule; rule != nil {
				fmt.Fprintln(out, SubtleStyle.Render(fmt.Sprintf("rule %s -> %s (seen %d times)", rule.MerchantName, rule.Category, rule.Confidence)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&similar, "similar", false, "also recategorize other expenses from the same merchant")
	return cmd
}

func expensesSuggestCmd() *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "suggest <description>",
		Short: "Ask the classifier for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Expense.SuggestCategory(cmd.Context(), connect.NewRequest(&v1.SuggestCategoryRequest{
				Description: args[0],
				Amount:      amount,
			}))
			if err != nil {
				return err
			}
			s := resp.Msg
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s\n", BoldStyle.Render(s.Category), s.Confidence, SubtleStyle.Render("via "+s.Source))
			if s.Reasoning != "" {
				fmt.Fprintln(out, SubtleStyle.Render(s.Reasoning))
			}
			if s.IsAmbiguous && len(s.Alternatives) > 0 {
				fmt.Fprintln(out, WarningStyle.Render(WarningIcon+" could also be: "+strings.Join(s.Alternatives, ", ")))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "transaction amount")
	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List learned merchant rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Expense.ListMerchantRules(cmd.Context(), connect.NewRequest(&v1.ListMerchantRulesRequest{}))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MERCHANT\tCATEGORY\tSEEN\tUPDATED")
			for _, r := range resp.Msg.Rules {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.MerchantName, r.Category, r.Confidence, r.UpdatedAt)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "forget <merchant>",
		Short: "Delete a learned merchant rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if _, err := c.Expense.DeleteMerchantRule(cmd.Context(), connect.NewRequest(&v1.DeleteMerchantRuleRequest{MerchantName: args[0]})); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(SuccessIcon+" Forgot "+args[0]))
			return nil
		},
	})
	return cmd
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the expense categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Expense.ListCategories(cmd.Context(), connect.NewRequest(&v1.ListCategoriesRequest{}))
			if err != nil {
				return err
			}
			for _, name := range resp.Msg.Categories {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
