package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"spendlog/internal/amqp"
	"spendlog/internal/chart"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/tui"
)

func addCmd(a *app) *cobra.Command {
	var c core.Candidate
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  spendctl add --description Coffee --amount 4.50 --type expense --category Food
  spendctl add -d Salary -a 2000 -t income -c Work --date 2024-01-02`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := store.Add(cmd.Context(), c)
			if err != nil && !errors.Is(err, services.ErrPersistence) {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: storage is unavailable, the transaction was not saved")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d: %s %s (%s)\n",
				tx.ID, tx.Description, core.FormatCurrency(tx.Signed()), tx.Type)
			return nil
		},
	}
	cmd.Flags().StringVarP(&c.Description, "description", "d", "", "what the transaction was for")
	cmd.Flags().StringVarP(&c.Amount, "amount", "a", "", "positive amount, e.g. 4.50")
	cmd.Flags().StringVarP(&c.Type, "type", "t", string(core.Expense), "income or expense")
	cmd.Flags().StringVar(&c.Date, "date", time.Now().Format(core.DateLayout), "date as YYYY-MM-DD")
	cmd.Flags().StringVarP(&c.Category, "category", "c", "", "category label")
	return cmd
}

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a transaction by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			err = store.Remove(cmd.Context(), id)
			if err != nil && !errors.Is(err, services.ErrPersistence) {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: storage is unavailable, the deletion was not saved")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d\n", id)
			return nil
		},
	}
}

func lsCmd(a *app) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tracker, err := a.tracker(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer tracker.Close()

			d := tracker.Dashboard(query)
			if len(d.Items) == 0 {
				if query != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "No transactions match %q.\n", query)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No transactions yet.")
				}
				return nil
			}
			renderTransactions(cmd.OutOrStdout(), d)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show transactions whose description or category contains this text")
	return cmd
}

func renderTransactions(w io.Writer, d services.Dashboard) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Description", "Category", "Type", "Amount"})
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})
	for _, tx := range d.Items {
		category := tx.Category
		if category == "" {
			category = core.UncategorizedLabel
		}
		table.Append([]string{
			strconv.FormatInt(tx.ID, 10),
			tx.Date.String(),
			tx.Description,
			category,
			string(tx.Type),
			core.FormatCurrency(tx.Signed()),
		})
	}
	table.SetFooter([]string{"", "", "", "", "Balance", core.FormatCurrency(d.Summary.Balance.Cents)})
	table.Render()
}

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balance, totals and expenses by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tracker, err := a.tracker(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer tracker.Close()

			sum := tracker.Dashboard("").Summary
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Balance:   %s\n", core.FormatCurrency(sum.Balance.Cents))
			fmt.Fprintf(out, "Income:    %s\n", core.FormatCurrency(sum.TotalIncome.Cents))
			fmt.Fprintf(out, "Expenses:  %s\n", core.FormatCurrency(sum.TotalExpense.Cents))
			fmt.Fprintf(out, "Count:     %d\n", sum.Count)
			if len(sum.Breakdown) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Category", "Spent"})
			table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
			for _, c := range sum.Breakdown {
				table.Append([]string{c.Name, core.FormatCurrency(c.Amount.Cents)})
			}
			table.Render()
			return nil
		},
	}
}

func chartCmd(a *app) *cobra.Command {
	var (
		output        string
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render expenses by category as a PNG pie chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pie := chart.NewPieRenderer(width, height)
			tracker, err := a.tracker(cmd.Context(), pie)
			if err != nil {
				return err
			}
			defer tracker.Close()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := pie.Render(f); err != nil {
				f.Close()
				os.Remove(output)
				if errors.Is(err, chart.ErrNoData) {
					return errors.New("no expenses to chart")
				}
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "expenses.png", "PNG file to write")
	cmd.Flags().IntVar(&width, "width", 0, "image width in pixels (default 512)")
	cmd.Flags().IntVar(&height, "height", 0, "image height in pixels (default 512)")
	return cmd
}

func tuiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse, search and delete transactions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), store, tui.Options{
				Mode:        a.cfg.Mode(),
				SearchDelay: a.cfg.SearchDebounce,
				Logger:      a.logger.WithComponent(log.ComponentTUI).Slog(),
			})
		},
	}
}

func eventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print transaction change events from the AMQP feed",
		Long: `Consumes the queue the server publishes to and prints one line per event
until interrupted. Requires AMQP_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.AMQPEnabled() {
				return errors.New("AMQP_URL is not set")
			}
			client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.ConsumeTransactionEvents(cmd.Context(), func(ev *amqp.TransactionEvent) error {
				_, err := fmt.Fprintln(out, formatEvent(ev))
				return err
			})
			if errors.Is(err, cmd.Context().Err()) {
				return nil
			}
			return err
		},
	}
}

func formatEvent(ev *amqp.TransactionEvent) string {
	line := fmt.Sprintf("%s  %-20s  %d", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.ID)
	if tx := ev.Transaction; tx != nil {
		line += fmt.Sprintf("  %s  %s  %s", tx.Date, tx.Description, core.FormatCurrency(tx.Signed()))
	}
	return line
}
