package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/service"
)

func inboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Inspect inbox items",
	}

	cmd.AddCommand(listInboxCmd())

	return cmd
}

func listInboxCmd() *cobra.Command {
	var statusFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inbox items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tenant, err := requireTenant()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.InboxItemFilter{Limit: limit}
			if statusFlag != "" {
				status := model.InboxItemStatus(statusFlag)
				filter.Status = &status
			}

			items, err := store.ListInboxItems(ctx, tenant, filter)
			if err != nil {
				return fmt.Errorf("failed to list inbox items: %w", err)
			}

			if len(items) == 0 {
				fmt.Println(infoStyle.Render("No inbox items found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"),
				headerStyle.Render("Amount"),
				headerStyle.Render("Date"),
				headerStyle.Render("Status"),
				headerStyle.Render("Transaction"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 12), strings.Repeat("-", 24), strings.Repeat("-", 12),
				strings.Repeat("-", 10), strings.Repeat("-", 15), strings.Repeat("-", 12))

			for _, item := range items {
				amount := subtleStyle.Render("(unknown)")
				if item.Amount != nil {
					currency := ""
					if item.Currency != nil {
						currency = " " + *item.Currency
					}
					amount = fmt.Sprintf("%.2f%s", *item.Amount, currency)
				}
				date := subtleStyle.Render("(unknown)")
				if item.DocumentDate != nil {
					date = item.DocumentDate.Format("2006-01-02")
				}
				txn := ""
				if item.TransactionID != nil {
					txn = *item.TransactionID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					item.ID, item.DisplayName, amount, date, item.Status, txn)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by lifecycle status")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum items to list")

	return cmd
}
