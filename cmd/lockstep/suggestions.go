package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lockstep-fin/lockstep/internal/match"
	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/service"
)

func suggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Review and act on match suggestions",
	}

	cmd.AddCommand(listSuggestionsCmd())
	cmd.AddCommand(confirmSuggestionCmd())
	cmd.AddCommand(declineSuggestionCmd())

	return cmd
}

func listSuggestionsCmd() *cobra.Command {
	var statusFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List match suggestions",
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

			filter := service.SuggestionFilter{Limit: limit}
			if statusFlag != "" {
				status := model.SuggestionStatus(statusFlag)
				filter.Status = &status
			}

			suggestions, err := store.ListSuggestions(ctx, tenant, filter)
			if err != nil {
				return fmt.Errorf("failed to list suggestions: %w", err)
			}

			if len(suggestions) == 0 {
				fmt.Println(infoStyle.Render("No suggestions found. Run 'lockstep match run' first."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Inbox Item"),
				headerStyle.Render("Transaction"),
				headerStyle.Render("Confidence"),
				headerStyle.Render("Type"),
				headerStyle.Render("Status"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 36), strings.Repeat("-", 12), strings.Repeat("-", 12),
				strings.Repeat("-", 10), strings.Repeat("-", 15), strings.Repeat("-", 9))

			for _, s := range suggestions {
				status := string(s.Status)
				switch s.Status {
				case model.SuggestionConfirmed:
					status = successStyle.Render(status)
				case model.SuggestionDeclined, model.SuggestionUnmatched:
					status = subtleStyle.Render(status)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
					s.ID, s.InboxItemID, s.TransactionID, s.Confidence, s.MatchType, status)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (pending, confirmed, declined, unmatched)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum suggestions to list")

	return cmd
}

func confirmSuggestionCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "confirm <suggestion-id>",
		Short: "Confirm a pending suggestion",
		Long: `Confirm a pending match suggestion. The linked inbox item moves to done
and records the transaction link; both changes apply atomically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			suggestion, err := store.GetSuggestion(ctx, tenant, args[0])
			if err != nil {
				return err
			}

			lifecycle := match.NewLifecycle(store)
			if err := lifecycle.Confirm(ctx, tenant, suggestion.ID, suggestion.InboxItemID, suggestion.TransactionID, userID); err != nil {
				return err
			}

			fmt.Println(successStyle.Render(fmt.Sprintf(
				"Confirmed: inbox item %s matched to transaction %s",
				suggestion.InboxItemID, suggestion.TransactionID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "acting user ID")

	return cmd
}

func declineSuggestionCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "decline <suggestion-id>",
		Short: "Decline a pending suggestion",
		Long: `Decline a pending match suggestion. The inbox item returns to the
matching pool; the pair is never proposed again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			suggestion, err := store.GetSuggestion(ctx, tenant, args[0])
			if err != nil {
				return err
			}

			lifecycle := match.NewLifecycle(store)
			if err := lifecycle.Decline(ctx, tenant, suggestion.ID, suggestion.InboxItemID, userID); err != nil {
				return err
			}

			fmt.Println(infoStyle.Render(fmt.Sprintf(
				"Declined: inbox item %s returned to the matching pool",
				suggestion.InboxItemID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "acting user ID")

	return cmd
}
