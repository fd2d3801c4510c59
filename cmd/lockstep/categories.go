package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lockstep-fin/lockstep/internal/category"
	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Recommend and relate taxonomy categories",
	}

	cmd.AddCommand(recommendCategoryCmd())
	cmd.AddCommand(relateCategoryCmd())
	cmd.AddCommand(refreshEmbeddingsCmd())

	return cmd
}

func recommendCategoryCmd() *cobra.Command {
	var topN int
	var best bool

	cmd := &cobra.Command{
		Use:   "recommend <text>",
		Short: "Recommend categories for free text",
		Long: `Embed the given text and rank the tenant's categories by semantic
similarity. With --best, only the single strongest match above the stricter
cutoff is printed.`,
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

			provider, err := initEmbeddingProvider()
			if err != nil {
				return err
			}

			recommender := category.NewRecommender(store, provider)

			if best {
				match, err := recommender.BestMatch(ctx, tenant, args[0])
				if err != nil {
					return err
				}
				if match == nil {
					fmt.Println(infoStyle.Render("No category clears the best-match cutoff."))
					return nil
				}
				fmt.Println(successStyle.Render(fmt.Sprintf("%s (%.3f)", match.Name, match.Similarity)))
				return nil
			}

			matches, err := recommender.Recommend(ctx, tenant, args[0], topN, category.MinListSimilarity)
			if err != nil {
				return err
			}
			printCategoryMatches(matches)
			return nil
		},
	}

	cmd.Flags().IntVar(&topN, "top", 5, "maximum recommendations to return")
	cmd.Flags().BoolVar(&best, "best", false, "return only the single best match")

	return cmd
}

func relateCategoryCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "relate <category-id>",
		Short: "Find categories similar to an existing one",
		Args:  cobra.ExactArgs(1),
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

			provider, err := initEmbeddingProvider()
			if err != nil {
				return err
			}

			recommender := category.NewRecommender(store, provider)
			matches, err := recommender.Relate(ctx, tenant, args[0], topN)
			if err != nil {
				return err
			}
			printCategoryMatches(matches)
			return nil
		},
	}

	cmd.Flags().IntVar(&topN, "top", 5, "maximum related categories to return")

	return cmd
}

func refreshEmbeddingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-embeddings",
		Short: "Rebuild category embeddings from the catalog",
		Long: `Regenerate the embedding of every active category from its name,
description, and slug keyword expansion. Provider calls are retried with
backoff; the engine itself never retries.`,
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

			provider, err := initEmbeddingProvider()
			if err != nil {
				return err
			}

			recommender := category.NewRecommender(store, provider)

			var count int
			err = common.WithRetry(ctx, func() error {
				var refreshErr error
				count, refreshErr = recommender.RefreshEmbeddings(ctx, tenant)
				return refreshErr
			}, embedRetryOptions())
			if err != nil {
				return err
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("Refreshed embeddings for %d categories", count)))
			return nil
		},
	}
}

func printCategoryMatches(matches []model.CategoryMatch) {
	if len(matches) == 0 {
		fmt.Println(infoStyle.Render("No similar categories found."))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\n",
		headerStyle.Render("Category"),
		headerStyle.Render("ID"),
		headerStyle.Render("Similarity"))
	fmt.Fprintf(w, "%s\t%s\t%s\n",
		strings.Repeat("-", 20), strings.Repeat("-", 12), strings.Repeat("-", 10))

	for _, match := range matches {
		fmt.Fprintf(w, "%s\t%s\t%.3f\n", match.Name, match.CategoryID, match.Similarity)
	}
}
