package main

import (
	"fmt"

	"github.com/dvloznov/finsense/internal/api/dto"
	"github.com/dvloznov/finsense/internal/app"
	"github.com/spf13/cobra"
)

var recommendContext string

func init() {
	recommendCmd.Flags().StringVar(&recommendContext, "context", "", "extra context for the advice, e.g. a goal or a recent change")

	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(recommendCmd)
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate spending insights from stored transactions",
	Long: `Summarize recent transactions, ask the configured model for insights and
store the validated ones. Prints an empty list when there are no transactions.`,
	Args: cobra.NoArgs,
	RunE: runInsights,
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate financial recommendations",
	Long: `Ask the configured model for recommendations based on the user's profile
and recent transactions, and store the validated ones.

Examples:
  finsense recommend
  finsense recommend --context "saving for a car in 12 months"`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func runInsights(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := app.New(ctx, cfg, app.WithModel())
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.Advisor()
	if err != nil {
		return err
	}

	res, err := svc.AnalyzeSpending(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to analyze spending: %w", err)
	}
	log.Info().Str("outcome", string(res.Outcome)).Int("items", len(res.Items)).Msg("Insights generated")

	return printJSON(cmd.OutOrStdout(), dto.NewInsights(res.Items))
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := app.New(ctx, cfg, app.WithModel())
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.Advisor()
	if err != nil {
		return err
	}

	res, err := svc.Recommend(ctx, userID, recommendContext)
	if err != nil {
		return fmt.Errorf("failed to generate recommendations: %w", err)
	}
	log.Info().Str("outcome", string(res.Outcome)).Int("items", len(res.Items)).Msg("Recommendations generated")

	return printJSON(cmd.OutOrStdout(), dto.NewRecommendations(res.Items))
}
