package main

import (
	"fmt"

	"github.com/dvloznov/finsense/internal/app"
	"github.com/dvloznov/finsense/internal/notionsync"
	"github.com/spf13/cobra"
)

var notionDryRun bool

func init() {
	syncNotionCmd.Flags().BoolVar(&notionDryRun, "dry-run", false, "report what would change without calling Notion")
	rootCmd.AddCommand(syncNotionCmd)
}

var syncNotionCmd = &cobra.Command{
	Use:   "sync-notion",
	Short: "Mirror stored transactions into a Notion database",
	Long: `Create, update and archive pages in the Notion database set by
notion.database_id so that it matches the stored transactions.

Requires notion.token (or FINSENSE_NOTION_TOKEN).`,
	Args: cobra.NoArgs,
	RunE: runSyncNotion,
}

func runSyncNotion(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	if cfg.Notion.Token == "" || cfg.Notion.DatabaseID == "" {
		return fmt.Errorf("notion.token and notion.database_id are required")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := notionsync.SyncTransactions(ctx, a.Store, notionsync.NewClient(cfg.Notion.Token), cfg.Notion.DatabaseID, userID, notionDryRun)
	if err != nil {
		return err
	}

	prefix := ""
	if notionDryRun {
		prefix = "[DRY RUN] "
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sCreated: %d, Updated: %d, Archived: %d, Failed: %d\n",
		prefix, res.Created, res.Updated, res.Archived, res.Failed)
	return nil
}
