// Package notionsync exports stored transactions to a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finsense/internal/logger"
	"github.com/jomei/notionapi"
)

// pageSize is the Notion API maximum for database queries.
const pageSize = 100

// SyncResult counts what a sync did, or would do in a dry run.
type SyncResult struct {
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// SyncTransactions mirrors the user's stored transactions into a Notion database
// keyed by the Transaction ID property. Pages owned by userID whose transactions are
// no longer stored are archived; other users' pages and rows without a Transaction
// ID are left alone. Per-page API failures are logged and counted; only
// listing failures abort the sync.
func SyncTransactions(ctx context.Context, src TransactionSource, svc NotionService, databaseID, userID string, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var res SyncResult

	txs, err := src.GetTransactions(ctx, userID, 0)
	if err != nil {
		return res, fmt.Errorf("SyncTransactions: get transactions: %w", err)
	}

	pages, err := queryAllPages(ctx, svc, databaseID)
	if err != nil {
		return res, fmt.Errorf("SyncTransactions: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Int("transaction_count", len(txs)).
		Int("notion_page_count", len(pages)).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	stored := make(map[string]bool, len(txs))
	for _, tx := range txs {
		stored[tx.ID] = true
	}

	pageByTx := make(map[string]string, len(pages))
	for _, page := range pages {
		txID := transactionIDOf(page)
		owner := userIDOf(page)

		switch {
		case txID == "":
			// Rows without a Transaction ID were not written by a sync.
			continue
		case stored[txID] && (owner == "" || owner == userID):
			pageByTx[txID] = string(page.ID)
			continue
		case owner != userID:
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := svc.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, tx := range txs {
		pageID, exists := pageByTx[tx.ID]

		if dryRun {
			if exists {
				res.Updated++
			} else {
				res.Created++
			}
			continue
		}

		if tx.UserID == "" {
			tx.UserID = userID
		}
		props := TransactionToProperties(tx)
		if exists {
			if _, err := svc.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := svc.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Bool("dry_run", dryRun).
		Msg("Transaction sync completed")

	return res, nil
}

// queryAllPages follows pagination until the database is exhausted.
func queryAllPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
