package main

import (
	"errors"
	"fmt"

	"github.com/dvloznov/finsense/internal/api/dto"
	"github.com/dvloznov/finsense/internal/app"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/spf13/cobra"
)

var listLimit int

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum number of transactions (0 for all)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored transactions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <transaction-id>",
	Short: "Delete a stored transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	txs, err := a.Store.GetTransactions(ctx, userID, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	return printJSON(cmd.OutOrStdout(), dto.NewStoredTransactions(txs))
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.DeleteTransaction(ctx, userID, args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("transaction %s not found", args[0])
		}
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %s\n", args[0])
	return nil
}
