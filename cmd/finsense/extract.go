package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dvloznov/finsense/internal/api/dto"
	"github.com/dvloznov/finsense/internal/app"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/gcs"
	"github.com/spf13/cobra"
)

var (
	extractSource  string
	extractSender  string
	extractSubject string
	extractSave    bool
)

func init() {
	extractCmd.Flags().StringVar(&extractSource, "source", "sms", "message source: sms, email, notification or manual")
	extractCmd.Flags().StringVar(&extractSender, "sender", "", "sender id or address, used to pick provider rules")
	extractCmd.Flags().StringVar(&extractSubject, "subject", "", "email subject")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "persist the transaction when one is extracted")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(ingestCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract a transaction from one message",
	Long: `Run one message through the extraction pipeline and print the outcome.

The deterministic rules are tried first; the configured model is only consulted
when no rule matches.

Examples:
  # Extract from an SMS
  finsense extract --sender HDFCBK "Rs.850.00 debited from a/c **1234 on 19-06-25 to VPA swiggy@axis"

  # Read the message from stdin and store the result
  pbpaste | finsense extract --source email --save -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|gs://bucket/object>",
	Short: "Extract and store transactions from a JSONL file of messages",
	Long: `Read newline-delimited JSON messages from a local file or a GCS object,
extract each one and store every transaction found.

Each line is an object with "text" and optional "source", "sender", "subject",
"received_at" and "metadata" fields.

Examples:
  finsense ingest messages.jsonl
  finsense ingest gs://my-bucket/exports/2025-06.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	text, err := messageText(cmd, args)
	if err != nil {
		return err
	}
	source, err := parseSourceFlag(extractSource)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.WithModel())
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now()
	msg := domain.RawMessage{
		Text:       text,
		Source:     source,
		Sender:     extractSender,
		Subject:    extractSubject,
		ReceivedAt: &now,
	}

	res := a.Orchestrator().Extract(ctx, msg)
	view := dto.NewExtractionResult(res)

	if extractSave && res.OK() {
		id, err := a.Store.SaveTransaction(ctx, userID, *res.Candidate)
		if err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		view.SavedID = id
	}

	return printJSON(cmd.OutOrStdout(), view)
}

func parseSourceFlag(s string) (domain.Source, error) {
	src, err := domain.ParseSource(s)
	if err != nil {
		return "", fmt.Errorf("invalid --source: %w", err)
	}
	return src, nil
}

func messageText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	content, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", fmt.Errorf("no message text given")
	}
	return text, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	msgs, err := gcs.LoadMessages(ctx, gcs.NewClient(), args[0])
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.WithModel())
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().Str("uri", args[0]).Int("messages", len(msgs)).Str("user_id", userID).Msg("Starting ingestion")

	res, err := a.Orchestrator().ProcessBatch(ctx, a.Store, userID, msgs)
	if err != nil {
		return fmt.Errorf("ingestion stopped after %d messages: %w", res.Processed, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Processed %d messages: %d saved, %d rejected, %d failed\n",
		res.Processed, res.Saved, res.Rejected, res.Failed)
	return printJSON(cmd.OutOrStdout(), res.IDs)
}
