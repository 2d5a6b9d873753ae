package main

import (
	"fmt"
	"path/filepath"

	"github.com/dvloznov/finsense/internal/gcs"
	"github.com/spf13/cobra"
)

var (
	uploadBucket string
	uploadObject string
)

func init() {
	uploadCmd.Flags().StringVar(&uploadBucket, "bucket", "", "GCS bucket name (required)")
	uploadCmd.Flags().StringVar(&uploadObject, "object", "", "object name (defaults to the file name)")
	_ = uploadCmd.MarkFlagRequired("bucket")

	rootCmd.AddCommand(uploadCmd)
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a JSONL message export to GCS for batch ingestion",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	object := uploadObject
	if object == "" {
		object = filepath.Base(args[0])
	}

	log.Info().Str("bucket", uploadBucket).Str("object", object).Str("file", args[0]).Msg("Uploading file to GCS")

	if err := gcs.NewClient().UploadFile(ctx, uploadBucket, object, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "gs://%s/%s\n", uploadBucket, object)
	return nil
}
