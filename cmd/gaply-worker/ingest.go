// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaply/gaply-worker/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [identifier]",
	Short: "Ingest a paper into the chunk store and vector index",
	Long: `Ingest fetches a paper by DOI, arXiv id, URL, or local PDF path, runs
it through GROBID, chunks it into sentences, embeds the chunks, and
stores everything. Re-ingesting the same paper overwrites its chunks in
place.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("paper-id", "", "paper id (default: derived from the identifier)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer w.close()

	paperID, _ := cmd.Flags().GetString("paper-id")
	status, err := w.manager.Ingest(cmd.Context(), args[0], paperID)
	if err != nil {
		return err
	}
	if status.State != types.IngestCompleted {
		return fmt.Errorf("ingestion %s: %s", status.State, status.Error)
	}
	fmt.Printf("ingested %s: %d chunks\n", status.PaperID, status.ChunkCount)
	return nil
}
