// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaply/gaply-worker/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [paper-id]",
	Short: "Build an extractive, evidence-grounded summary of a paper",
	Long: `Summarize selects the most representative sentences of an ingested
paper. Every summary item quotes the paper verbatim and lists the exact
source location, so nothing in the output is generated text.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().String("scope", "full", "summary scope: full or abstract")
	summarizeCmd.Flags().String("granularity", "sentence", "item shape: sentence, paragraph, or bullets")
	summarizeCmd.Flags().Bool("json", false, "output items as JSON")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer w.close()

	scope, _ := cmd.Flags().GetString("scope")
	granularity, _ := cmd.Flags().GetString("granularity")

	items, err := w.summary.Summarize(cmd.Context(), args[0],
		summary.Scope(scope), summary.Granularity(granularity))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, item := range items {
		fmt.Printf("- %s\n", item.Text)
		for _, p := range item.Provenance {
			fmt.Printf("    [%s, page %d]\n", p.ChunkID, p.Page)
		}
	}
	return nil
}
