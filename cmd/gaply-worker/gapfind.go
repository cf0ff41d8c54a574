// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var gapfindCmd = &cobra.Command{
	Use:   "gapfind [paper-id...]",
	Short: "Probe ingested papers for uncovered aspects of a topic",
	Long: `Gapfind embeds probe queries for standard aspects of the topic
(evaluation, limitations, datasets, and so on) and reports the aspects
none of the given papers cover, with the nearest evidence quoted for
each.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGapfind,
}

func init() {
	gapfindCmd.Flags().String("topic", "", "research topic to probe (required)")
	gapfindCmd.Flags().Bool("json", false, "output gaps as JSON")
	gapfindCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(gapfindCmd)
}

func runGapfind(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer w.close()

	topic, _ := cmd.Flags().GetString("topic")
	gaps, err := w.gapfind.FindGaps(cmd.Context(), args, topic)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(gaps)
	}

	if len(gaps) == 0 {
		fmt.Println("No gaps found: every probed aspect has coverage.")
		return nil
	}
	for _, gap := range gaps {
		fmt.Printf("%s (score %.2f)\n", gap.ID, gap.Score)
		fmt.Printf("  %s\n", gap.Statement)
		fmt.Printf("  %s\n", gap.Rationale)
	}
	return nil
}
