// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaply/gaply-worker/internal/vecindex"
	"github.com/gaply/gaply-worker/pkg/types"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve the chunks most similar to a query",
	Long: `Retrieve embeds the query and returns the closest stored chunks by
cosine distance, with near-duplicates suppressed. Each result carries
its source location (paper, page, paragraph, sentence).`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().Int("k", 10, "maximum number of results")
	retrieveCmd.Flags().String("paper", "", "restrict results to one paper id")
	retrieveCmd.Flags().String("section", "", "restrict results to a section: abstract or body")
	retrieveCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer w.close()

	k, _ := cmd.Flags().GetInt("k")
	paperID, _ := cmd.Flags().GetString("paper")
	section, _ := cmd.Flags().GetString("section")

	filter := vecindex.Filter{PaperID: paperID, Section: types.Section(section)}
	results, err := w.retrieval.Retrieve(cmd.Context(), args[0], k, filter)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("%-4s  %-8s  %-24s  %-6s  %s\n", "Rank", "Dist", "Chunk", "Page", "Text")
	fmt.Println(strings.Repeat("-", 100))
	for i, r := range results {
		text := r.Text
		if len(text) > 56 {
			text = text[:53] + "..."
		}
		fmt.Printf("%-4d  %-8.4f  %-24s  %-6d  %s\n", i+1, r.Distance, r.ChunkID, r.Page, text)
	}
	return nil
}
