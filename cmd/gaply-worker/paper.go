// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Inspect and manage ingested papers",
}

var paperListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested papers",
	RunE:  runPaperList,
}

var paperStatusCmd = &cobra.Command{
	Use:   "status [paper-id]",
	Short: "Show a paper's ingestion status",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperStatus,
}

var paperExportCmd = &cobra.Command{
	Use:   "export [paper-id]",
	Short: "Export a paper's chunks as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperExport,
}

var paperDeleteCmd = &cobra.Command{
	Use:   "delete [paper-id]",
	Short: "Delete a paper, its chunks, and its vectors",
	Long: `Delete removes a paper's vectors from the index first, then its chunks
and metadata. If the vectors cannot be removed nothing is deleted and
the command can be retried.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperDelete,
}

func init() {
	paperCmd.AddCommand(paperListCmd, paperStatusCmd, paperExportCmd, paperDeleteCmd)
	rootCmd.AddCommand(paperCmd)
}

func runPaperList(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer w.close()

	papers, err := w.store.ListPapers(cmd.Context())
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		fmt.Println("No papers ingested.")
		return nil
	}

	fmt.Printf("%-24s  %-8s  %-40s  %s\n", "ID", "Chunks", "Title", "DOI")
	fmt.Println(strings.Repeat("-", 100))
	for _, p := range papers {
		count, err := w.store.CountChunks(cmd.Context(), p.ID)
		if err != nil {
			return err
		}
		title := p.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Printf("%-24s  %-8d  %-40s  %s\n", p.ID, count, title, p.DOI)
	}
	return nil
}

func runPaperStatus(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer w.close()

	status, err := w.store.IngestStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}

func runPaperExport(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer w.close()

	return w.store.ExportYAML(cmd.Context(), args[0], os.Stdout)
}

func runPaperDelete(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer w.close()

	if err := w.store.DeletePaper(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}
