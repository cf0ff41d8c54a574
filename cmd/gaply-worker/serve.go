// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaply/gaply-worker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the worker API over HTTP",
	Long: `Serve starts the worker HTTP API. The embedding model is warmed up in
the background; retrieval and summarization requests arriving before
warmup completes are rejected with 503 rather than queued.

Routes are exposed under /worker, with liveness at /health.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	w, err := buildWorker(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer w.close()

	// Warm up off the request path; /health reports readiness.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := w.provider.Warmup(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "embedding warmup failed: %v\n", err)
			return
		}
		fmt.Fprintln(os.Stderr, "embedding model ready")
	}()

	srv := server.New(server.Deps{
		Manager:   w.manager,
		Retrieval: w.retrieval,
		Summary:   w.summary,
		Gapfind:   w.gapfind,
		Store:     w.store,
		Index:     w.index,
		Provider:  w.provider,
		Extractor: w.extractor,
	})

	addr := w.cfg.Server.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}
	fmt.Fprintf(os.Stderr, "gaply-worker listening on %s\n", addr)
	return srv.Run(addr)
}
