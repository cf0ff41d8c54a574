// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the gaply-worker CLI. The worker
// ingests research papers, serves evidence-grounded retrieval and
// summarization over HTTP, and exposes the same pipeline as
// subcommands for local use.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gaply/gaply-worker/internal/secrets"
	"github.com/gaply/gaply-worker/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the secret value for
// key if one was loaded.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the gaply-worker CLI.
var rootCmd = &cobra.Command{
	Use:   "gaply-worker",
	Short: "Evidence-grounded research paper retrieval and summarization",
	Long: `gaply-worker ingests research papers into a sentence-level chunk store
with embeddings, then answers retrieval, summarization, and gap-finding
requests where every statement traces back to a quoted source location.

Run "gaply-worker serve" to expose the pipeline over HTTP, or use the
ingest, retrieve, summarize, paper, and gapfind subcommands directly.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gaply-worker.yaml or ~/.config/gaply-worker/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for worker data (overrides config)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gaply-worker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "gaply-worker"))
		}
	}

	viper.SetEnvPrefix("GAPLY_WORKER")
	viper.AutomaticEnv()

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("extractor.base_url", "http://localhost:8070")
	viper.SetDefault("embedding.base_url", "http://localhost:8090/v1")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	viper.SetDefault("embedding.dimension", 384)
	viper.SetDefault("embedding.batch_size", 32)
	viper.SetDefault("vector_index.type", "qdrant")
	viper.SetDefault("vector_index.url", "http://localhost:6333")
	viper.SetDefault("vector_index.collection", "gaply_papers")
	viper.SetDefault("store.data_dir", "data")
	viper.SetDefault("retrieval.max_results", 50)
	viper.SetDefault("retrieval.dedup_threshold", 0.02)
	viper.SetDefault("summary.max_items", 20)
	viper.SetDefault("summary.max_bullets", 10)
	viper.SetDefault("summary.max_chunks", 200)
	viper.SetDefault("gap.coverage_threshold", 0.35)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// workerConfig assembles component configuration from viper and loaded
// secrets.
func workerConfig() types.WorkerConfig {
	userAgent := "gaply-worker/" + version

	httpCfg := func(prefix string) types.HTTPConfig {
		return types.HTTPConfig{
			Timeout:    viper.GetDuration(prefix + ".timeout"),
			MaxRetries: viper.GetInt(prefix + ".max_retries"),
			UserAgent:  userAgent,
		}
	}

	dataDir := viper.GetString("store.data_dir")
	if flagDir, _ := rootCmd.PersistentFlags().GetString("data-dir"); flagDir != "" {
		dataDir = flagDir
	}

	return types.WorkerConfig{
		Server: types.ServerConfig{
			Addr: viper.GetString("server.addr"),
		},
		Extractor: types.ExtractorConfig{
			HTTPConfig: httpCfg("extractor"),
			BaseURL:    viper.GetString("extractor.base_url"),
		},
		Embedding: types.EmbeddingConfig{
			HTTPConfig: httpCfg("embedding"),
			BaseURL:    viper.GetString("embedding.base_url"),
			Model:      viper.GetString("embedding.model"),
			APIKey:     secretDefault("embedding-api-key", viper.GetString("embedding.api_key")),
			Dimension:  viper.GetInt("embedding.dimension"),
			BatchSize:  viper.GetInt("embedding.batch_size"),
		},
		VectorIndex: types.VectorIndexConfig{
			HTTPConfig: httpCfg("vector_index"),
			Type:       viper.GetString("vector_index.type"),
			URL:        viper.GetString("vector_index.url"),
			APIKey:     secretDefault("qdrant-api-key", viper.GetString("vector_index.api_key")),
			Collection: viper.GetString("vector_index.collection"),
		},
		Store: types.StoreConfig{
			DataDir: dataDir,
		},
		Retrieval: types.RetrievalConfig{
			MaxResults:     viper.GetInt("retrieval.max_results"),
			DedupThreshold: viper.GetFloat64("retrieval.dedup_threshold"),
		},
		Summary: types.SummaryConfig{
			MaxItems:   viper.GetInt("summary.max_items"),
			MaxBullets: viper.GetInt("summary.max_bullets"),
			MaxChunks:  viper.GetInt("summary.max_chunks"),
		},
		Gap: types.GapConfig{
			CoverageThreshold: viper.GetFloat64("gap.coverage_threshold"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
