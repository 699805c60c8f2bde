// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-ranker CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-ranker/internal/embedding"
	"github.com/pdiddy/paper-ranker/internal/observability"
	"github.com/pdiddy/paper-ranker/internal/secrets"
	"github.com/pdiddy/paper-ranker/internal/store"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// logger is configured in PersistentPreRunE from the logging section.
	logger = zerolog.Nop()

	// loadedSecrets holds API keys loaded from the secrets directory at startup.
	loadedSecrets map[string]string
)

// rootCmd is the base command for the paper-ranker CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-ranker",
	Short: "Rank research papers against a statement of interest",
	Long: `paper-ranker scores a collection of research papers against a free-text
research interest. Each paper gets a semantic similarity score from an
embedding model and a rule score from a weighted keyword table; both are
normalized over the batch and combined into a final score.

Papers come from JSON, JSON Lines, or YAML files, or from collections stored
in the local SQLite database with "import".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger = observability.NewLogger(cfg.Logging)

		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir, logger)
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
			logger.Debug().Strs("keys", keys).Str("dir", dir).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-ranker.yaml or ~/.config/paper-ranker/config.yaml)")
	pf.String("db", store.DefaultPath, "SQLite database path")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of API key files")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")

	viper.BindPFlag("store.path", pf.Lookup("db"))
	viper.BindPFlag("secrets_dir", pf.Lookup("secrets-dir"))
	viper.BindPFlag("logging.level", pf.Lookup("log-level"))
	viper.BindPFlag("logging.format", pf.Lookup("log-format"))
}

func setDefaults(v *viper.Viper) {
	rank := types.DefaultRankConfig()
	v.SetDefault("rank.interest", rank.Interest)
	v.SetDefault("rank.semantic_weight", rank.SemanticWeight)
	v.SetDefault("rank.top_k", rank.TopK)
	v.SetDefault("rank.keywords_file", "")

	v.SetDefault("embedder.provider", string(types.ProviderTEI))
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.model", "")
	v.SetDefault("embedder.batch_size", embedding.DefaultBatchSize)
	v.SetDefault("embedder.timeout", "60s")
	v.SetDefault("embedder.cache", true)
	v.SetDefault("embedder.image", embedding.DefaultTEIImage)

	v.SetDefault("store.path", store.DefaultPath)

	log := observability.DefaultLoggingConfig()
	v.SetDefault("logging.level", log.Level)
	v.SetDefault("logging.format", log.Format)
	v.SetDefault("logging.output", log.Output)

	v.SetDefault("metrics.file", "")
	v.SetDefault("secrets_dir", secrets.DefaultDir)
}

func initConfig() {
	setDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-ranker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-ranker"))
		}
	}

	viper.SetEnvPrefix("PAPER_RANKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged viper settings and fills API keys from the
// secrets directory when they are not set.
func loadConfig() (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if loadedSecrets != nil {
		secrets.ApplyAPIKey(&cfg.Embedder, loadedSecrets)
	}
	return cfg, nil
}

func openStore(cfg types.AppConfig) (*store.Store, error) {
	return store.Open(cfg.Store.Path)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
