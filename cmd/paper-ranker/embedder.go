// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-ranker/internal/container"
	"github.com/pdiddy/paper-ranker/internal/embedding"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

var embedderCmd = &cobra.Command{
	Use:   "embedder",
	Short: "Manage the local embedding server and the embedding cache",
	Long: `Embedder starts and stops a local text-embeddings-inference (TEI) server in
docker or podman, reports whether the configured provider is ready, and
inspects or clears the embedding cache in the database.`,
}

var embedderStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the TEI server container",
	Long: `Start pulls the TEI image if needed and runs it detached, serving the
configured model on the port of embedder.base_url. It then waits until the
server reports healthy or --wait elapses.`,
	Args: cobra.NoArgs,
	RunE: runEmbedderStart,
}

func runEmbedderStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	emb := embedding.WithDefaults(cfg.Embedder)
	if emb.Provider != types.ProviderTEI {
		return fmt.Errorf("embedder start serves the tei provider; configured provider is %q", emb.Provider)
	}

	port, err := hostPort(emb.BaseURL)
	if err != nil {
		return err
	}

	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	out := cmd.ErrOrStderr()
	if err := container.EnsureImage(rt, emb.Image, out); err != nil {
		return fmt.Errorf("pulling %s: %w", emb.Image, err)
	}

	cacheDir, _ := cmd.Flags().GetString("model-cache")
	if cacheDir != "" {
		if cacheDir, err = filepath.Abs(cacheDir); err != nil {
			return err
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return fmt.Errorf("creating model cache: %w", err)
		}
	}

	id, err := rt.Start(container.TEISpec(emb.Image, emb.Model, port, cacheDir))
	if err != nil {
		return err
	}
	logger.Info().
		Str("runtime", rt.Name()).
		Str("container", id).
		Str("model", emb.Model).
		Int("port", port).
		Msg("TEI server started")

	wait, _ := cmd.Flags().GetDuration("wait")
	if wait <= 0 {
		return nil
	}
	if err := waitHealthy(cmd.Context(), embedding.NewTEI(emb), wait); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "TEI server ready at %s\n", emb.BaseURL)
	return nil
}

// waitHealthy polls hc until it reports healthy or timeout elapses. Model
// downloads on first start can take minutes.
func waitHealthy(ctx context.Context, hc embedding.HealthChecker, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
	for {
		err := hc.Health(ctx)
		if err == nil {
			return nil
		}
		logger.Debug().Err(err).Msg("waiting for TEI server")
		select {
		case <-ctx.Done():
			return fmt.Errorf("TEI server not healthy after %s: %w", timeout, err)
		case <-tick.C:
		}
	}
}

// hostPort extracts the port of a base URL, defaulting by scheme.
func hostPort(baseURL string) (int, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return 0, fmt.Errorf("parsing embedder base URL: %w", err)
	}
	if p := u.Port(); p != "" {
		return strconv.Atoi(p)
	}
	if u.Scheme == "https" {
		return 443, nil
	}
	return 80, nil
}

var embedderStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the TEI server container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := container.DetectRuntime()
		if err != nil {
			return err
		}
		if err := rt.Stop(container.TEIContainerName); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stopped %s\n", container.TEIContainerName)
		return nil
	},
}

var embedderStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the configured embedding provider is ready",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		emb := embedding.WithDefaults(cfg.Embedder)
		p, err := embedding.New(cmd.Context(), emb)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Provider: %s\nModel:    %s\n", emb.Provider, emb.Model)
		if emb.BaseURL != "" {
			fmt.Fprintf(w, "Endpoint: %s\n", emb.BaseURL)
		}
		hc, ok := p.(embedding.HealthChecker)
		if !ok {
			fmt.Fprintln(w, "Status:   configured (no health endpoint)")
			return nil
		}
		if err := hc.Health(cmd.Context()); err != nil {
			fmt.Fprintln(w, "Status:   unavailable")
			return err
		}
		fmt.Fprintln(w, "Status:   ready")
		return nil
	},
}

var embedderCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show or clear cached embeddings",
	Long: `Cache prints the number of cached vectors per model. With --clear it
deletes the cached vectors of --model, or of every model when --model is
not given.`,
	Args: cobra.NoArgs,
	RunE: runEmbedderCache,
}

func runEmbedderCache(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	if clear, _ := cmd.Flags().GetBool("clear"); clear {
		model, _ := cmd.Flags().GetString("model")
		n, err := st.ClearEmbeddings(cmd.Context(), model)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "removed %d cached vectors\n", n)
		return nil
	}

	stats, err := st.EmbeddingStats(cmd.Context())
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(w, "embedding cache is empty")
		return nil
	}
	models := make([]string, 0, len(stats))
	for m := range stats {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		fmt.Fprintf(w, "%-60s %8d\n", m, stats[m])
	}
	return nil
}

func init() {
	embedderStartCmd.Flags().Duration("wait", 5*time.Minute, "wait this long for the server to become healthy (0 = do not wait)")
	embedderStartCmd.Flags().String("model-cache", "data/models", "host directory for downloaded model weights (empty = none)")

	embedderCacheCmd.Flags().Bool("clear", false, "delete cached vectors")
	embedderCacheCmd.Flags().String("model", "", "restrict --clear to this cache key (provider:model)")

	embedderCmd.AddCommand(embedderStartCmd, embedderStopCmd, embedderStatusCmd, embedderCacheCmd)
	rootCmd.AddCommand(embedderCmd)
}
