// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-ranker/internal/corpus"
	"github.com/pdiddy/paper-ranker/internal/embedding"
	"github.com/pdiddy/paper-ranker/internal/keywords"
	"github.com/pdiddy/paper-ranker/internal/observability"
	"github.com/pdiddy/paper-ranker/internal/rank"
	"github.com/pdiddy/paper-ranker/internal/report"
	"github.com/pdiddy/paper-ranker/internal/store"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank [papers-file]",
	Short: "Score and rank papers against a research interest",
	Long: `Rank loads papers from a file (JSON, JSON Lines, or YAML) or from a stored
collection, scores every abstract against the research interest with the
configured embedding model, scores title and abstract with the keyword
table, and prints the top-k papers by combined score.

The ranked list is also exported to --output (default
filtered_papers_<n>.json) and recorded in the run history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRank,
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	collection, _ := cmd.Flags().GetString("collection")
	input, _ := cmd.Flags().GetString("input")
	if input == "" && len(args) > 0 {
		input = args[0]
	}
	if (input == "") == (collection == "") {
		return errors.New("provide exactly one of a papers file or --collection")
	}

	embCfg := embedding.WithDefaults(cfg.Embedder)
	noHistory, _ := cmd.Flags().GetBool("no-history")

	var st *store.Store
	if collection != "" || embCfg.Cache || !noHistory {
		st, err = openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	papers, source, err := loadPapers(ctx, st, input, collection)
	if err != nil {
		return err
	}

	table, err := loadKeywordTable(cfg.Rank.KeywordsFile)
	if err != nil {
		return err
	}

	provider, err := embedding.New(ctx, embCfg)
	if err != nil {
		return &rank.StageError{Stage: rank.StageModelLoad, Err: fmt.Errorf("%w: %w", rank.ErrModelLoad, err)}
	}
	if embCfg.Cache {
		provider = embedding.NewCachedProvider(provider, st, cacheModelKey(embCfg))
	}

	metrics := observability.NewMetrics()
	if cfg.Metrics.File != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
				logger.Warn().Err(err).Msg("metrics not written")
			}
		}()
	}

	ranker, err := rank.New(provider, table,
		rank.WithLogger(logger),
		rank.WithMetrics(metrics),
		rank.WithModelName(embCfg.Model),
	)
	if err != nil {
		return err
	}

	res, err := ranker.Rank(ctx, cfg.Rank.Interest, papers, cfg.Rank)
	if err != nil {
		return err
	}

	if err := printRanked(cmd, cmd.OutOrStdout(), ranker, res.Papers); err != nil {
		return err
	}

	if noExport, _ := cmd.Flags().GetBool("no-export"); !noExport {
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = report.DefaultOutputName(len(res.Papers))
		}
		if err := report.ExportFile(out, res.Papers); err != nil {
			return err
		}
		logger.Info().Str("file", out).Msg("results exported")
	}

	if !noHistory {
		run := types.Run{
			ID:             res.RunID,
			CreatedAt:      time.Now(),
			Interest:       cfg.Rank.Interest,
			Source:         source,
			EmbeddingModel: embCfg.Model,
			SemanticWeight: cfg.Rank.SemanticWeight,
			TopK:           cfg.Rank.TopK,
			Total:          res.Total,
			Results:        res.Papers,
		}
		if err := st.SaveRun(ctx, run); err != nil {
			logger.Warn().Err(err).Msg("run not saved to history")
		}
	}

	logger.Info().
		Str("run_id", res.RunID).
		Msgf("recommended %d of %d papers", len(res.Papers), res.Total)
	return nil
}

// loadPapers reads papers from a file or a stored collection and returns
// them with a source label for the run history.
// Failures are reported as validate stage errors.
func loadPapers(ctx context.Context, st *store.Store, input, collection string) ([]types.Paper, string, error) {
	if collection != "" {
		papers, err := st.CollectionPapers(ctx, collection)
		if err != nil {
			return nil, "", &rank.StageError{Stage: rank.StageValidate, Err: err}
		}
		return papers, "collection:" + collection, nil
	}

	c, err := corpus.LoadFile(input)
	if err != nil {
		return nil, "", &rank.StageError{Stage: rank.StageValidate, Err: err}
	}
	warnDegraded(c.Report, input)
	logger.Info().Int("papers", len(c.Papers)).Str("file", input).Msg("papers loaded")
	return c.Papers, input, nil
}

// loadKeywordTable loads the table at path, or the built-in table when path
// is empty. A bad table fails the validate stage.
func loadKeywordTable(path string) (keywords.Table, error) {
	table, err := keywords.LoadOrDefault(path)
	if err != nil {
		return keywords.Table{}, &rank.StageError{Stage: rank.StageValidate, Err: err}
	}
	return table, nil
}

func warnDegraded(r corpus.Report, source string) {
	if !r.Degraded() {
		return
	}
	logger.Warn().
		Str("source", source).
		Int("missing_title", r.MissingTitle).
		Int("missing_abstract", r.MissingAbstract).
		Msg("some records lack a title or abstract; they will score low")
}

func cacheModelKey(cfg types.EmbedderConfig) string {
	return string(cfg.Provider) + ":" + cfg.Model
}

func printRanked(cmd *cobra.Command, w io.Writer, ranker *rank.Ranker, papers []types.ScoredPaper) error {
	format := report.FormatText
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		format = report.FormatJSON
	}
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = report.Format(f)
	}

	var opts report.TextOptions
	if explain, _ := cmd.Flags().GetBool("explain"); explain {
		opts.Explain = ranker.Explain
	}
	if hide, _ := cmd.Flags().GetBool("hide-scores"); hide {
		opts.HideScores = true
	}
	return report.Write(w, format, papers, opts)
}

func init() {
	f := rankCmd.Flags()
	f.StringP("input", "i", "", "papers file (JSON, JSON Lines, or YAML)")
	f.StringP("collection", "c", "", "rank a stored collection instead of a file")
	f.String("interest", types.DefaultInterest, "research interest statement")
	f.Float64P("semantic-weight", "w", types.DefaultSemanticWeight, "weight of the similarity score in [0,1]; rules get the rest")
	f.IntP("top-k", "k", types.DefaultTopK, "number of papers to return")
	f.String("keywords", "", "keyword table YAML (default: built-in table)")
	f.String("provider", string(types.ProviderTEI), "embedding provider: tei, openai, or azure")
	f.String("model", "", "embedding model or Azure deployment (default depends on provider)")
	f.String("base-url", "", "embedding API base URL")
	f.Bool("cache", true, "cache embeddings in the database")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	f.Bool("json", false, "print results as JSON")
	f.String("format", "", "output format: text, json, or yaml")
	f.Bool("explain", false, "list the keywords behind each rule score")
	f.Bool("hide-scores", false, "omit scores from text output")
	f.StringP("output", "o", "", "export file (default filtered_papers_<n>.json)")
	f.Bool("no-export", false, "do not write the export file")
	f.Bool("no-history", false, "do not record the run in the database")

	viper.BindPFlag("rank.interest", f.Lookup("interest"))
	viper.BindPFlag("rank.semantic_weight", f.Lookup("semantic-weight"))
	viper.BindPFlag("rank.top_k", f.Lookup("top-k"))
	viper.BindPFlag("rank.keywords_file", f.Lookup("keywords"))
	viper.BindPFlag("embedder.provider", f.Lookup("provider"))
	viper.BindPFlag("embedder.model", f.Lookup("model"))
	viper.BindPFlag("embedder.base_url", f.Lookup("base-url"))
	viper.BindPFlag("embedder.cache", f.Lookup("cache"))
	viper.BindPFlag("metrics.file", f.Lookup("metrics-file"))

	rootCmd.AddCommand(rankCmd)
}
