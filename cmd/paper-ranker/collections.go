// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-ranker/internal/corpus"
	"github.com/pdiddy/paper-ranker/internal/report"
	"github.com/pdiddy/paper-ranker/internal/store"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <papers-file>",
	Short: "Store a papers file as a named collection",
	Long: `Import reads a papers file (JSON, JSON Lines, or YAML) and stores it in the
database as a collection. Importing under an existing name replaces that
collection. The name defaults to the file name without its extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := args[0]

	c, err := corpus.LoadFile(path)
	if err != nil {
		return err
	}
	warnDegraded(c.Report, path)

	name, _ := cmd.Flags().GetString("collection")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	desc := c.Description
	if c.Conference != "" {
		desc = strings.TrimSpace(c.Conference + " " + desc)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	col := store.Collection{Name: name, Description: desc, Source: path}
	if err := st.ImportCollection(cmd.Context(), col, c.Papers); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d papers into collection %q\n", len(c.Papers), name)
	return nil
}

// --- collections ---

var collectionsCmd = &cobra.Command{
	Use:     "collections",
	Aliases: []string{"ls"},
	Short:   "List stored collections",
	Args:    cobra.NoArgs,
	RunE:    runCollectionsList,
}

func runCollectionsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cols, err := st.Collections(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(cols) == 0 {
		fmt.Fprintln(w, "no collections; add one with \"paper-ranker import\"")
		return nil
	}
	fmt.Fprintf(w, "%-24s %7s  %-20s %s\n", "NAME", "PAPERS", "IMPORTED", "DESCRIPTION")
	for _, c := range cols {
		fmt.Fprintf(w, "%-24s %7d  %-20s %s\n",
			c.Name, c.Papers, c.ImportedAt.Local().Format(time.DateTime), report.Preview(c.Description, 60))
	}
	return nil
}

var collectionShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the papers of a collection, optionally filtered by a search term",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionShow,
}

func runCollectionShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	query, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")

	papers, err := st.SearchPapers(cmd.Context(), args[0], query, limit)
	if err != nil {
		return err
	}

	format := report.FormatText
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		format = report.FormatJSON
	}
	return report.Write(cmd.OutOrStdout(), format, types.NewScoredPapers(papers), report.TextOptions{HideScores: true})
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a collection and its papers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteCollection(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted collection %q\n", args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().StringP("collection", "c", "", "collection name (default: file name)")

	collectionShowCmd.Flags().String("search", "", "only papers whose title or abstract contains this text")
	collectionShowCmd.Flags().Int("limit", 0, "maximum number of papers to print (0 = all)")
	collectionShowCmd.Flags().Bool("json", false, "print papers as JSON")

	collectionsCmd.AddCommand(collectionShowCmd, collectionDeleteCmd)
	rootCmd.AddCommand(importCmd, collectionsCmd)
}
