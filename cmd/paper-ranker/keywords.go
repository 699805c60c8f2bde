// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-ranker/internal/keywords"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Print the active keyword table",
	Long: `Keywords prints the phrase weights the rule scorer uses: the table named
by --keywords (or rank.keywords_file), or the built-in table. Use --yaml to
dump a copy that can be edited and passed back with --keywords.`,
	Args: cobra.NoArgs,
	RunE: runKeywords,
}

func runKeywords(cmd *cobra.Command, args []string) error {
	path := viper.GetString("rank.keywords_file")
	if f, _ := cmd.Flags().GetString("keywords"); f != "" {
		path = f
	}
	table, err := keywords.LoadOrDefault(path)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]keywords.Entry{"keywords": table.Entries()}); err != nil {
			return err
		}
		return enc.Close()
	}

	source := path
	if source == "" {
		source = "built-in"
	}
	fmt.Fprintf(w, "Keyword table: %s (%d phrases, max score %.2f)\n\n", source, table.Len(), table.MaxScore())
	table.Each(func(e keywords.Entry) {
		fmt.Fprintf(w, "  %-32s %5.2f\n", e.Phrase, e.Weight)
	})
	return nil
}

func init() {
	keywordsCmd.Flags().String("keywords", "", "keyword table YAML (default: built-in table)")
	keywordsCmd.Flags().Bool("yaml", false, "print the table as YAML")
	rootCmd.AddCommand(keywordsCmd)
}
