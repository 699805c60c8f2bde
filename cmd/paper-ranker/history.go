// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-ranker/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past ranking runs, or show the results of one",
	Long: `History lists recorded ranking runs, newest first. Given a run ID it prints
the parameters and ranked papers of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	asJSON, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := st.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "    ")
			return enc.Encode(run)
		}
		fmt.Fprintf(w, "Run:       %s\n", run.ID)
		fmt.Fprintf(w, "Date:      %s\n", run.CreatedAt.Local().Format(time.DateTime))
		fmt.Fprintf(w, "Source:    %s\n", run.Source)
		fmt.Fprintf(w, "Model:     %s\n", run.EmbeddingModel)
		fmt.Fprintf(w, "Weight:    %.2f semantic / %.2f rules\n", run.SemanticWeight, 1-run.SemanticWeight)
		fmt.Fprintf(w, "Interest:  %s\n", run.Interest)
		fmt.Fprintf(w, "Returned:  %d of %d\n\n", len(run.Results), run.Total)
		return report.WriteText(w, run.Results, report.TextOptions{})
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-19s  %6s  %5s  %s\n", "ID", "DATE", "PAPERS", "TOP-K", "SOURCE")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %6d  %5d  %s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Total, r.TopK, r.Source)
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(historyCmd)
}
