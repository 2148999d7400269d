package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/internal/utils"
	"github.com/sw33tLie/tenderscope/pkg/pipeline"
	"github.com/sw33tLie/tenderscope/pkg/report"
	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/sources/manual"
	"github.com/sw33tLie/tenderscope/pkg/storage"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore FILE",
	Short: "Score a hand-collected tender list and write FILE-scored.json",
	Long: `Scores every tender of FILE ({"tenders": [...]} or a bare array) with the
current profile, ignoring any score it already carries, and writes the
result next to it as FILE-scored.json.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		in := args[0]
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = scoredFileName(in)
		}
		top, _ := cmd.Flags().GetInt("top")

		normOpts, err := normalizerOptions(v)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(cmd.Context(), pipeline.Config{
			Inputs:     []sources.Input{{Adapter: manual.New(), Locations: []string{in}}},
			Normalizer: normOpts,
			Scoring:    scoringConfig(v),
			Log:        utils.Log,
		})
		if err != nil {
			return err
		}
		if res.Batch.Stats.Total == 0 {
			fmt.Println("⚠️  No tenders found in input file")
			return nil
		}
		if err := storage.WriteBatchFileTo(out, res.Batch); err != nil {
			return err
		}

		report.PrintSummary(os.Stdout, res.Batch)
		report.PrintLeaderboard(os.Stdout, res.Batch.Tenders, top, nil)
		fmt.Printf("\n💾 Saved scored results to: %s\n", out)
		return nil
	},
}

func scoredFileName(in string) string {
	if strings.HasSuffix(in, ".json") {
		return strings.TrimSuffix(in, ".json") + "-scored.json"
	}
	return in + "-scored.json"
}

func init() {
	rootCmd.AddCommand(rescoreCmd)
	rescoreCmd.Flags().String("out", "", "Output file (default: FILE-scored.json)")
	rescoreCmd.Flags().Int("top", 5, "Number of top matches to show")
}
