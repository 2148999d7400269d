package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/pkg/report"
	"github.com/sw33tLie/tenderscope/pkg/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats [FILE]",
	Short: "Print the summary and top matches of a scan file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := batchFileArg(viper.GetViper(), args)
		if err != nil {
			return err
		}
		batch, err := storage.ReadBatchFile(path)
		if err != nil {
			return err
		}
		top, _ := cmd.Flags().GetInt("top")
		outputFlags, _ := cmd.Flags().GetString("output")
		delimiter, _ := cmd.Flags().GetString("delimiter")

		if outputFlags != "" {
			return report.PrintTenders(os.Stdout, batch.Tenders, outputFlags, delimiter, nil)
		}
		report.PrintSummary(os.Stdout, batch)
		if top > 0 {
			report.PrintLeaderboard(os.Stdout, batch.Tenders, top, nil)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Int("top", 5, "Number of top matches to show")
	statsCmd.Flags().StringP("output", "o", "", "Print one line per tender instead: i=id, t=title, d=description, s=score, p=priority, c=country, b=buyer, u=url")
	statsCmd.Flags().StringP("delimiter", "d", " ", "Delimiter character to use for txt output format")
}
