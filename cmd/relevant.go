package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/pkg/report"
	"github.com/sw33tLie/tenderscope/pkg/storage"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

var relevantCmd = &cobra.Command{
	Use:   "relevant [FILE]",
	Short: "List tenders relevant to the enhanced keyword profile",
	Long: `Adds the enhanced keyword points to each tender's score and lists those at
or above relevance.threshold. When none qualify the top 10 are shown.
Without FILE the newest scan file in the data dir is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		path, err := batchFileArg(v, args)
		if err != nil {
			return err
		}
		batch, err := storage.ReadBatchFile(path)
		if err != nil {
			return err
		}
		rel, err := relevanceConfig(v).Validate()
		if err != nil {
			return err
		}
		relevant, fellBack, err := tenders.FilterRelevant(batch.Tenders, rel)
		if err != nil {
			return err
		}
		report.PrintRelevant(os.Stdout, path, len(batch.Tenders), relevant, fellBack, rel.Threshold)
		return nil
	},
}

// batchFileArg returns the file argument or the newest scan file.
func batchFileArg(v *viper.Viper, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return storage.LatestBatchFile(dataDir(v))
}

func init() {
	rootCmd.AddCommand(relevantCmd)
}
