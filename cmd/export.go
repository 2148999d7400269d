package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/pkg/report"
	"github.com/sw33tLie/tenderscope/pkg/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export a scan file as an Excel spreadsheet",
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
		out, _ := cmd.Flags().GetString("xlsx")
		if out == "" {
			out = strings.TrimSuffix(path, ".json") + ".xlsx"
		}
		if err := report.WriteXLSX(out, batch); err != nil {
			return err
		}
		fmt.Printf("💾 Exported %d tenders to %s\n", len(batch.Tenders), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("xlsx", "", "Output file (default: FILE with .xlsx extension)")
}
