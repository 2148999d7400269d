package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/internal/utils"
	"github.com/sw33tLie/tenderscope/pkg/pipeline"
	"github.com/sw33tLie/tenderscope/pkg/report"
	"github.com/sw33tLie/tenderscope/pkg/storage"
	"github.com/sw33tLie/tenderscope/pkg/whttp"
)

// scanOptions are the per-invocation settings shared by scan and schedule.
type scanOptions struct {
	Locations   map[string][]string
	Record      bool
	NoSave      bool
	Prefix      string
	Concurrency int
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score tenders from any mix of inputs and write a scan file",
	Long: `Reads every input, scores the tenders against the configured profile,
removes duplicates and writes <data-dir>/<prefix>-YYYY-MM-DD.json.

Inputs are local files, directories, daily .tar.gz packages or http(s) URLs:
  --api     TED search API responses (JSON)
  --xml     TED_EXPORT notices or daily packages
  --html    saved TED result pages
  --manual  hand-collected tender lists or earlier scan files`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := scanOptions{Locations: map[string][]string{}}
		for _, kind := range inputKinds {
			locs, _ := cmd.Flags().GetStringSlice(kind)
			opts.Locations[kind] = locs
		}
		opts.Record, _ = cmd.Flags().GetBool("db")
		opts.NoSave, _ = cmd.Flags().GetBool("no-save")
		opts.Prefix, _ = cmd.Flags().GetString("prefix")
		opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")
		top, _ := cmd.Flags().GetInt("top")
		outputFlags, _ := cmd.Flags().GetString("output")
		delimiter, _ := cmd.Flags().GetString("delimiter")

		if outputFlags != "" {
			if err := report.ValidateFlags(outputFlags); err != nil {
				return err
			}
		}

		res, err := runScan(cmd.Context(), viper.GetViper(), opts)
		if err != nil {
			return err
		}
		printScanResult(res, top, outputFlags, delimiter)
		return nil
	},
}

// runScan runs the pipeline with the configured profile. With Record set it
// holds the database lock for the whole run and prunes old history.
func runScan(ctx context.Context, v *viper.Viper, opts scanOptions) (*pipeline.Result, error) {
	normOpts, err := normalizerOptions(v)
	if err != nil {
		return nil, err
	}
	inputs, err := buildInputs(opts.Locations, normOpts)
	if err != nil {
		return nil, err
	}
	httpOpts, err := httpOptions(v)
	if err != nil {
		return nil, err
	}
	client, err := whttp.NewClient(httpOpts)
	if err != nil {
		return nil, err
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = v.GetString("output.prefix")
	}
	cfg := pipeline.Config{
		Inputs:      inputs,
		Fetcher:     client,
		Normalizer:  normOpts,
		Scoring:     scoringConfig(v),
		Concurrency: opts.Concurrency,
		Log:         utils.Log,
		FilePrefix:  prefix,
		OnInputDone: func(location string, raws int, err error) {
			if err == nil {
				utils.Log.Infof("Read %d records from %s", raws, location)
			}
		},
	}
	if !opts.NoSave {
		cfg.OutDir = dataDir(v)
	}

	if opts.Record {
		path, err := dbFilePath(v)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		lock, err := utils.NewDBLock(path)
		if err != nil {
			return nil, err
		}
		if err := lock.Lock(); err != nil {
			return nil, err
		}
		defer lock.Unlock()

		db, err := storage.Open(path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		cfg.DB = db

		res, err := pipeline.Run(ctx, cfg)
		if err != nil {
			return res, err
		}
		if removed, err := db.PruneScans(ctx, v.GetInt("history.keep")); err != nil {
			utils.Log.Warnf("Could not prune scan history: %v", err)
		} else if removed > 0 {
			utils.Log.Debugf("Pruned %d old scans", removed)
		}
		return res, nil
	}

	return pipeline.Run(ctx, cfg)
}

func printScanResult(res *pipeline.Result, top int, outputFlags, delimiter string) {
	var isNew func(string) bool
	if res.ScanID != "" {
		isNew = res.IsNew
	}

	if outputFlags != "" {
		// Flags were validated before the scan ran.
		_ = report.PrintTenders(os.Stdout, res.Batch.Tenders, outputFlags, delimiter, isNew)
		return
	}

	fmt.Println()
	report.PrintSummary(os.Stdout, res.Batch)
	if res.ScanID != "" {
		fmt.Printf("%s New tenders:     %d\n\n", report.NewMarker, len(res.NewTenderIDs))
	}
	if top > 0 && len(res.Batch.Tenders) > 0 {
		fmt.Printf("🏆 Top %d Matches:\n", top)
		report.PrintLeaderboard(os.Stdout, res.Batch.Tenders, top, isNew)
	}
	if res.FilePath != "" {
		fmt.Printf("\n💾 Saved to: %s\n", res.FilePath)
	}
	if res.Malformed > 0 || len(res.Errors) > 0 {
		fmt.Printf("⚠️  %d malformed records skipped, %d inputs failed\n", res.Malformed, len(res.Errors))
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringSlice(inputAPI, nil, "TED search API responses (files, dirs or URLs)")
	scanCmd.Flags().StringSlice(inputXML, nil, "TED XML notices or daily .tar.gz packages")
	scanCmd.Flags().StringSlice(inputHTML, nil, "Saved TED search result pages")
	scanCmd.Flags().StringSlice(inputManual, nil, "Hand-collected tender lists (JSON)")
	scanCmd.Flags().Bool("db", false, "Record the scan in the database and mark new tenders")
	scanCmd.Flags().Bool("no-save", false, "Do not write a scan file")
	scanCmd.Flags().String("prefix", "", "Scan file name prefix (default from config: automated-scan)")
	scanCmd.Flags().Int("top", 5, "Number of top matches to show")
	scanCmd.Flags().Int("concurrency", 5, "Number of inputs read in parallel")
	scanCmd.Flags().StringP("output", "o", "", "Print one line per tender instead: i=id, t=title, d=description, s=score, p=priority, c=country, b=buyer, u=url")
	scanCmd.Flags().StringP("delimiter", "d", " ", "Delimiter character to use for txt output format")
}
