package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/internal/utils"
	"github.com/sw33tLie/tenderscope/pkg/report"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the tenderscope database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := dbFilePath(viper.GetViper())
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded scans, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, _, err := openExistingDB(viper.GetViper())
		if err != nil {
			return err
		}
		defer db.Close()

		scans, err := db.ListScans(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(scans) == 0 {
			fmt.Println("No scans recorded yet.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Scanned At", "Source", "Total", report.Icon(tenders.PriorityHigh), report.Icon(tenders.PriorityMedium), report.Icon(tenders.PriorityLow), report.NewMarker, "File"})
		for _, s := range scans {
			t.AppendRow(table.Row{
				s.ScannedAt.Local().Format("2006-01-02 15:04"),
				s.Source,
				s.Stats.Total,
				s.Stats.HighPriority,
				s.Stats.MediumPriority,
				s.Stats.LowPriority,
				s.NewTenders,
				s.FilePath,
			})
		}
		t.Render()
		return nil
	},
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show tenders first seen most recently (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		days, _ := cmd.Flags().GetInt("days")
		db, _, err := openExistingDB(viper.GetViper())
		if err != nil {
			return err
		}
		defer db.Close()

		var since time.Time
		if days > 0 {
			since = time.Now().AddDate(0, 0, -days)
		}
		items, err := db.ListNewTenders(cmd.Context(), since, limit)
		if err != nil {
			return err
		}
		for _, it := range items {
			ts := it.FirstSeenAt.Local().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %s %3d  %s  %s  %s\n", ts, report.Icon(tenders.Classify(it.BestScore)), it.BestScore, it.Country, text.Trim(it.Title, 80), it.URL)
		}
		return nil
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the scans and tenders in the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openExistingDB(viper.GetViper())
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		if stats.Scans == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Scans", "Tenders", "High", "Medium", "Low"})
		t.AppendRow(table.Row{stats.Scans, stats.Tenders, stats.HighPriority, stats.MediumPriority, stats.LowPriority})
		t.Render()
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest scans (default history.keep)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v := viper.GetViper()
		keep, _ := cmd.Flags().GetInt("keep")
		if keep <= 0 {
			keep = v.GetInt("history.keep")
		}
		db, path, err := openExistingDB(v)
		if err != nil {
			return err
		}
		defer db.Close()

		lock, err := utils.NewDBLock(path)
		if err != nil {
			return err
		}
		if err := lock.Lock(); err != nil {
			return err
		}
		defer lock.Unlock()

		removed, err := db.PruneScans(cmd.Context(), keep)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d scans\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(historyCmd)
	dbCmd.AddCommand(changesCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(pruneCmd)

	historyCmd.Flags().Int("limit", 90, "Number of scans to show")
	changesCmd.Flags().Int("limit", 50, "Number of tenders to show")
	changesCmd.Flags().Int("days", 0, "Only tenders first seen in the last N days")
	pruneCmd.Flags().Int("keep", 0, "Number of scans to keep")
}
