package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/internal/utils"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the configured scan every day at schedule.time",
	Long: `Runs a recorded scan over schedule.inputs.{api,xml,html,manual} every day
at schedule.time (HH:MM, local time, or a five-field cron expression) until
interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v := viper.GetViper()
		now, _ := cmd.Flags().GetBool("now")
		once, _ := cmd.Flags().GetBool("run-now")

		opts := scanOptions{Locations: map[string][]string{}, Record: true}
		total := 0
		for _, kind := range inputKinds {
			opts.Locations[kind] = v.GetStringSlice("schedule.inputs." + kind)
			total += len(utils.SplitList(opts.Locations[kind]))
		}
		if total == 0 {
			return fmt.Errorf("no inputs configured under schedule.inputs")
		}

		ctx := cmd.Context()
		runOnce := func() error {
			utils.Log.Infof("Starting daily scan")
			res, err := runScan(ctx, v, opts)
			if err != nil {
				return err
			}
			utils.Log.Infof("Daily scan done: %d tenders, %d high priority, %d new",
				res.Batch.Stats.Total, res.Batch.Stats.HighPriority, len(res.NewTenderIDs))
			return nil
		}
		run := func() {
			if err := runOnce(); err != nil {
				utils.Log.Errorf("Daily scan failed: %v", err)
			}
		}

		if once {
			return runOnce()
		}

		spec, err := dailySpec(v.GetString("schedule.time"))
		if err != nil {
			return err
		}
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		schedule, err := parser.Parse(spec)
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
		c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger), cron.Recover(cron.DefaultLogger)))
		c.Schedule(schedule, cron.FuncJob(run))

		if now {
			run()
		}
		c.Start()
		utils.Log.Infof("Next scan at %s", schedule.Next(time.Now()).Format("2006-01-02 15:04"))

		<-ctx.Done()
		utils.Log.Infof("Stopping scheduler...")
		<-c.Stop().Done()
		return nil
	},
}

// dailySpec turns HH:MM into a cron spec. Anything containing a space is
// taken as a cron expression already.
func dailySpec(at string) (string, error) {
	at = strings.TrimSpace(at)
	if strings.Contains(at, " ") {
		return at, nil
	}
	t, err := time.Parse("15:04", at)
	if err != nil {
		return "", fmt.Errorf("invalid schedule.time %q, expected HH:MM", at)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().Bool("now", false, "Also run a scan right away")
	scheduleCmd.Flags().Bool("run-now", false, "Run a single scan and exit")
}
