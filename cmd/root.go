package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/internal/utils"
)

var cfgFile string

const (
	LOGO = `	 _                 _
	| |_ ___ _ __   __| | ___ _ __ ___  ___ ___  _ __   ___
	| __/ _ \ '_ \ / _' |/ _ \ '__/ __|/ __/ _ \| '_ \ / _ \
	| ||  __/ | | | (_| |  __/ |  \__ \ (_| (_) | |_) |  __/
	 \__\___|_| |_|\__,_|\___|_|  |___/\___\___/| .__/ \___|
	                                            |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tenderscope",
	Short: "Scores public procurement notices against your keyword profile.",
	Long: LOGO + `tenderscope reads TED notices from the search API, the daily XML packages,
saved result pages or hand-collected lists, scores them against configured
keywords, countries and CPV codes, and keeps a history of what was new.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelString, _ := cmd.Flags().GetString("loglevel")
		return utils.SetLogLevel(levelString)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tenderscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for scan files (default from config: data)")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: tenderscope.sqlite in the data dir)")

	_ = viper.BindPFlag("http.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	_ = viper.BindPFlag("output.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		utils.Log.Warnf("Could not load .env: %v", err)
	}

	setDefaults(viper.GetViper())

	var home string
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		var err error
		home, err = homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".tenderscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TENDERSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && home != "" {
			// Config file not found; create it with defaults.
			configPath := filepath.Join(home, ".tenderscope.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Warnf("Error creating config file: %s", err)
			}
		} else {
			utils.Log.Warnf("Could not read config: %v", err)
		}
	}
}
