package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scan history as JSON for the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		listenAddr, _ := cmd.Flags().GetString("listen")

		db, _, err := openExistingDB(v)
		if err != nil {
			return err
		}
		defer db.Close()

		srv := server.New(db, v.GetString("server.username"), v.GetString("server.password"))
		return srv.Start(cmd.Context(), listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
}
