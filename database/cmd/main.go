package main

import (
	"os"

	"formdesk.link/configs"
	"formdesk.link/configs/configsdatabase"
	"formdesk.link/configs/configslog"
	"formdesk.link/database"

	"github.com/spf13/cobra"
)

func main() {
	var migrate, seed bool

	cmd := &cobra.Command{
		Use:   "formdesk-db",
		Short: "Run database migrations and seeders",
		RunE: func(cmd *cobra.Command, args []string) error {
			envErr := configs.LoadEnv()
			configslog.InitLogger()
			defer configslog.SyncLogger()
			if envErr != nil {
				configslog.SLog.Warnf(".env could not be read: %v", envErr)
			}

			configsdatabase.InitDB()
			defer configsdatabase.CloseDB()

			configslog.SLog.Info("Running database initialization...")
			return database.Initialize(configsdatabase.GetDB(), migrate, seed)
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations")
	cmd.Flags().BoolVar(&seed, "seed", false, "insert the demo form if missing")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
