package main

import (
	"log"

	config "github.com/anjiri1684/skillazon/configs"
	"github.com/anjiri1684/skillazon/database"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("🔥 %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	load := func() (*config.AppConfig, error) {
		if configFile == "" {
			return config.Load()
		}
		return config.Load(configFile)
	}

	cmd := &cobra.Command{
		Use:           "skillazon",
		Short:         "Skillazon skill-exchange booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config.yml")

	cmd.AddCommand(newServeCommand(load))
	cmd.AddCommand(newMigrateCommand(load))
	cmd.AddCommand(newSeedAdminCommand(load))
	return cmd
}

func newMigrateCommand(load func() (*config.AppConfig, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := database.ConnectDB(cfg.Database.URL)
			if err != nil {
				return err
			}
			return database.Migrate(db)
		},
	}
}

func newSeedAdminCommand(load func() (*config.AppConfig, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account from ADMIN_EMAIL and ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			// Never fall back to memory here.
			dbCfg := cfg.Database
			dbCfg.Fallback = false
			s, err := database.OpenStore(dbCfg)
			if err != nil {
				return err
			}
			return database.SeedAdmin(cmd.Context(), s, cfg.Admin)
		},
	}
}
