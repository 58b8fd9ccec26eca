package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/database"
	crmlog "github.com/localnerve/jam-build-crm/internal/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger

	// opened lazily, only the commands that need a database pay for one
	db *gorm.DB
)

var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "Operator tasks for the jam-build-crm data service",
	Long: `crmctl runs maintenance tasks against the same database and object storage
the server uses. Configuration comes from the server's environment variables.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initialize,
	PersistentPostRunE: finalize,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(linksCmd)
}

func initialize(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(); err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	logs, err := crmlog.New().FromBuffer(os.Stderr).WithLevel(level).Console(true).Service("crmctl").Make()
	if err != nil {
		return err
	}
	log = logs.Logger
	return nil
}

func finalize(*cobra.Command, []string) error {
	if db != nil {
		return database.Close(db)
	}
	return nil
}

func openDB() (*gorm.DB, error) {
	if db != nil {
		return db, nil
	}
	var err error
	db, err = database.Connect(cfg, log)
	return db, err
}

func getContext() context.Context {
	return context.Background()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
