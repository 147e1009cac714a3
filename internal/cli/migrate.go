package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/listing-alerts/pkg/storage"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the alerts database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLite(cfg.Storage.Path, false)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("Database ready at %s\n", cfg.Storage.Path)
	return nil
}
