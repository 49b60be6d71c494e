// Package cli implements the offline person maintenance commands (import, seed, list).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/personbot/database"
	"github.com/Ananth-NQI/personbot/internal/config"
	"github.com/Ananth-NQI/personbot/internal/storage"
)

var driverFlag string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "persons",
	Short: "Maintain the person records served by the chat bot",
	Long:  "Offline utilities for the person store: bulk import from YAML, seeding and listing. Uses the same environment as the bot.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnvFiles()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Storage driver override: postgres, sqlite or memory (default: $STORE_DRIVER)")
}

func openStore() (storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if driverFlag != "" {
		cfg.StoreDriver = driverFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return database.OpenStore(cfg)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
