package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wemarket/qr-order/config"
	"github.com/wemarket/qr-order/database"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "wemarket",
	Short: "WeMarket - QR table ordering for restaurants",
	Long: `WeMarket serves the ordering API for multi-store restaurants: customers
order from a table QR code, staff move orders through the kitchen and every
change is pushed to the right screens over websockets.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (default ./config.yaml)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	utils.InitLogger(cfg.LogLevel)
	return cfg, nil
}

// openDB connects and brings the schema up to date.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}
