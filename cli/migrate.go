package cli

import (
	"github.com/spf13/cobra"
	"github.com/wemarket/qr-order/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := openDB(cfg); err != nil {
			return err
		}
		utils.InfoLogger.Info("schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
