package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wemarket/qr-order/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo store with menu, tables and staff",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		res, err := database.Seed(db)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		out := cmd.OutOrStdout()
		if res.Skipped {
			fmt.Fprintf(out, "demo data already present (owner id %d)\n", res.OwnerID)
			return nil
		}
		fmt.Fprintf(out, "store %d: %d products, %d tables\n", res.StoreID, res.Products, res.Tables)
		fmt.Fprintf(out, "log in as %s / %s\n", database.DemoOwnerEmail, database.DemoPassword)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
