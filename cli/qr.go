package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/services"
)

var (
	qrStoreID uint
	qrOutDir  string
	qrSize    int
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Write a QR code PNG for every table of a store",
	RunE:  runQR,
}

func init() {
	qrCmd.Flags().UintVar(&qrStoreID, "store", 0, "store id (required)")
	qrCmd.Flags().StringVar(&qrOutDir, "out", "qrcodes", "output directory")
	qrCmd.Flags().IntVar(&qrSize, "size", services.QRImageSize, "image edge in pixels")
	_ = qrCmd.MarkFlagRequired("store")
	rootCmd.AddCommand(qrCmd)
}

func runQR(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	var tables []models.Table
	if err := db.Where("store_id = ? AND is_active = ?", qrStoreID, true).Order("id").Find(&tables).Error; err != nil {
		return err
	}
	if len(tables) == 0 {
		return fmt.Errorf("store %d has no active tables", qrStoreID)
	}
	if err := os.MkdirAll(qrOutDir, 0o755); err != nil {
		return err
	}

	for _, t := range tables {
		png, err := services.RenderTableQR(cfg.PublicBaseURL, t, qrSize)
		if err != nil {
			return err
		}
		path := filepath.Join(qrOutDir, fmt.Sprintf("store%d-table%d.png", t.StoreID, t.ID))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", path, t.Name)
	}
	return nil
}
