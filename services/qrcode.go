package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
	"github.com/wemarket/qr-order/models"
)

// QRImageSize is the edge length in pixels of generated table codes.
const QRImageSize = 512

// TableOrderURL is the customer-facing link encoded in a table's QR code.
func TableOrderURL(baseURL string, table models.Table) string {
	q := url.Values{}
	q.Set("store_id", fmt.Sprint(table.StoreID))
	q.Set("table_id", fmt.Sprint(table.ID))
	q.Set("qr", table.QRCode)
	return strings.TrimRight(baseURL, "/") + "/?" + q.Encode()
}

// RenderTableQR encodes the table's order link as a PNG.
func RenderTableQR(baseURL string, table models.Table, size int) ([]byte, error) {
	if size <= 0 {
		size = QRImageSize
	}
	png, err := qrcode.Encode(TableOrderURL(baseURL, table), qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("render qr for table %d: %w", table.ID, err)
	}
	return png, nil
}
