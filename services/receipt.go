package services

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/utils"
)

// RenderReceipt writes a one page PDF receipt for order. The core fonts only
// cover Latin-1, so other characters are replaced.
func RenderReceipt(w io.Writer, order *models.Order) error {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(fmt.Sprintf("Receipt %s", order.DisplayNumber()), false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	storeName := "Receipt"
	if order.StoreName != nil && *order.StoreName != "" {
		storeName = *order.StoreName
	}
	pdf.CellFormat(0, 10, tr(storeName), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Order "+order.DisplayNumber(), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, order.CreatedAt.Local().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	if order.TableName != nil {
		pdf.CellFormat(0, 6, tr("Table: "+*order.TableName), "", 1, "C", false, 0, "")
	}
	if order.QueueNumber != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Queue #%d", *order.QueueNumber), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(64, 7, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(14, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range order.Items {
		pdf.CellFormat(64, 6, tr(it.ProductName), "", 0, "L", false, 0, "")
		pdf.CellFormat(14, 6, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, utils.FormatThousands(it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, utils.FormatThousands(it.Subtotal), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(103, 8, "Total (KRW)", "T", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, utils.FormatThousands(order.TotalAmount), "T", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	payment := order.PaymentStatus
	if order.PaymentMethod != nil {
		payment = *order.PaymentMethod + " / " + payment
	}
	pdf.CellFormat(0, 6, tr("Payment: "+payment), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+order.Status, "", 1, "L", false, 0, "")

	return pdf.Output(w)
}
