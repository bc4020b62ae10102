package infra

// pdf.go: sale receipt generation using go-pdf/fpdf.
// A5 portrait layout:
//   - Company name and document number
//   - Client (when the sale came from a proforma)
//   - Item table (codigo, nombre, cant, precio, subtotal)
//   - Base / IGV / Total block
//
// The output file is saved to storagePath/venta_{numero}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"gestionventas/internal/model"

	"github.com/go-pdf/fpdf"
)

// ReceiptData is everything printed on a receipt besides the sale itself.
type ReceiptData struct {
	Empresa string
	Cliente string // empty for counter sales
}

// GenerateVentaPDF writes the receipt for venta and returns the absolute path.
// storagePath is created if needed.
func GenerateVentaPDF(venta *model.Venta, data ReceiptData, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath, err := filepath.Abs(filepath.Join(storagePath, fmt.Sprintf("venta_%s.pdf", venta.Numero)))
	if err != nil {
		return "", fmt.Errorf("pdf: resolve path: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(data.Empresa), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Comprobante de venta", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW/2, 6, venta.Numero, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW/2, 6, venta.CreatedAt.Format("02/01/2006 15:04"), "", 1, "R", false, 0, "")
	if data.Cliente != "" {
		pdf.CellFormat(contentW, 5, tr("Cliente: "+data.Cliente), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	cols := []float64{contentW * 0.16, contentW * 0.40, contentW * 0.10, contentW * 0.16, contentW * 0.18}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Codigo", "Descripcion", "Cant", "P. Unit", "Subtotal"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(cols[i], 6, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, item := range venta.Items {
		nombre := []rune(item.Nombre)
		if len(nombre) > 32 {
			nombre = append(nombre[:31], '.')
		}
		pdf.CellFormat(cols[0], 5, item.Codigo, "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 5, tr(string(nombre)), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2], 5, fmt.Sprintf("%d", item.Cant), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 5, item.Precio.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4], 5, item.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := contentW - cols[4]
	igvLabel := fmt.Sprintf("IGV (%s%%)", venta.IGVRate.Shift(2).StringFixed(0))
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(labelW, 5, "Base imponible", "", 0, "R", false, 0, "")
	pdf.CellFormat(cols[4], 5, venta.Base.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 5, igvLabel, "", 0, "R", false, 0, "")
	pdf.CellFormat(cols[4], 5, venta.IGV.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(labelW, 7, "TOTAL", "", 0, "R", false, 0, "")
	pdf.CellFormat(cols[4], 7, venta.Total.StringFixed(2), "", 1, "R", false, 0, "")

	if venta.IGVIncluido {
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(contentW, 4, "Precios incluyen IGV", "", 1, "R", false, 0, "")
	}

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su compra!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
