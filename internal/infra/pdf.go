package infra

// pdf.go — DANFE NFC-e generation using go-pdf/fpdf.
// Renders the auxiliary document of an authorized NFC-e on thermal
// receipt-size paper: emitter header, item table, totals, access key and
// the SEFAZ consultation URL.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

// GenerateDanfePDF writes the DANFE for an issued NFC-e.
// storagePath is created if needed. Returns the absolute path of the file.
func GenerateDanfePDF(doc *model.FiscalDocument, sale *model.Sale, cfg *model.FiscalConfig, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("nfce_%d.pdf", doc.Number)
	filePath := filepath.Join(storagePath, fileName)

	// 80mm thermal roll, fixed 200mm height
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 200},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Emitter header ───────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 5, cfg.FantasyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, fmt.Sprintf("CNPJ: %s  IE: %s", cfg.CNPJ, cfg.IE), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, fmt.Sprintf("%s, %s - %s/%s", cfg.Street, cfg.Number, cfg.City, cfg.State), "", 1, "C", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(contentW, 4, "DANFE NFC-e - Documento Auxiliar", "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, "da Nota Fiscal de Consumidor Eletronica", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, fmt.Sprintf("NFC-e n. %d  Serie %d", doc.Number, doc.Series), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, doc.CreatedAt.Format("02/01/2006 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 4, "Produto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 4, "Qtd", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 4, "Valor", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range sale.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		if len(name) > 24 {
			name = name[:23] + "…"
		}
		pdf.CellFormat(col1, 4, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 4, fmt.Sprintf("x%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 4, "R$ "+item.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	// ── Totals and payments ──────────────────────────────────────────────────
	if !sale.DiscountTotal.IsZero() {
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(col1+col2, 4, "Desconto:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, "-R$ "+sale.DiscountTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 5, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "R$ "+doc.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, payment := range sale.Payments {
		pdf.CellFormat(col1+col2, 4, "Pagamento ("+payment.Method+"):", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, "R$ "+payment.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Fiscal trailer ───────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(contentW, 4, "Chave de Acesso", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 6)
	pdf.CellFormat(contentW, 4, doc.AccessKey, "", 1, "C", false, 0, "")

	if doc.Protocol != nil {
		pdf.CellFormat(contentW, 4, "Protocolo: "+*doc.Protocol, "", 1, "C", false, 0, "")
	}
	if doc.QRCodeURL != "" {
		pdf.Ln(1)
		pdf.MultiCell(contentW, 3, "Consulte pela chave de acesso em: "+doc.QRCodeURL, "", "C", false)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Obrigado pela preferencia!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
