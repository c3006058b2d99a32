package app

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/gofiscal/internal/convert"
)

// writeReceiptPDF renders a minimal human-readable PDF of the converted
// document. This is intentionally simple: a header, an items table and the
// totals, not a facsimile of the fiscal printout.
func writeReceiptPDF(doc *convert.FiscalDocument, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Item and shop names may carry Cyrillic text; cp1251 covers it.
	tr := pdf.UnicodeTranslatorFromDescriptor("cp1251")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	r := doc.Ticket.Document.Receipt

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("Receipt %d", r.FiscalDocumentNumber), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	pdf.CellFormat(0, 6, tr(r.User), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(r.RetailPlaceAddress), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "TIN "+r.UserINN, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, r.DateTime, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 6, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 6, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, "Sum", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, it := range r.Items {
		pdf.CellFormat(90, 6, tr(it.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, formatMinor(it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, formatMinor(it.Sum), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(145, 7, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, formatMinor(r.TotalSum), "T", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	if r.AmountsReceiptNds != nil {
		for _, b := range r.AmountsReceiptNds.AmountsNds {
			pdf.CellFormat(145, 6, vatLabel(b.NDS), "", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, formatMinor(b.NDSSum), "", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Document "+doc.ID, "", 1, "L", false, 0, "")
	if r.Operator != nil {
		pdf.CellFormat(0, 5, "Signed by "+tr(*r.Operator), "", 1, "L", false, 0, "")
	}

	return pdf.OutputFileAndClose(outPath)
}

// formatMinor renders a minor-unit amount as a decimal string with two
// fraction digits.
func formatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func vatLabel(nds int) string {
	switch nds {
	case convert.VATStandard20:
		return "VAT 20%"
	case convert.VATStandard10:
		return "VAT 10%"
	case convert.VATZero:
		return "VAT 0%"
	default:
		return "VAT"
	}
}
