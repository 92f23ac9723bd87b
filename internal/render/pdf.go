package render

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
)

const (
	bodyFamily = "body"
	coreFamily = "Helvetica"
	lineHeight = 7.0
)

// PDFRenderer lays a shopping list out on one or more pages.
type PDFRenderer struct {
	cfg Config
}

func NewPDFRenderer(cfg Config) (*PDFRenderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return &PDFRenderer{cfg: cfg}, nil
}

func (r *PDFRenderer) Render(ctx context.Context, report shopping.Report) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	if err := r.cfg.checkFont(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	pdf := fpdf.New(strings.ToUpper(r.cfg.Orientation), "mm", r.cfg.PageSize, r.cfg.FontDir)
	pdf.SetTitle(r.cfg.Title, true)
	pdf.SetCreator("kitchen-assistant", true)

	family := coreFamily
	text := pdf.UnicodeTranslatorFromDescriptor("")
	if r.cfg.FontFile != "" {
		pdf.AddUTF8Font(bodyFamily, "", r.cfg.FontFile)
		family = bodyFamily
		text = func(s string) string { return s }
	}

	pdf.AddPage()
	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := width - left - right

	pdf.SetFont(family, "", 18)
	pdf.CellFormat(usable, 10, text(r.cfg.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(usable, lineHeight, text(report.TimestampLabel), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(family, "", 12)
	for i, name := range report.RecipeNames {
		pdf.CellFormat(usable, lineHeight, text(strconv.Itoa(i+1)+". "+name), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	nameWidth := usable * 0.6
	amountWidth := usable * 0.2
	unitWidth := usable - nameWidth - amountWidth

	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(nameWidth, lineHeight, text("Ingredient"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(amountWidth, lineHeight, text("Amount"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(unitWidth, lineHeight, text("Unit"), "1", 1, "L", true, 0, "")
	for _, row := range report.Rows {
		pdf.CellFormat(nameWidth, lineHeight, text(row.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(amountWidth, lineHeight, strconv.Itoa(row.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(unitWidth, lineHeight, text(row.Unit), "1", 1, "L", false, 0, "")
	}

	if report.Caption != "" {
		pdf.Ln(6)
		pdf.SetFont(family, "", 14)
		pdf.CellFormat(usable, 10, text(report.Caption), "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}
