package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"
)

// PDFOptions tunes result PDF rendering.
type PDFOptions struct {
	// FontPath points at a TTF with Arabic glyphs. When empty the built-in
	// core font is used and non-Latin text will not render.
	FontPath string
}

const pdfFontFamily = "tender-unicode"

// GenerateResultPDF creates a PDF of the priced BoQ using maroto/v2.
func GenerateResultPDF(data ExportData, opts PDFOptions) ([]byte, error) {
	builder := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		})

	if opts.FontPath != "" {
		fonts, err := repository.New().
			AddUTF8Font(pdfFontFamily, fontstyle.Normal, opts.FontPath).
			AddUTF8Font(pdfFontFamily, fontstyle.Bold, opts.FontPath).
			Load()
		if err != nil {
			return nil, fmt.Errorf("load pdf font: %w", err)
		}
		builder = builder.WithCustomFonts(fonts).WithDefaultFont(&props.Font{Family: pdfFontFamily})
	}

	m := maroto.New(builder.Build())

	addHeader(m, data)
	addTableHeader(m)
	for _, r := range data.Rows {
		addTableRow(m, r)
	}
	addSummary(m, data)
	addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

// addHeader adds the title, project code, strategy and pricing date.
func addHeader(m core.Maroto, data ExportData) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(data.Title, props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	grey := &props.Color{Red: 80, Green: 80, Blue: 80}
	m.AddRows(
		row.New(8).Add(
			col.New(4).Add(
				text.New(fmt.Sprintf("Code: %s", data.Code), props.Text{Size: 9, Align: align.Left, Color: grey}),
			),
			col.New(4).Add(
				text.New(fmt.Sprintf("Strategy: %s", data.Strategy), props.Text{Size: 9, Align: align.Center, Color: grey}),
			),
			col.New(4).Add(
				text.New(fmt.Sprintf("Priced: %s", data.PricedAt), props.Text{Size: 9, Align: align.Right, Color: grey}),
			),
		),
	)

	m.AddRows(row.New(4))
}

// addTableHeader adds the column header row of the priced BoQ table.
func addTableHeader(m core.Maroto) {
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerCell := props.Cell{BackgroundColor: &props.Color{Red: 33, Green: 37, Blue: 41}}

	cols := []struct {
		size  int
		label string
	}{
		{1, "#"}, {1, "Code"}, {3, "Description"}, {1, "Qty"}, {1, "Unit"},
		{1, "Unit Price"}, {1, "Total"}, {1, "Final Unit"}, {2, "Final Total"},
	}
	r := row.New(8)
	for _, c := range cols {
		r.Add(col.New(c.size).Add(text.New(c.label, headerText)).WithStyle(&headerCell))
	}
	m.AddRows(r)
}

// addTableRow adds a single data row, styled by level.
func addTableRow(m core.Maroto, r ExportRow) {
	var cellStyle *props.Cell
	var textSize float64 = 7
	textStyle := fontstyle.Normal
	descPrefix := ""

	if r.Level == 0 {
		textStyle = fontstyle.Bold
		textSize = 8
	} else {
		descPrefix = "  "
		cellStyle = &props.Cell{BackgroundColor: &props.Color{Red: 245, Green: 245, Blue: 245}}
	}

	baseText := props.Text{Size: textSize, Style: textStyle, Align: align.Center}
	rightText := baseText
	rightText.Align = align.Right

	finalUnit, finalTotal := "", ""
	if r.Level == 0 {
		finalUnit = FormatNumber(r.FinalUnitPrice)
		finalTotal = FormatNumber(r.FinalTotalPrice)
	}

	cols := []core.Col{
		col.New(1).Add(text.New(r.Index, baseText)),
		col.New(1).Add(text.New(r.Code, baseText)),
		col.New(3).Add(text.New(descPrefix+r.Description, rightText)),
		col.New(1).Add(text.New(formatQty(r.Qty), rightText)),
		col.New(1).Add(text.New(r.UOM, baseText)),
		col.New(1).Add(text.New(FormatNumber(r.UnitPrice), rightText)),
		col.New(1).Add(text.New(FormatNumber(r.Total), rightText)),
		col.New(1).Add(text.New(finalUnit, rightText)),
		col.New(2).Add(text.New(finalTotal, rightText)),
	}
	if cellStyle != nil {
		for i := range cols {
			cols[i] = cols[i].WithStyle(cellStyle)
		}
	}

	m.AddRows(row.New(7).Add(cols...))
}

// addSummary adds the cost breakdown block at the bottom of the table.
func addSummary(m core.Maroto, data ExportData) {
	m.AddRows(row.New(6))

	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	for _, s := range data.Summary {
		style := props.Text{Size: 9, Align: align.Right}
		if s.Total {
			style.Style = fontstyle.Bold
		}
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(text.New(s.Label, style)).WithStyle(summaryCell),
				col.New(4).Add(text.New(FormatAmount(s.Value), style)).WithStyle(summaryCell),
			),
		)
	}

	bold := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	m.AddRows(
		row.New(8).Add(
			col.New(8).Add(text.New("Local content", bold)).WithStyle(summaryCell),
			col.New(4).Add(text.New(FormatPercent(data.LocalContentPercent), bold)).WithStyle(summaryCell),
		),
	)
}

// addFooter adds the strategy notes and generation line.
func addFooter(m core.Maroto, data ExportData) {
	m.AddRows(row.New(6))
	noteText := props.Text{Size: 8, Align: align.Right}
	for _, n := range data.Notes {
		m.AddRows(row.New(5).Add(col.New(12).Add(text.New("- "+n, noteText))))
	}
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("Status %s, generated on %s", data.Status, data.PricedAt),
					props.Text{
						Size:  7,
						Align: align.Left,
						Color: &props.Color{Red: 140, Green: 140, Blue: 140},
					},
				),
			),
		),
	)
}
