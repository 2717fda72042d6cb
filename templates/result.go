// Package templates renders the HTML views served next to the JSON API.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"tenderpricing/services"
	"tenderpricing/workflow"
)

// ResultSheet renders the stage-8 reference sheet: header, stage bar, priced
// lines, the summary block, risks and notes. The page is Arabic and RTL.
func ResultSheet(data services.ExportData, stages []workflow.StageStatus) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="ar" dir="rtl"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&b, `<title>%s</title>`, esc(data.Title))
		b.WriteString(`<style>` + resultCSS + `</style></head><body>`)

		fmt.Fprintf(&b, `<header><h1>%s</h1><p>رمز المشروع: %s · الاستراتيجية: %s · تاريخ التسعير: %s</p></header>`,
			esc(data.Title), esc(data.Code), esc(data.Strategy), esc(data.PricedAt))

		writeStageBar(&b, stages)
		writeLines(&b, data.Rows)
		writeSummary(&b, data)
		writeRisks(&b, data)

		if len(data.Notes) > 0 {
			b.WriteString(`<section class="notes"><h2>ملاحظات</h2><ul>`)
			for _, n := range data.Notes {
				fmt.Fprintf(&b, `<li>%s</li>`, esc(n))
			}
			b.WriteString(`</ul></section>`)
		}
		b.WriteString(`</body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeStageBar(b *strings.Builder, stages []workflow.StageStatus) {
	if len(stages) == 0 {
		return
	}
	b.WriteString(`<nav class="stages"><ol>`)
	for _, st := range stages {
		class := "stage"
		switch {
		case st.Current:
			class += " current"
		case !st.Reachable:
			class += " locked"
		}
		fmt.Fprintf(b, `<li class="%s" data-stage="%d">%s</li>`, class, st.Stage, esc(st.Title))
	}
	b.WriteString(`</ol></nav>`)
}

func writeLines(b *strings.Builder, rows []services.ExportRow) {
	b.WriteString(`<table class="lines"><thead><tr>`)
	for _, h := range []string{"#", "الرمز", "الوصف", "الكمية", "الوحدة", "سعر الوحدة", "الإجمالي", "سعر الوحدة النهائي", "الإجمالي النهائي"} {
		fmt.Fprintf(b, `<th>%s</th>`, h)
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, r := range rows {
		class := "line"
		final := `<td></td><td></td>`
		if r.Level > 0 {
			class = "sub-line"
		} else {
			final = fmt.Sprintf(`<td class="num">%s</td><td class="num">%s</td>`,
				services.FormatNumber(r.FinalUnitPrice), services.FormatNumber(r.FinalTotalPrice))
		}
		fmt.Fprintf(b, `<tr class="%s"><td>%s</td><td>%s</td><td>%s</td><td class="num">%v</td><td>%s</td><td class="num">%s</td><td class="num">%s</td>%s</tr>`,
			class, esc(r.Index), esc(r.Code), esc(r.Description), r.Qty, esc(r.UOM),
			services.FormatNumber(r.UnitPrice), services.FormatNumber(r.Total), final)
	}
	b.WriteString(`</tbody></table>`)
}

func writeSummary(b *strings.Builder, data services.ExportData) {
	b.WriteString(`<section class="summary"><h2>ملخص التسعير</h2><table>`)
	for _, s := range data.Summary {
		class := ""
		if s.Total {
			class = ` class="total"`
		}
		fmt.Fprintf(b, `<tr%s><th>%s</th><td class="num">%s</td></tr>`, class, esc(s.Label), services.FormatAmount(s.Value))
	}
	fmt.Fprintf(b, `<tr><th>نسبة المحتوى المحلي</th><td class="num">%s</td></tr>`, services.FormatPercent(data.LocalContentPercent))
	b.WriteString(`</table></section>`)
}

func writeRisks(b *strings.Builder, data services.ExportData) {
	if len(data.Risks) == 0 {
		return
	}
	b.WriteString(`<section class="risks"><h2>المخاطر</h2><table><thead><tr><th>الفئة</th><th>الوصف</th><th>الدرجة</th><th>تكلفة المخاطرة</th></tr></thead><tbody>`)
	for _, r := range data.Risks {
		fmt.Fprintf(b, `<tr><td>%s</td><td>%s</td><td class="num">%d</td><td class="num">%s</td></tr>`,
			esc(r.Category.Label()), esc(r.Description), r.Score, services.FormatAmount(r.Applied))
	}
	b.WriteString(`</tbody></table></section>`)
}

func esc(s string) string { return templ.EscapeString(s) }

const resultCSS = `body{font-family:"Noto Naskh Arabic",Tahoma,sans-serif;margin:2rem;color:#212529}
table{border-collapse:collapse;width:100%;margin-bottom:1.5rem}
th,td{border:1px solid #dee2e6;padding:.35rem .5rem;text-align:right}
thead th{background:#333;color:#fff}
.num{direction:ltr;text-align:left}
.sub-line{background:#f5f5f5;font-size:.9em}
.summary .total{font-weight:bold;background:#f0f0f0}
.stages ol{display:flex;gap:.5rem;list-style:none;padding:0}
.stage{padding:.25rem .6rem;border-radius:4px;background:#e9ecef}
.stage.current{background:#0d6efd;color:#fff}
.stage.locked{opacity:.5}`
