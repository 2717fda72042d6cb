package pricing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Row is one tabular BoQ record keyed by column heading.
type Row map[string]any

// Lang selects the heading set used on export.
type Lang string

const (
	LangEnglish Lang = "en"
	LangArabic  Lang = "ar"
)

// Canonical column keys.
const (
	ColCode        = "code"
	ColDescription = "description"
	ColUnit        = "unit"
	ColQuantity    = "quantity"
	ColUnitPrice   = "unit_price"
	ColTotalPrice  = "total_price"
	ColCategory    = "category"
)

// TotalCode marks the trailing total row of an export.
const (
	TotalCodeEnglish = "TOTAL"
	TotalCodeArabic  = "الإجمالي"
)

type column struct {
	key      string
	arabic   string
	aliases  []string
	required bool
}

var columns = []column{
	{key: ColCode, arabic: "كود البند", aliases: []string{"رقم البند", "item code"}, required: true},
	{key: ColDescription, arabic: "وصف البند", aliases: []string{"الوصف", "item description"}, required: true},
	{key: ColUnit, arabic: "الوحدة", aliases: []string{"uom"}, required: true},
	{key: ColQuantity, arabic: "الكمية", aliases: []string{"qty"}, required: true},
	{key: ColUnitPrice, arabic: "سعر الوحدة", aliases: []string{"unit price", "rate"}, required: true},
	{key: ColTotalPrice, arabic: "السعر الإجمالي", aliases: []string{"total price", "amount"}},
	{key: ColCategory, arabic: "التصنيف", aliases: []string{"الفئة"}},
}

var headingIndex = func() map[string]string {
	m := make(map[string]string)
	for _, c := range columns {
		m[normalizeText(c.key)] = c.key
		m[normalizeText(c.arabic)] = c.key
		for _, a := range c.aliases {
			m[normalizeText(a)] = c.key
		}
	}
	return m
}()

// CanonicalColumn maps an English key, Arabic heading or alias to its
// canonical key. Unknown headings return false.
func CanonicalColumn(heading string) (string, bool) {
	k, ok := headingIndex[normalizeText(heading)]
	return k, ok
}

// Heading returns the display heading of a canonical key in lang.
func Heading(key string, lang Lang) string {
	if lang != LangArabic {
		return key
	}
	for _, c := range columns {
		if c.key == key {
			return c.arabic
		}
	}
	return key
}

// Headings lists the canonical export headings in column order.
func Headings(lang Lang) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, Heading(c.key, lang))
	}
	return out
}

// RejectedRow is an import row that failed validation.
type RejectedRow struct {
	Row     int               `json:"row"`
	Values  Row               `json:"values"`
	Reasons []string          `json:"reasons"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ImportReport lists accepted item ids in input order and rejected rows.
type ImportReport struct {
	Accepted []string      `json:"accepted"`
	Rejected []RejectedRow `json:"rejected"`
}

// Err returns an ErrImportRowRejected error when any row was rejected.
func (r ImportReport) Err() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	rows := make([]int, 0, len(r.Rejected))
	for _, rr := range r.Rejected {
		rows = append(rows, rr.Row)
	}
	return newError(ErrImportRowRejected,
		fmt.Sprintf("تم رفض %d من صفوف الاستيراد", len(r.Rejected)),
		map[string]any{"rows": rows, "accepted": len(r.Accepted), "rejected": r.Rejected})
}

// ImportRows appends every valid row as a BoQ line, in input order. Invalid
// rows are skipped and reported; they never stop the import.
func (p *Project) ImportRows(rows []Row) ImportReport {
	report := ImportReport{Accepted: []string{}, Rejected: []RejectedRow{}}
	for i, row := range rows {
		in, extra, problems := parseRow(row)
		if len(problems) == 0 {
			in.trim()
			if err := in.Validate(); err != nil {
				problems = problemsOf(err)
			}
		}
		if len(problems) > 0 {
			rr := RejectedRow{Row: i + 1, Values: row, Fields: problems}
			for _, k := range sortedKeys(problems) {
				rr.Reasons = append(rr.Reasons, problems[k])
			}
			report.Rejected = append(report.Rejected, rr)
			continue
		}
		it := in.build()
		it.Extra = extra
		p.items.push(it)
		p.bump()
		report.Accepted = append(report.Accepted, it.ID)
	}
	return report
}

func parseRow(row Row) (ItemInput, []Field, map[string]string) {
	var in ItemInput
	var extra []Field
	problems := map[string]string{}
	seen := map[string]bool{}

	for _, heading := range sortedKeys(row) {
		value := row[heading]
		key, known := CanonicalColumn(heading)
		if !known {
			extra = append(extra, Field{Key: heading, Value: cast.ToString(value)})
			continue
		}
		if isBlank(value) {
			continue
		}
		seen[key] = true
		switch key {
		case ColCode:
			in.Code = cast.ToString(value)
		case ColDescription:
			in.Description = cast.ToString(value)
		case ColUnit:
			in.Unit = cast.ToString(value)
		case ColCategory:
			in.Category = cast.ToString(value)
		case ColQuantity:
			f, err := toNumber(value)
			if err != nil {
				problems[key] = "الكمية ليست رقماً"
			}
			in.Quantity = f
		case ColUnitPrice:
			f, err := toNumber(value)
			if err != nil {
				problems[key] = "سعر الوحدة ليس رقماً"
			}
			in.UnitPrice = f
		}
	}
	for _, c := range columns {
		if c.required && !seen[c.key] {
			problems[c.key] = fmt.Sprintf("الحقل %q مطلوب", c.arabic)
		}
	}
	return in, extra, problems
}

func problemsOf(err error) map[string]string {
	out := map[string]string{}
	pe, ok := AsError(err)
	if !ok {
		out["row"] = err.Error()
		return out
	}
	if fields, ok := pe.Details["fields"].(map[string]string); ok {
		for k, v := range fields {
			out[k] = v
		}
	}
	if len(out) == 0 {
		out["row"] = pe.Message
	}
	return out
}

var digitFolder = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".", "٬", ",", " ", "",
)

// groupedNumber matches commas that only separate thousands, as in 1,250,000.50.
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// toNumber accepts numbers and numeric text, including Arabic-Indic digits
// and thousands separators. A comma anywhere else, such as the decimal comma
// of "1,5", is refused.
func toNumber(v any) (float64, error) {
	if s, ok := v.(string); ok {
		s = digitFolder.Replace(strings.TrimSpace(s))
		if strings.Contains(s, ",") {
			if !groupedNumber.MatchString(s) {
				return 0, fmt.Errorf("ambiguous number %q", s)
			}
			s = strings.ReplaceAll(s, ",", "")
		}
		v = s
	}
	return cast.ToFloat64E(v)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ExportRows emits the BoQ in canonical schema followed by a total row.
// Zero-quantity lines are kept.
func (p *Project) ExportRows(lang Lang) []Row {
	out := make([]Row, 0, p.items.len()+1)
	p.items.each(func(it *BoQItem) {
		unit := string(it.Unit)
		if lang == LangArabic {
			unit = it.Unit.Label()
		}
		r := Row{
			Heading(ColCode, lang):        it.Code,
			Heading(ColDescription, lang): it.Description,
			Heading(ColUnit, lang):        unit,
			Heading(ColQuantity, lang):    it.Quantity,
			Heading(ColUnitPrice, lang):   it.UnitPrice,
			Heading(ColTotalPrice, lang):  it.TotalPrice,
		}
		if it.Category != "" {
			r[Heading(ColCategory, lang)] = it.Category
		}
		for _, f := range it.Extra {
			r[f.Key] = f.Value
		}
		out = append(out, r)
	})
	total := TotalCodeEnglish
	if lang == LangArabic {
		total = TotalCodeArabic
	}
	out = append(out, Row{
		Heading(ColCode, lang):       total,
		Heading(ColTotalPrice, lang): p.DirectCost(),
	})
	return out
}

// ExportColumns returns the column order for rows: canonical headings first,
// then pass-through columns sorted by name.
func ExportColumns(rows []Row, lang Lang) []string {
	cols := Headings(lang)
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	extra := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			if !known[k] {
				extra[k] = true
			}
		}
	}
	return append(cols, sortedKeys(extra)...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
