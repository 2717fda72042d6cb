package pricing

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Term is one entry of a closed vocabulary: a stable key, its Arabic label
// and any extra spellings accepted on input.
type Term struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Aliases []string `json:"aliases,omitempty"`
}

// Unit is a BoQ unit of measure.
type Unit string

const (
	UnitArea     Unit = "m2"
	UnitVolume   Unit = "m3"
	UnitLength   Unit = "m"
	UnitCount    Unit = "no"
	UnitTonne    Unit = "ton"
	UnitKilogram Unit = "kg"
	UnitLitre    Unit = "ltr"
	UnitLumpSum  Unit = "ls"
)

// Units lists the accepted units in display order.
var Units = []Term{
	{Key: string(UnitArea), Label: "م2", Aliases: []string{"م²", "متر مربع", "sqm", "area"}},
	{Key: string(UnitVolume), Label: "م3", Aliases: []string{"م³", "متر مكعب", "cum", "volume"}},
	{Key: string(UnitLength), Label: "م.ط", Aliases: []string{"متر طولي", "م", "rm", "length"}},
	{Key: string(UnitCount), Label: "عدد", Aliases: []string{"nos", "each", "count", "pcs"}},
	{Key: string(UnitTonne), Label: "طن", Aliases: []string{"t", "mt", "tonne"}},
	{Key: string(UnitKilogram), Label: "كجم", Aliases: []string{"كغ", "kilogram"}},
	{Key: string(UnitLitre), Label: "لتر", Aliases: []string{"l", "litre", "liter"}},
	{Key: string(UnitLumpSum), Label: "مقطوعية", Aliases: []string{"lump sum", "lumpsum", "lot"}},
}

// Category is a decomposition sub-list.
type Category string

const (
	CategoryMaterial  Category = "material"
	CategoryLabour    Category = "labour"
	CategoryEquipment Category = "equipment"
)

// Categories lists the decomposition sub-lists in rollup order.
var Categories = []Term{
	{Key: string(CategoryMaterial), Label: "المواد", Aliases: []string{"materials", "مواد"}},
	{Key: string(CategoryLabour), Label: "العمالة", Aliases: []string{"labor", "عمالة"}},
	{Key: string(CategoryEquipment), Label: "المعدات", Aliases: []string{"equipments", "معدات"}},
}

// Catalogue holds advisory sub-item names per category. Free text is
// accepted regardless.
var Catalogue = map[Category][]string{
	CategoryMaterial: {
		"أسمنت", "رمل", "حصى", "حديد تسليح", "طوب", "خرسانة جاهزة", "بلاط", "دهانات", "عزل مائي", "أخشاب",
	},
	CategoryLabour: {
		"عامل", "نجار", "حداد", "بناء", "مبلط", "دهان", "كهربائي", "سباك", "مشرف موقع",
	},
	CategoryEquipment: {
		"خلاطة", "حفار", "رافعة", "هزاز خرسانة", "شاحنة", "مولد كهربائي", "مضخة خرسانة", "سقالات",
	},
}

// Level is a 1..4 ordinal used for risk probability and impact.
type Level int

// Probability and impact vocabularies, index 0 is level 1.
var (
	ProbabilityLevels = []Term{
		{Key: "rare", Label: "نادر"},
		{Key: "possible", Label: "محتمل"},
		{Key: "likely", Label: "مرجح"},
		{Key: "almost_certain", Label: "شبه مؤكد", Aliases: []string{"almost-certain"}},
	}
	ImpactLevels = []Term{
		{Key: "low", Label: "منخفض"},
		{Key: "medium", Label: "متوسط"},
		{Key: "high", Label: "عالي", Aliases: []string{"مرتفع"}},
		{Key: "critical", Label: "حرج"},
	}
)

// RiskCategory is one of the five declared risk families.
type RiskCategory string

const (
	RiskTechnical     RiskCategory = "technical"
	RiskFinancial     RiskCategory = "financial"
	RiskContractual   RiskCategory = "contractual"
	RiskEnvironmental RiskCategory = "environmental"
	RiskOperational   RiskCategory = "operational"
)

var RiskCategories = []Term{
	{Key: string(RiskTechnical), Label: "فنية"},
	{Key: string(RiskFinancial), Label: "مالية"},
	{Key: string(RiskContractual), Label: "تعاقدية"},
	{Key: string(RiskEnvironmental), Label: "بيئية"},
	{Key: string(RiskOperational), Label: "تشغيلية"},
}

// StageTitles names the workflow stages 1..8.
var StageTitles = map[int]string{
	1: "بيانات المشروع",
	2: "جدول الكميات",
	3: "تحليل البنود",
	4: "التكاليف المباشرة",
	5: "التكاليف غير المباشرة",
	6: "تسعير المخاطر",
	7: "المحتوى المحلي والتسعير النهائي",
	8: "النتيجة المرجعية",
}

// ParseUnit resolves a key, Arabic label or alias to a Unit.
func ParseUnit(s string) (Unit, bool) {
	key, ok := lookup(Units, s)
	return Unit(key), ok
}

// Label returns the Arabic display label of u, or u itself if unknown.
func (u Unit) Label() string { return labelOf(Units, string(u)) }

// ParseCategory resolves a decomposition category.
func ParseCategory(s string) (Category, bool) {
	key, ok := lookup(Categories, s)
	return Category(key), ok
}

func (c Category) Label() string { return labelOf(Categories, string(c)) }

// Suggestions returns the advisory catalogue for c.
func (c Category) Suggestions() []string { return Catalogue[c] }

// ParseRiskCategory resolves a risk family.
func ParseRiskCategory(s string) (RiskCategory, bool) {
	key, ok := lookup(RiskCategories, s)
	return RiskCategory(key), ok
}

func (c RiskCategory) Label() string { return labelOf(RiskCategories, string(c)) }

// ParseProbability resolves a probability key or label to its level.
func ParseProbability(s string) (Level, bool) { return parseLevel(ProbabilityLevels, s) }

// ParseImpact resolves an impact key or label to its level.
func ParseImpact(s string) (Level, bool) { return parseLevel(ImpactLevels, s) }

// Valid reports whether l is within 1..4.
func (l Level) Valid() bool { return l >= 1 && l <= 4 }

// ProbabilityLabel and ImpactLabel return Arabic labels for a level.
func ProbabilityLabel(l Level) string { return levelLabel(ProbabilityLevels, l) }
func ImpactLabel(l Level) string      { return levelLabel(ImpactLevels, l) }

func parseLevel(terms []Term, s string) (Level, bool) {
	want := normalizeText(s)
	for i, t := range terms {
		if matches(t, want) {
			return Level(i + 1), true
		}
	}
	return 0, false
}

func levelLabel(terms []Term, l Level) string {
	if !l.Valid() {
		return ""
	}
	return terms[l-1].Label
}

func lookup(terms []Term, s string) (string, bool) {
	want := normalizeText(s)
	if want == "" {
		return "", false
	}
	for _, t := range terms {
		if matches(t, want) {
			return t.Key, true
		}
	}
	return "", false
}

func matches(t Term, normalized string) bool {
	if normalizeText(t.Key) == normalized || normalizeText(t.Label) == normalized {
		return true
	}
	for _, a := range t.Aliases {
		if normalizeText(a) == normalized {
			return true
		}
	}
	return false
}

func labelOf(terms []Term, key string) string {
	for _, t := range terms {
		if t.Key == key {
			return t.Label
		}
	}
	return key
}

// normalizeText folds a heading or enum value for comparison: NFKC, tatweel
// removed, whitespace collapsed, ASCII lower-cased. NFKC maps ² and ³ to
// digits, so "م²" and "م2" compare equal.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "ـ", "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
