package services

import "tenderpricing/pricing"

// StrategyOption is one selectable pricing strategy with its default rates.
type StrategyOption struct {
	Tag        pricing.Strategy      `json:"tag"`
	Label      string                `json:"label"`
	Rates      pricing.IndirectRates `json:"rates"`
	RiskFactor float64               `json:"risk_factor"`
}

// Vocabulary bundles every closed list an entry form needs.
type Vocabulary struct {
	Units          []pricing.Term            `json:"units"`
	Categories     []pricing.Term            `json:"categories"`
	Catalogue      map[string][]string       `json:"catalogue"`
	Probability    []pricing.Term            `json:"probability"`
	Impact         []pricing.Term            `json:"impact"`
	RiskCategories []pricing.Term            `json:"risk_categories"`
	Strategies     []StrategyOption          `json:"strategies"`
	Stages         map[int]string            `json:"stages"`
	LocalWeights   pricing.LocalWeights      `json:"local_weights"`
	Columns        map[pricing.Lang][]string `json:"columns"`
}

// VocabularyOptions returns the dropdown lists for the given settings.
func VocabularyOptions(settings pricing.Settings) Vocabulary {
	v := Vocabulary{
		Units:          pricing.Units,
		Categories:     pricing.Categories,
		Catalogue:      make(map[string][]string, len(pricing.Catalogue)),
		Probability:    pricing.ProbabilityLevels,
		Impact:         pricing.ImpactLevels,
		RiskCategories: pricing.RiskCategories,
		Stages:         pricing.StageTitles,
		LocalWeights:   settings.LocalWeights,
		Columns: map[pricing.Lang][]string{
			pricing.LangEnglish: pricing.Headings(pricing.LangEnglish),
			pricing.LangArabic:  pricing.Headings(pricing.LangArabic),
		},
	}
	for cat, names := range pricing.Catalogue {
		v.Catalogue[string(cat)] = names
	}
	for _, tag := range settings.StrategyTags() {
		p, _ := settings.Strategy(tag)
		v.Strategies = append(v.Strategies, StrategyOption{
			Tag:        tag,
			Label:      p.Label,
			Rates:      p.Rates,
			RiskFactor: p.RiskFactor,
		})
	}
	return v
}
