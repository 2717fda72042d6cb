package pricing

import (
	"fmt"
	"sort"
)

// Strategy tags a pricing posture. The tag is kept for audit; the rates on
// the project are the source of truth once selected.
type Strategy string

const (
	StrategyComprehensive Strategy = "comprehensive"
	StrategyCompetitive   Strategy = "competitive"
	StrategyBalanced      Strategy = "balanced"
)

// DefaultVATRate is the VAT applied to the subtotal.
const DefaultVATRate = 0.15

// StrategyProfile is the defaults record behind a strategy tag.
type StrategyProfile struct {
	Tag        Strategy      `json:"tag"`
	Label      string        `json:"label"`
	Rates      IndirectRates `json:"rates"`
	RiskFactor float64       `json:"risk_factor"`
	Notes      []string      `json:"notes"`
}

// LocalWeights are the regulator-defined component weights for local content.
type LocalWeights struct {
	Materials      float64 `json:"materials"`
	Equipment      float64 `json:"equipment"`
	Labour         float64 `json:"labour"`
	Subcontractors float64 `json:"subcontractors"`
}

// DefaultLocalWeights is the fixed scoring used by the regulator.
var DefaultLocalWeights = LocalWeights{Materials: 0.40, Equipment: 0.20, Labour: 0.30, Subcontractors: 0.10}

// Settings is the single configuration record of the engine.
type Settings struct {
	VATRate      float64                      `json:"vat_rate"`
	Strategies   map[Strategy]StrategyProfile `json:"strategies"`
	LocalWeights LocalWeights                 `json:"local_weights"`
}

// DefaultSettings returns the built-in constants block.
func DefaultSettings() Settings {
	return Settings{
		VATRate: DefaultVATRate,
		Strategies: map[Strategy]StrategyProfile{
			StrategyComprehensive: {
				Tag:        StrategyComprehensive,
				Label:      "شامل",
				Rates:      IndirectRates{Overhead: 0.15, Profit: 0.10, Administrative: 0.05, Mobilisation: 0.03, BondsInsurance: 0.02},
				RiskFactor: 1.00,
				Notes: []string{
					"تسعير شامل يغطي كامل المخاطر المحددة دون خصم",
					"مناسب للمشاريع ذات الغموض الفني أو الشروط التعاقدية المشددة",
				},
			},
			StrategyCompetitive: {
				Tag:        StrategyCompetitive,
				Label:      "تنافسي",
				Rates:      IndirectRates{Overhead: 0.12, Profit: 0.07, Administrative: 0.04, Mobilisation: 0.03, BondsInsurance: 0.02},
				RiskFactor: 0.70,
				Notes: []string{
					"هامش ربح منخفض لرفع فرص الترسية",
					"يتحمل المقاول جزءاً من المخاطر، يلزم ضبط التكاليف أثناء التنفيذ",
				},
			},
			StrategyBalanced: {
				Tag:        StrategyBalanced,
				Label:      "متوازن",
				Rates:      IndirectRates{Overhead: 0.13, Profit: 0.08, Administrative: 0.045, Mobilisation: 0.03, BondsInsurance: 0.02},
				RiskFactor: 0.85,
				Notes: []string{
					"توازن بين القدرة التنافسية وتغطية المخاطر",
				},
			},
		},
		LocalWeights: DefaultLocalWeights,
	}
}

// Strategy returns the profile for tag.
func (s Settings) Strategy(tag Strategy) (StrategyProfile, bool) {
	p, ok := s.Strategies[tag]
	return p, ok
}

// StrategyTags returns the configured tags in a stable order.
func (s Settings) StrategyTags() []Strategy {
	tags := make([]Strategy, 0, len(s.Strategies))
	for t := range s.Strategies {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Validate checks the constants block once at load time.
func (s Settings) Validate() error {
	if s.VATRate < 0 || s.VATRate > 1 {
		return fmt.Errorf("vat rate %v out of [0,1]", s.VATRate)
	}
	if len(s.Strategies) == 0 {
		return fmt.Errorf("no pricing strategies configured")
	}
	for tag, p := range s.Strategies {
		if err := p.Rates.Validate(); err != nil {
			return fmt.Errorf("strategy %q: %w", tag, err)
		}
		if p.RiskFactor <= 0 || p.RiskFactor > 1 {
			return fmt.Errorf("strategy %q: risk factor %v out of (0,1]", tag, p.RiskFactor)
		}
	}
	w := s.LocalWeights
	if sum := w.Materials + w.Equipment + w.Labour + w.Subcontractors; sum < 0.999999 || sum > 1.000001 {
		return fmt.Errorf("local content weights sum to %v, want 1", sum)
	}
	return nil
}
