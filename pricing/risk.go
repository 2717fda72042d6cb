package pricing

import (
	"encoding/json"
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// maxRiskScore is the largest probability × impact product.
const maxRiskScore = 16

// Risk is a declared project risk.
type Risk struct {
	ID          string       `json:"id"`
	Category    RiskCategory `json:"category"`
	Description string       `json:"description"`
	Probability Level        `json:"probability"`
	Impact      Level        `json:"impact"`
	CostImpact  float64      `json:"cost_impact"`
	Response    string       `json:"response,omitempty"`
	Owner       string       `json:"owner,omitempty"`
}

// RiskInput is the entry form of a risk.
type RiskInput struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Probability Level   `json:"probability"`
	Impact      Level   `json:"impact"`
	CostImpact  float64 `json:"cost_impact"`
	Response    string  `json:"response"`
	Owner       string  `json:"owner"`
}

// UnmarshalJSON accepts each level as a number 1..4 or as a key or Arabic
// label from the probability and impact vocabularies.
func (in *RiskInput) UnmarshalJSON(data []byte) error {
	type plain RiskInput
	aux := struct {
		*plain
		Probability json.RawMessage `json:"probability"`
		Impact      json.RawMessage `json:"impact"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if in.Probability, err = decodeLevel(aux.Probability, "probability", "درجة الاحتمال غير معروفة", ParseProbability); err != nil {
		return err
	}
	if in.Impact, err = decodeLevel(aux.Impact, "impact", "درجة التأثير غير معروفة", ParseImpact); err != nil {
		return err
	}
	return nil
}

// decodeLevel reads a level written as a number, numeric text or a
// vocabulary term. Range is left to NewRisk.
func decodeLevel(raw json.RawMessage, field, message string, parse func(string) (Level, bool)) (Level, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, invalidInput(field, message)
	}
	if text, ok := v.(string); ok {
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
		if l, ok := parse(text); ok {
			return l, nil
		}
		v = text
	}
	n, err := toNumber(v)
	if err != nil || n != math.Trunc(n) || math.Abs(n) > maxRiskScore {
		return 0, invalidInput(field, message)
	}
	return Level(n), nil
}

// NewRisk validates in and builds a Risk with a fresh id. Levels outside
// 1..4 are rejected; the cost-impact fraction is clamped to [0,1].
func NewRisk(in RiskInput) (Risk, error) {
	in.Description = strings.TrimSpace(in.Description)
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Category,
			validation.Required.Error("فئة الخطر مطلوبة"),
			validation.By(func(v any) error {
				if _, ok := ParseRiskCategory(v.(string)); !ok {
					return validation.NewError("risk_category", "فئة الخطر غير معروفة")
				}
				return nil
			})),
		validation.Field(&in.Description, validation.Required.Error("وصف الخطر مطلوب")),
		validation.Field(&in.Probability, validation.Required.Error("درجة الاحتمال مطلوبة"), validation.Min(Level(1)).Error("درجة الاحتمال يجب أن تكون من 1 إلى 4"), validation.Max(Level(4)).Error("درجة الاحتمال يجب أن تكون من 1 إلى 4")),
		validation.Field(&in.Impact, validation.Required.Error("درجة التأثير مطلوبة"), validation.Min(Level(1)).Error("درجة التأثير يجب أن تكون من 1 إلى 4"), validation.Max(Level(4)).Error("درجة التأثير يجب أن تكون من 1 إلى 4")),
	)
	if err := fromValidation(err, "بيانات الخطر غير صالحة"); err != nil {
		return Risk{}, err
	}
	cat, _ := ParseRiskCategory(in.Category)
	return Risk{
		ID:          uuid.NewString(),
		Category:    cat,
		Description: in.Description,
		Probability: in.Probability,
		Impact:      in.Impact,
		CostImpact:  clampUnit(in.CostImpact),
		Response:    strings.TrimSpace(in.Response),
		Owner:       strings.TrimSpace(in.Owner),
	}, nil
}

// Score is probability × impact, 1..16.
func (r Risk) Score() int { return int(r.Probability) * int(r.Impact) }

// RiskCharge is the priced contribution of one risk.
type RiskCharge struct {
	RiskID      string       `json:"risk_id"`
	Category    RiskCategory `json:"category"`
	Description string       `json:"description"`
	Probability Level        `json:"probability"`
	Impact      Level        `json:"impact"`
	Score       int          `json:"score"`
	CostImpact  float64      `json:"cost_impact"`
	Raw         float64      `json:"raw_charge"`
	Applied     float64      `json:"applied_charge"`
}

// RiskBreakdown is the risk block of a result.
type RiskBreakdown struct {
	StrategyFactor float64      `json:"strategy_factor"`
	Items          []RiskCharge `json:"items"`
	Total          float64      `json:"total"`
}

// ChargeRisk prices r against direct cost d:
// raw = d · cost_impact · score/16, applied = raw · factor.
func ChargeRisk(d float64, r Risk, factor float64) RiskCharge {
	score := r.Score()
	raw := d * r.CostImpact * float64(score) / maxRiskScore
	return RiskCharge{
		RiskID:      r.ID,
		Category:    r.Category,
		Description: r.Description,
		Probability: r.Probability,
		Impact:      r.Impact,
		Score:       score,
		CostImpact:  r.CostImpact,
		Raw:         raw,
		Applied:     raw * factor,
	}
}

// ComputeRisk prices all risks in declaration order.
func ComputeRisk(d float64, risks []Risk, factor float64) RiskBreakdown {
	b := RiskBreakdown{StrategyFactor: factor, Items: make([]RiskCharge, 0, len(risks))}
	for _, r := range risks {
		c := ChargeRisk(d, r, factor)
		b.Items = append(b.Items, c)
		b.Total += c.Applied
	}
	return b
}

// RiskMatrix counts risks per [probability-1][impact-1] cell.
func RiskMatrix(risks []Risk) [4][4]int {
	var m [4][4]int
	for _, r := range risks {
		if r.Probability.Valid() && r.Impact.Valid() {
			m[r.Probability-1][r.Impact-1]++
		}
	}
	return m
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
