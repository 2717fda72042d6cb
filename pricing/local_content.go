package pricing

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LocalContent holds the domestically sourced fraction of each cost component.
type LocalContent struct {
	Materials      float64 `json:"materials"`
	Equipment      float64 `json:"equipment"`
	Labour         float64 `json:"labour"`
	Subcontractors float64 `json:"subcontractors"`
}

func (lc LocalContent) Validate() error {
	err := validation.ValidateStruct(&lc,
		validation.Field(&lc.Materials, rateRules("نسبة المواد المحلية")...),
		validation.Field(&lc.Equipment, rateRules("نسبة المعدات المحلية")...),
		validation.Field(&lc.Labour, rateRules("نسبة العمالة المحلية")...),
		validation.Field(&lc.Subcontractors, rateRules("نسبة مقاولي الباطن المحليين")...),
	)
	return fromValidation(err, "نسب المحتوى المحلي يجب أن تكون بين 0 و 1")
}

// LocalContentPercent is 100 · Σ weight·fraction, kept within [0,100].
func LocalContentPercent(lc LocalContent, w LocalWeights) float64 {
	v := 100 * (w.Materials*lc.Materials +
		w.Equipment*lc.Equipment +
		w.Labour*lc.Labour +
		w.Subcontractors*lc.Subcontractors)
	switch {
	case v < 0 || v != v:
		return 0
	case v > 100:
		return 100
	}
	return v
}
