package pricing

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IndirectRates are multiplicative uplifts on direct cost, each in [0,1].
// They need not sum to 1.
type IndirectRates struct {
	Overhead       float64 `json:"overhead"`
	Profit         float64 `json:"profit"`
	Administrative float64 `json:"administrative"`
	Mobilisation   float64 `json:"mobilisation"`
	BondsInsurance float64 `json:"bonds_insurance"`
}

// Validate checks every rate lies in [0,1].
func (r IndirectRates) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Overhead, rateRules("نسبة المصاريف العامة")...),
		validation.Field(&r.Profit, rateRules("نسبة الربح")...),
		validation.Field(&r.Administrative, rateRules("نسبة المصاريف الإدارية")...),
		validation.Field(&r.Mobilisation, rateRules("نسبة التجهيز والتعبئة")...),
		validation.Field(&r.BondsInsurance, rateRules("نسبة الضمانات والتأمين")...),
	)
	return fromValidation(err, "نسب التكاليف غير المباشرة يجب أن تكون بين 0 و 1")
}

// Sum is the combined uplift rate.
func (r IndirectRates) Sum() float64 {
	return r.Overhead + r.Profit + r.Administrative + r.Mobilisation + r.BondsInsurance
}

// IndirectBreakdown is the indirect-cost block of a result.
type IndirectBreakdown struct {
	Rates          IndirectRates `json:"rates"`
	Overhead       float64       `json:"overhead"`
	Profit         float64       `json:"profit"`
	Administrative float64       `json:"administrative"`
	Mobilisation   float64       `json:"mobilisation"`
	BondsInsurance float64       `json:"bonds_insurance"`
	Total          float64       `json:"total"`
}

// ComputeIndirect applies rates to a direct cost d.
func ComputeIndirect(d float64, r IndirectRates) IndirectBreakdown {
	b := IndirectBreakdown{
		Rates:          r,
		Overhead:       d * r.Overhead,
		Profit:         d * r.Profit,
		Administrative: d * r.Administrative,
		Mobilisation:   d * r.Mobilisation,
		BondsInsurance: d * r.BondsInsurance,
	}
	b.Total = b.Overhead + b.Profit + b.Administrative + b.Mobilisation + b.BondsInsurance
	return b
}

func rateRules(label string) []validation.Rule {
	return []validation.Rule{
		validation.Min(0.0).Error(label + " لا يمكن أن تكون سالبة"),
		validation.Max(1.0).Error(label + " لا يمكن أن تتجاوز 1"),
	}
}

// fromValidation turns ozzo errors into an InvalidInput *Error whose details
// map each failing field to its message.
func fromValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	details := map[string]any{}
	if errs, ok := err.(validation.Errors); ok {
		fields := make(map[string]string, len(errs))
		for k, v := range errs {
			fields[k] = v.Error()
		}
		details["fields"] = fields
	} else {
		details["reason"] = err.Error()
	}
	return newError(ErrInvalidInput, message, details)
}
