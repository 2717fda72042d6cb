package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// TimestampLayout is the wire format of result timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp marshals as "YYYY-MM-DD HH:MM:SS".
type Timestamp struct{ time.Time }

func (t Timestamp) String() string { return t.Time.Format(TimestampLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Status is the lifecycle of a pricing run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// PricedItem is one BoQ line as submitted. FinalUnitPrice spreads indirect
// and risk costs over the line in proportion to its direct cost.
type PricedItem struct {
	ItemID          string  `json:"item_id"`
	Code            string  `json:"code"`
	Description     string  `json:"description"`
	Unit            Unit    `json:"unit"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TotalPrice      float64 `json:"total_price"`
	FinalUnitPrice  float64 `json:"final_unit_price"`
	FinalTotalPrice float64 `json:"final_total_price"`
}

// DirectCosts is the direct-cost block of a result.
type DirectCosts struct {
	Items []PricedItem `json:"items"`
	Total float64      `json:"total"`
}

// Summary is the headline block of a result.
type Summary struct {
	ProjectName         string       `json:"project_name"`
	ProjectCode         string       `json:"project_code"`
	DirectTotal         float64      `json:"direct_total"`
	IndirectTotal       float64      `json:"indirect_total"`
	RiskTotal           float64      `json:"risk_total"`
	Subtotal            float64      `json:"subtotal"`
	VATRate             float64      `json:"vat_rate"`
	VATAmount           float64      `json:"vat_amount"`
	FinalPrice          float64      `json:"final_price"`
	LocalContent        LocalContent `json:"local_content"`
	LocalContentPercent float64      `json:"local_content_percent"`
	Notes               []string     `json:"notes"`
}

// Result is the immutable output of a pricing run. It owns copies of every
// figure it reports and is reproducible without the live project.
type Result struct {
	ProjectID string            `json:"project_id"`
	Strategy  Strategy          `json:"strategy"`
	StartTime Timestamp         `json:"pricing_start_time"`
	EndTime   Timestamp         `json:"pricing_end_time"`
	Status    Status            `json:"status"`
	Direct    DirectCosts       `json:"direct_costs"`
	Indirect  IndirectBreakdown `json:"indirect_costs"`
	Risk      RiskBreakdown     `json:"risk_costs"`
	Summary   Summary           `json:"summary"`
}

// Complete reports whether the run finished successfully.
func (r *Result) Complete() bool { return r != nil && r.Status == StatusComplete }

// Clock returns the current time; tests pin it.
type Clock func() time.Time

// Assemble prices p. The BoQ must not be empty. The returned result has
// status complete, or failed together with a non-nil error when a figure
// turns out non-finite.
func Assemble(p *Project, settings Settings, now Clock) (*Result, error) {
	if now == nil {
		now = time.Now
	}
	if p.ItemCount() == 0 {
		return nil, StageBlocked(2, "boq_not_empty", "لا يمكن التسعير قبل إدخال بند واحد على الأقل في جدول الكميات")
	}
	if err := p.Indirect.Validate(); err != nil {
		return nil, err
	}
	profile, ok := settings.Strategy(p.Strategy)
	if !ok {
		return nil, invalidInput("strategy", "استراتيجية التسعير غير معروفة")
	}

	res := &Result{
		ProjectID: p.ID,
		Strategy:  p.Strategy,
		StartTime: Timestamp{now().UTC().Truncate(time.Second)},
		Status:    StatusRunning,
	}

	d := p.DirectCost()
	indirect := ComputeIndirect(d, p.Indirect)
	risk := ComputeRisk(d, p.Risks, profile.RiskFactor)
	subtotal := d + indirect.Total + risk.Total
	vat := subtotal * settings.VATRate

	markup := 1.0
	if d > 0 {
		markup = subtotal / d
	}
	items := make([]PricedItem, 0, p.ItemCount())
	p.items.each(func(it *BoQItem) {
		items = append(items, PricedItem{
			ItemID:          it.ID,
			Code:            it.Code,
			Description:     it.Description,
			Unit:            it.Unit,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			TotalPrice:      it.TotalPrice,
			FinalUnitPrice:  it.UnitPrice * markup,
			FinalTotalPrice: it.TotalPrice * markup,
		})
	})

	res.Direct = DirectCosts{Items: items, Total: d}
	res.Indirect = indirect
	res.Risk = risk
	res.Summary = Summary{
		ProjectName:         p.Name,
		ProjectCode:         p.Code,
		DirectTotal:         d,
		IndirectTotal:       indirect.Total,
		RiskTotal:           risk.Total,
		Subtotal:            subtotal,
		VATRate:             settings.VATRate,
		VATAmount:           vat,
		FinalPrice:          subtotal + vat,
		LocalContent:        p.LocalContent,
		LocalContentPercent: LocalContentPercent(p.LocalContent, settings.LocalWeights),
		Notes:               strategyNotes(profile, p),
	}
	res.EndTime = Timestamp{now().UTC().Truncate(time.Second)}

	if bad := nonFinite(res.Summary); bad != "" {
		res.Status = StatusFailed
		return res, newError(ErrInvalidInput, "تعذر إكمال التسعير بسبب قيمة رقمية غير صالحة", map[string]any{"field": bad})
	}
	res.Status = StatusComplete
	return res, nil
}

// strategyNotes draws the advisory notes for profile from the static table,
// plus a couple of checks on the project itself.
func strategyNotes(profile StrategyProfile, p *Project) []string {
	notes := append([]string{}, profile.Notes...)
	if len(p.Risks) == 0 {
		notes = append(notes, "لم يتم تسجيل أي مخاطر، يُنصح بمراجعة سجل المخاطر قبل التقديم")
	}
	if p.Budget > 0 {
		if d := p.DirectCost(); d > p.Budget {
			notes = append(notes, "التكلفة المباشرة تتجاوز الميزانية التقديرية للمشروع")
		}
	}
	return notes
}

func nonFinite(s Summary) string {
	fields := []struct {
		name string
		v    float64
	}{
		{"direct_total", s.DirectTotal},
		{"indirect_total", s.IndirectTotal},
		{"risk_total", s.RiskTotal},
		{"vat_amount", s.VATAmount},
		{"final_price", s.FinalPrice},
	}
	var bad []string
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			bad = append(bad, f.name)
		}
	}
	return strings.Join(bad, ",")
}

// SameFigures reports whether two results carry identical numbers, ignoring
// timestamps.
func SameFigures(a, b *Result) bool {
	if a == nil || b == nil {
		return a == b
	}
	ca, cb := *a, *b
	ca.StartTime, ca.EndTime = Timestamp{}, Timestamp{}
	cb.StartTime, cb.EndTime = Timestamp{}, Timestamp{}
	ja, errA := json.Marshal(ca)
	jb, errB := json.Marshal(cb)
	return errA == nil && errB == nil && string(ja) == string(jb)
}
