// Package pricing holds the tender pricing engine: the project aggregate,
// its bill of quantities and the arithmetic that turns it into a bid.
//
// Everything here is pure. Persistence, transport and presentation live in
// other packages and only see Project and Result.
package pricing

import (
	"encoding/json"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Project is the aggregate every pricing stage reads and writes.
type Project struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	Location     string        `json:"location"`
	StartDate    string        `json:"start_date,omitempty"`
	DurationDays int           `json:"duration_days"`
	Budget       float64       `json:"budget"`
	Description  string        `json:"description"`
	CreatedAt    time.Time     `json:"created_at"`
	Strategy     Strategy      `json:"strategy"`
	Indirect     IndirectRates `json:"indirect"`
	Risks        []Risk        `json:"risks"`
	LocalContent LocalContent  `json:"local_content"`

	items itemList
	rev   uint64
	cache struct {
		rev   uint64
		valid bool
		value float64
	}
}

// ProjectInput is the stage-1 entry form. Name and code may still be empty
// here; the stage controller refuses to leave stage 1 until both are set.
// A zero DurationDays means not yet entered.
type ProjectInput struct {
	Name         string   `json:"name"`
	Code         string   `json:"code"`
	Location     string   `json:"location"`
	StartDate    string   `json:"start_date"`
	DurationDays int      `json:"duration_days"`
	Budget       float64  `json:"budget"`
	Description  string   `json:"description"`
	Strategy     Strategy `json:"strategy"`
}

// ProjectFields names the envelope fields to replace; nil means keep.
type ProjectFields struct {
	Name         *string  `json:"name,omitempty"`
	Code         *string  `json:"code,omitempty"`
	Location     *string  `json:"location,omitempty"`
	StartDate    *string  `json:"start_date,omitempty"`
	DurationDays *int     `json:"duration_days,omitempty"`
	Budget       *float64 `json:"budget,omitempty"`
	Description  *string  `json:"description,omitempty"`
}

// Validate checks the numeric envelope and the start date format.
func (in ProjectInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.DurationDays, validation.Min(0).Error("مدة التنفيذ لا يمكن أن تكون سالبة، اتركها صفراً إن لم تحدد بعد")),
		validation.Field(&in.Budget, amountRules("الميزانية التقديرية")...),
		validation.Field(&in.StartDate, validation.Date(time.DateOnly).Error("تاريخ البدء يجب أن يكون بصيغة YYYY-MM-DD")),
	)
	return fromValidation(err, "بيانات المشروع غير صالحة")
}

// NewProject builds a project from in, seeding indirect rates from the
// strategy defaults (comprehensive when no strategy is given).
func NewProject(in ProjectInput, settings Settings, now time.Time) (*Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Location = strings.TrimSpace(in.Location)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Strategy == "" {
		in.Strategy = StrategyComprehensive
	}
	profile, ok := settings.Strategy(in.Strategy)
	if !ok {
		return nil, invalidInput("strategy", "استراتيجية التسعير غير معروفة")
	}
	p := &Project{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Code:         in.Code,
		Location:     in.Location,
		StartDate:    in.StartDate,
		DurationDays: in.DurationDays,
		Budget:       in.Budget,
		Description:  in.Description,
		CreatedAt:    now.UTC().Truncate(time.Second),
		Strategy:     profile.Tag,
		Indirect:     profile.Rates,
		Risks:        []Risk{},
	}
	p.items.init()
	return p, nil
}

// UpdateDetails replaces the named envelope fields.
func (p *Project) UpdateDetails(f ProjectFields) error {
	in := ProjectInput{
		Name: p.Name, Code: p.Code, Location: p.Location, StartDate: p.StartDate,
		DurationDays: p.DurationDays, Budget: p.Budget, Description: p.Description,
	}
	if f.Name != nil {
		in.Name = strings.TrimSpace(*f.Name)
	}
	if f.Code != nil {
		in.Code = strings.TrimSpace(*f.Code)
	}
	if f.Location != nil {
		in.Location = strings.TrimSpace(*f.Location)
	}
	if f.StartDate != nil {
		in.StartDate = strings.TrimSpace(*f.StartDate)
	}
	if f.DurationDays != nil {
		in.DurationDays = *f.DurationDays
	}
	if f.Budget != nil {
		in.Budget = *f.Budget
	}
	if f.Description != nil {
		in.Description = strings.TrimSpace(*f.Description)
	}
	if err := in.Validate(); err != nil {
		return err
	}
	p.Name, p.Code, p.Location, p.StartDate = in.Name, in.Code, in.Location, in.StartDate
	p.DurationDays, p.Budget, p.Description = in.DurationDays, in.Budget, in.Description
	return nil
}

// HasIdentity reports whether name and code are both set.
func (p *Project) HasIdentity() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Code) != ""
}

// Revision is bumped by every BoQ or decomposition mutation.
func (p *Project) Revision() uint64 { return p.rev }

func (p *Project) bump() { p.rev++ }

// AddItem appends a BoQ line and returns its id. Codes are not deduplicated.
func (p *Project) AddItem(in ItemInput) (string, error) {
	in.trim()
	if err := in.Validate(); err != nil {
		return "", err
	}
	it := in.build()
	p.items.push(it)
	p.bump()
	return it.ID, nil
}

// UpdateItem replaces the named fields of a line and recomputes its total.
func (p *Project) UpdateItem(id string, f ItemFields) error {
	it, ok := p.items.get(id)
	if !ok {
		return missingItem(id)
	}
	in := ItemInput{
		Code: it.Code, Description: it.Description, Unit: string(it.Unit),
		Quantity: it.Quantity, UnitPrice: it.UnitPrice, Category: it.Category,
	}
	if f.Code != nil {
		in.Code = *f.Code
	}
	if f.Description != nil {
		in.Description = *f.Description
	}
	if f.Unit != nil {
		in.Unit = *f.Unit
	}
	if f.Quantity != nil {
		in.Quantity = *f.Quantity
	}
	if f.UnitPrice != nil {
		in.UnitPrice = *f.UnitPrice
	}
	if f.Category != nil {
		in.Category = *f.Category
	}
	in.trim()
	if err := in.Validate(); err != nil {
		return err
	}
	unit, _ := ParseUnit(in.Unit)
	it.Code, it.Description, it.Unit, it.Category = in.Code, in.Description, unit, in.Category
	it.Quantity, it.UnitPrice = in.Quantity, in.UnitPrice
	it.recompute()
	p.bump()
	return nil
}

// DeleteItem removes a line together with its decomposition.
func (p *Project) DeleteItem(id string) error {
	if !p.items.remove(id) {
		return missingItem(id)
	}
	p.bump()
	return nil
}

// Item returns a copy of one line.
func (p *Project) Item(id string) (BoQItem, bool) {
	it, ok := p.items.get(id)
	if !ok {
		return BoQItem{}, false
	}
	return *it.clone(), true
}

// Items returns copies of all lines in BoQ order.
func (p *Project) Items() []BoQItem {
	out := make([]BoQItem, 0, p.items.len())
	p.items.each(func(it *BoQItem) { out = append(out, *it.clone()) })
	return out
}

// ItemCount is the number of BoQ lines.
func (p *Project) ItemCount() int { return p.items.len() }

// DirectCost is Σ total_price over the BoQ, in BoQ order. The value is
// cached against the revision token.
func (p *Project) DirectCost() float64 {
	if p.cache.valid && p.cache.rev == p.rev {
		return p.cache.value
	}
	var sum float64
	p.items.each(func(it *BoQItem) { sum += it.TotalPrice })
	p.cache.rev, p.cache.valid, p.cache.value = p.rev, true, sum
	return sum
}

// AddSubItem appends a decomposition line to item id, creating the
// decomposition on first use.
func (p *Project) AddSubItem(id string, category Category, name, unit string, quantity, unitPrice float64) error {
	it, ok := p.items.get(id)
	if !ok {
		return missingItem(id)
	}
	d := it.Decomposition.clone()
	if d == nil {
		d = &Decomposition{}
	}
	if err := d.Add(category, name, unit, quantity, unitPrice); err != nil {
		return err
	}
	it.Decomposition = d
	p.bump()
	return nil
}

// UpdateSubItem replaces fields of one decomposition line.
func (p *Project) UpdateSubItem(id string, category Category, index int, f SubItemFields) error {
	d, err := p.decomposition(id)
	if err != nil {
		return err
	}
	if err := d.Update(category, index, f); err != nil {
		return err
	}
	p.bump()
	return nil
}

// DeleteSubItem removes one decomposition line; callers must refetch
// indices afterwards.
func (p *Project) DeleteSubItem(id string, category Category, index int) error {
	d, err := p.decomposition(id)
	if err != nil {
		return err
	}
	if err := d.Delete(category, index); err != nil {
		return err
	}
	p.bump()
	return nil
}

// ClearDecomposition discards the decomposition of item id.
func (p *Project) ClearDecomposition(id string) error {
	it, ok := p.items.get(id)
	if !ok {
		return missingItem(id)
	}
	it.Decomposition = nil
	p.bump()
	return nil
}

// ApplyDecomposition rolls the decomposition of item id up into its unit price.
func (p *Project) ApplyDecomposition(id string) (Rollup, error) {
	it, ok := p.items.get(id)
	if !ok {
		return Rollup{}, missingItem(id)
	}
	r, err := it.Decomposition.ApplyTo(it)
	if err != nil {
		return Rollup{}, err
	}
	p.bump()
	return r, nil
}

func (p *Project) decomposition(id string) (*Decomposition, error) {
	it, ok := p.items.get(id)
	if !ok {
		return nil, missingItem(id)
	}
	if it.Decomposition == nil {
		return nil, newError(ErrNoDecomposition, "لا يوجد تحليل لهذا البند", map[string]any{"item_id": id})
	}
	return it.Decomposition, nil
}

// SetStrategy selects a strategy and resets the indirect rates to its defaults.
func (p *Project) SetStrategy(tag Strategy, settings Settings) error {
	profile, ok := settings.Strategy(tag)
	if !ok {
		return invalidInput("strategy", "استراتيجية التسعير غير معروفة")
	}
	p.Strategy = profile.Tag
	p.Indirect = profile.Rates
	return nil
}

// SetIndirectRates overrides the indirect rates; the strategy tag is kept.
func (p *Project) SetIndirectRates(r IndirectRates) error {
	if err := r.Validate(); err != nil {
		return err
	}
	p.Indirect = r
	return nil
}

// AddRisk validates and records a risk, returning its id.
func (p *Project) AddRisk(in RiskInput) (string, error) {
	r, err := NewRisk(in)
	if err != nil {
		return "", err
	}
	p.Risks = append(p.Risks, r)
	return r.ID, nil
}

// RemoveRisk drops the risk with id.
func (p *Project) RemoveRisk(id string) error {
	for i, r := range p.Risks {
		if r.ID == id {
			p.Risks = append(p.Risks[:i], p.Risks[i+1:]...)
			return nil
		}
	}
	return newError(ErrInvalidInput, "الخطر غير موجود", map[string]any{"risk_id": id})
}

// SetLocalContent records the local fractions.
func (p *Project) SetLocalContent(lc LocalContent) error {
	if err := lc.Validate(); err != nil {
		return err
	}
	p.LocalContent = lc
	return nil
}

// Clone returns a deep copy sharing nothing with p.
func (p *Project) Clone() *Project {
	c := &Project{
		ID: p.ID, Name: p.Name, Code: p.Code, Location: p.Location, StartDate: p.StartDate,
		DurationDays: p.DurationDays, Budget: p.Budget, Description: p.Description,
		CreatedAt: p.CreatedAt, Strategy: p.Strategy, Indirect: p.Indirect,
		Risks: append([]Risk{}, p.Risks...), LocalContent: p.LocalContent,
		rev: p.rev,
	}
	c.items.init()
	p.items.each(func(it *BoQItem) { c.items.push(it.clone()) })
	return c
}

type projectAlias Project

type projectJSON struct {
	*projectAlias
	Items []*BoQItem `json:"items"`
}

// MarshalJSON writes the project with its BoQ lines in order.
func (p *Project) MarshalJSON() ([]byte, error) {
	items := make([]*BoQItem, 0, p.items.len())
	p.items.each(func(it *BoQItem) { items = append(items, it) })
	return json.Marshal(projectJSON{projectAlias: (*projectAlias)(p), Items: items})
}

// UnmarshalJSON restores a project snapshot; totals are re-derived.
func (p *Project) UnmarshalJSON(b []byte) error {
	aux := projectJSON{projectAlias: (*projectAlias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.items = itemList{}
	p.items.init()
	for _, it := range aux.Items {
		if it == nil {
			continue
		}
		it.recompute()
		p.items.push(it)
	}
	if p.Risks == nil {
		p.Risks = []Risk{}
	}
	p.bump()
	return nil
}

func missingItem(id string) error {
	return newError(ErrInvalidInput, "البند غير موجود في جدول الكميات", map[string]any{"item_id": id})
}
