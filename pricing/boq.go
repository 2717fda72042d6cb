package pricing

import (
	"container/list"
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Field is an unrecognised import column carried through to export.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BoQItem is one priced line of the bill of quantities.
type BoQItem struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	Description   string         `json:"description"`
	Unit          Unit           `json:"unit"`
	Quantity      float64        `json:"quantity"`
	UnitPrice     float64        `json:"unit_price"`
	TotalPrice    float64        `json:"total_price"`
	Category      string         `json:"category,omitempty"`
	Decomposition *Decomposition `json:"decomposition,omitempty"`
	Extra         []Field        `json:"extra,omitempty"`
}

// recompute keeps total_price derived from quantity and unit price.
func (it *BoQItem) recompute() { it.TotalPrice = it.Quantity * it.UnitPrice }

func (it *BoQItem) clone() *BoQItem {
	c := *it
	c.Decomposition = it.Decomposition.clone()
	c.Extra = append([]Field(nil), it.Extra...)
	return &c
}

// ItemInput is the entry form of a BoQ line.
type ItemInput struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Category    string  `json:"category"`
}

// ItemFields names the fields to replace on a BoQ line; nil means keep.
type ItemFields struct {
	Code        *string  `json:"code,omitempty"`
	Description *string  `json:"description,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

func (in *ItemInput) trim() {
	in.Code = strings.TrimSpace(in.Code)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.TrimSpace(in.Unit)
	in.Category = strings.TrimSpace(in.Category)
}

// Validate checks required text, a known unit and non-negative numbers.
func (in ItemInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Code, validation.Required.Error("كود البند مطلوب")),
		validation.Field(&in.Description, validation.Required.Error("وصف البند مطلوب")),
		validation.Field(&in.Unit,
			validation.Required.Error("الوحدة مطلوبة"),
			validation.By(func(v any) error {
				if _, ok := ParseUnit(v.(string)); !ok {
					return validation.NewError("unit", "الوحدة غير معروفة")
				}
				return nil
			})),
		validation.Field(&in.Quantity, amountRules("الكمية")...),
		validation.Field(&in.UnitPrice, append(amountRules("سعر الوحدة"),
			validation.By(func(any) error {
				if !isFinite(in.Quantity * in.UnitPrice) {
					return validation.NewError("total_finite", "إجمالي البند يتجاوز الحد المسموح")
				}
				return nil
			}))...),
	)
	return fromValidation(err, "بيانات البند غير صالحة")
}

func (in ItemInput) build() *BoQItem {
	unit, _ := ParseUnit(in.Unit)
	it := &BoQItem{
		ID:          uuid.NewString(),
		Code:        in.Code,
		Description: in.Description,
		Unit:        unit,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Category:    in.Category,
	}
	it.recompute()
	return it
}

func amountRules(label string) []validation.Rule {
	return []validation.Rule{
		validation.Min(0.0).Error(label + " لا يمكن أن تكون سالبة"),
		validation.By(func(v any) error {
			if f, ok := v.(float64); ok && !isFinite(f) {
				return validation.NewError("finite", label+" يجب أن تكون رقماً صحيحاً")
			}
			return nil
		}),
	}
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// itemList keeps BoQ lines in insertion order with O(1) lookup and removal
// by id.
type itemList struct {
	order *list.List
	index map[string]*list.Element
}

func (l *itemList) init() {
	if l.order == nil {
		l.order = list.New()
		l.index = make(map[string]*list.Element)
	}
}

func (l *itemList) push(it *BoQItem) {
	l.init()
	l.index[it.ID] = l.order.PushBack(it)
}

func (l *itemList) get(id string) (*BoQItem, bool) {
	if l.index == nil {
		return nil, false
	}
	e, ok := l.index[id]
	if !ok {
		return nil, false
	}
	return e.Value.(*BoQItem), true
}

func (l *itemList) remove(id string) bool {
	if l.index == nil {
		return false
	}
	e, ok := l.index[id]
	if !ok {
		return false
	}
	l.order.Remove(e)
	delete(l.index, id)
	return true
}

func (l *itemList) len() int {
	if l.order == nil {
		return 0
	}
	return l.order.Len()
}

func (l *itemList) each(fn func(*BoQItem)) {
	if l.order == nil {
		return
	}
	for e := l.order.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*BoQItem))
	}
}
