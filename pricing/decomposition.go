package pricing

import (
	"fmt"
	"strings"
)

// SubItem is one material, labour or equipment line of a decomposition.
type SubItem struct {
	Name      string  `json:"name"`
	Unit      string  `json:"unit,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// SubItemFields names the fields to replace on a sub-item; nil means keep.
type SubItemFields struct {
	Name      *string  `json:"name,omitempty"`
	Unit      *string  `json:"unit,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

// Decomposition breaks one BoQ line into three ordered sub-lists. Indices
// are positional; deleting an entry shifts the ones after it.
type Decomposition struct {
	Materials []SubItem `json:"materials"`
	Labour    []SubItem `json:"labour"`
	Equipment []SubItem `json:"equipment"`
}

// Rollup is the per-category and grand total of a decomposition.
type Rollup struct {
	MaterialTotal  float64 `json:"material_total"`
	LabourTotal    float64 `json:"labour_total"`
	EquipmentTotal float64 `json:"equipment_total"`
	GrandTotal     float64 `json:"grand_total"`
}

// Add appends a sub-item to category.
func (d *Decomposition) Add(category Category, name, unit string, quantity, unitPrice float64) error {
	list, err := d.list(category)
	if err != nil {
		return err
	}
	s := SubItem{Name: strings.TrimSpace(name), Unit: strings.TrimSpace(unit), Quantity: quantity, UnitPrice: unitPrice}
	if err := validateSubItem(s); err != nil {
		return err
	}
	s.Total = s.Quantity * s.UnitPrice
	*list = append(*list, s)
	return nil
}

// Update replaces the named fields of the sub-item at index.
func (d *Decomposition) Update(category Category, index int, f SubItemFields) error {
	list, err := d.list(category)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*list) {
		return badIndex(category, index, len(*list))
	}
	s := (*list)[index]
	if f.Name != nil {
		s.Name = strings.TrimSpace(*f.Name)
	}
	if f.Unit != nil {
		s.Unit = strings.TrimSpace(*f.Unit)
	}
	if f.Quantity != nil {
		s.Quantity = *f.Quantity
	}
	if f.UnitPrice != nil {
		s.UnitPrice = *f.UnitPrice
	}
	if err := validateSubItem(s); err != nil {
		return err
	}
	s.Total = s.Quantity * s.UnitPrice
	(*list)[index] = s
	return nil
}

// Delete removes the sub-item at index. Later indices shift down by one.
func (d *Decomposition) Delete(category Category, index int) error {
	list, err := d.list(category)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*list) {
		return badIndex(category, index, len(*list))
	}
	*list = append((*list)[:index], (*list)[index+1:]...)
	return nil
}

// Items returns the sub-list of category.
func (d *Decomposition) Items(category Category) []SubItem {
	list, err := d.list(category)
	if err != nil {
		return nil
	}
	return *list
}

// IsEmpty reports whether all three sub-lists are empty.
func (d *Decomposition) IsEmpty() bool {
	return d == nil || len(d.Materials)+len(d.Labour)+len(d.Equipment) == 0
}

// Rollup sums quantity · unit price per category, in list order.
func (d *Decomposition) Rollup() Rollup {
	var r Rollup
	if d == nil {
		return r
	}
	r.MaterialTotal = sumSubItems(d.Materials)
	r.LabourTotal = sumSubItems(d.Labour)
	r.EquipmentTotal = sumSubItems(d.Equipment)
	r.GrandTotal = r.MaterialTotal + r.LabourTotal + r.EquipmentTotal
	return r
}

// ApplyTo replaces item's unit price with grand_total / quantity. When the
// item quantity is not positive the unit price is left as it is.
func (d *Decomposition) ApplyTo(item *BoQItem) (Rollup, error) {
	if d.IsEmpty() {
		return Rollup{}, newError(ErrNoDecomposition, "لا يوجد تحليل لهذا البند لتطبيقه", map[string]any{"item_id": item.ID})
	}
	r := d.Rollup()
	if !isFinite(r.GrandTotal) {
		return Rollup{}, invalidInput("decomposition", "إجمالي التحليل يتجاوز الحد المسموح")
	}
	if item.Quantity > 0 {
		price := r.GrandTotal / item.Quantity
		if !isFinite(price) {
			return Rollup{}, invalidInput("decomposition", "إجمالي التحليل يتجاوز الحد المسموح")
		}
		item.UnitPrice = price
	}
	item.recompute()
	return r, nil
}

func (d *Decomposition) clone() *Decomposition {
	if d == nil {
		return nil
	}
	return &Decomposition{
		Materials: append([]SubItem(nil), d.Materials...),
		Labour:    append([]SubItem(nil), d.Labour...),
		Equipment: append([]SubItem(nil), d.Equipment...),
	}
}

func (d *Decomposition) list(category Category) (*[]SubItem, error) {
	switch category {
	case CategoryMaterial:
		return &d.Materials, nil
	case CategoryLabour:
		return &d.Labour, nil
	case CategoryEquipment:
		return &d.Equipment, nil
	}
	return nil, invalidInput("category", "فئة التحليل غير معروفة")
}

func sumSubItems(items []SubItem) float64 {
	var sum float64
	for _, s := range items {
		sum += s.Quantity * s.UnitPrice
	}
	return sum
}

func validateSubItem(s SubItem) error {
	switch {
	case s.Name == "":
		return invalidInput("name", "اسم البند الفرعي مطلوب")
	case s.Quantity < 0:
		return invalidInput("quantity", "الكمية لا يمكن أن تكون سالبة")
	case s.UnitPrice < 0:
		return invalidInput("unit_price", "سعر الوحدة لا يمكن أن يكون سالباً")
	case !isFinite(s.Quantity * s.UnitPrice):
		return invalidInput("unit_price", "إجمالي البند الفرعي يتجاوز الحد المسموح")
	}
	return nil
}

func badIndex(category Category, index, n int) error {
	return newError(ErrInvalidInput, "رقم البند الفرعي غير موجود", map[string]any{
		"category": string(category),
		"index":    index,
		"len":      n,
		"hint":     fmt.Sprintf("valid range 0..%d", n-1),
	})
}
