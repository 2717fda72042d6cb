package collections

import (
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
)

// ItemMatch is a BoQ line found across projects, used to recall rates that
// were priced before.
type ItemMatch struct {
	ProjectID   string  `json:"project_id"`
	ItemID      string  `json:"item_id"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	Category    string  `json:"category,omitempty"`
}

// SearchItems matches query against code and description of every mirrored
// BoQ line. An empty unit matches any unit.
func SearchItems(app core.App, query, unit string, limit int) ([]ItemMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []ItemMatch{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	filter := "(code ~ {:q} || description ~ {:q})"
	params := map[string]any{"q": query}
	if u, ok := pricing.ParseUnit(unit); ok {
		filter += " && unit = {:unit}"
		params["unit"] = string(u)
	}
	records, err := app.FindRecordsByFilter(ItemsCollection, filter, "-updated,sort_order", limit, 0, params)
	if err != nil {
		return nil, fmt.Errorf("items: search %q: %w", query, err)
	}
	out := make([]ItemMatch, 0, len(records))
	for _, rec := range records {
		out = append(out, ItemMatch{
			ProjectID:   rec.GetString("project_id"),
			ItemID:      rec.GetString("item_id"),
			Code:        rec.GetString("code"),
			Description: rec.GetString("description"),
			Unit:        rec.GetString("unit"),
			Quantity:    rec.GetFloat("quantity"),
			UnitPrice:   rec.GetFloat("unit_price"),
			TotalPrice:  rec.GetFloat("total_price"),
			Category:    rec.GetString("category"),
		})
	}
	return out, nil
}

// mirrorItems replaces the pricing_items rows of p with its current BoQ.
func mirrorItems(txApp core.App, p *pricing.Project) error {
	if err := deleteMirror(txApp, p.ID); err != nil {
		return err
	}
	col, err := txApp.FindCollectionByNameOrId(ItemsCollection)
	if err != nil {
		return fmt.Errorf("items: could not find collection: %w", err)
	}
	for i, it := range p.Items() {
		rec := core.NewRecord(col)
		rec.Set("project_id", p.ID)
		rec.Set("item_id", it.ID)
		rec.Set("sort_order", i+1)
		rec.Set("code", it.Code)
		rec.Set("description", it.Description)
		rec.Set("unit", string(it.Unit))
		rec.Set("quantity", it.Quantity)
		rec.Set("unit_price", it.UnitPrice)
		rec.Set("total_price", it.TotalPrice)
		rec.Set("category", it.Category)
		if err := txApp.Save(rec); err != nil {
			return fmt.Errorf("items: save %s/%s: %w", p.ID, it.ID, err)
		}
	}
	return nil
}

func deleteMirror(txApp core.App, projectID string) error {
	existing, err := txApp.FindRecordsByFilter(
		ItemsCollection,
		"project_id = {:projectId}",
		"", 0, 0,
		map[string]any{"projectId": projectID},
	)
	if err != nil {
		return fmt.Errorf("items: find %s: %w", projectID, err)
	}
	for _, rec := range existing {
		if err := txApp.Delete(rec); err != nil {
			return fmt.Errorf("items: delete %s: %w", rec.Id, err)
		}
	}
	return nil
}
