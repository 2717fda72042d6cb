package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"
)

// Collection names.
const (
	SessionsCollection = "pricing_sessions"
	HistoryCollection  = "saved_pricing"
	ItemsCollection    = "pricing_items"
)

const payloadMaxSize = 16 << 20

// Setup programmatically creates/ensures the pricing_sessions, saved_pricing
// and pricing_items collections exist.
func Setup(app core.App) {
	ensureCollection(app, SessionsCollection, func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "project_id", Required: true})
		c.Fields.Add(&core.TextField{Name: "name", Required: false})
		c.Fields.Add(&core.TextField{Name: "code", Required: false})
		c.Fields.Add(&core.NumberField{Name: "stage", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "items", OnlyInt: true})
		c.Fields.Add(&core.JSONField{Name: "payload", Required: true, MaxSize: payloadMaxSize})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_pricing_sessions_project", true, "project_id", "")
	})

	ensureCollection(app, HistoryCollection, func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "project_id", Required: true})
		c.Fields.Add(&core.TextField{Name: "project_name", Required: false})
		c.Fields.Add(&core.TextField{Name: "strategy", Required: true})
		c.Fields.Add(&core.TextField{Name: "pricing_end_time", Required: true})
		c.Fields.Add(&core.NumberField{Name: "final_price"})
		c.Fields.Add(&core.NumberField{Name: "seq", OnlyInt: true})
		c.Fields.Add(&core.JSONField{Name: "payload", Required: true, MaxSize: payloadMaxSize})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.AddIndex("idx_saved_pricing_entry", true, "project_id, pricing_end_time, final_price", "")
	})

	ensureCollection(app, ItemsCollection, func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "project_id", Required: true})
		c.Fields.Add(&core.TextField{Name: "item_id", Required: true})
		c.Fields.Add(&core.NumberField{Name: "sort_order", OnlyInt: true})
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: true})
		c.Fields.Add(&core.TextField{Name: "unit", Required: true})
		c.Fields.Add(&core.NumberField{Name: "quantity"})
		c.Fields.Add(&core.NumberField{Name: "unit_price"})
		c.Fields.Add(&core.NumberField{Name: "total_price"})
		c.Fields.Add(&core.TextField{Name: "category", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_pricing_items_project", false, "project_id", "")
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app core.App, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
