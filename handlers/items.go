package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"

	"tenderpricing/collections"
	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

type itemResponse struct {
	Item       pricing.BoQItem `json:"item"`
	DirectCost float64         `json:"direct_cost"`
}

func respondItem(e *core.RequestEvent, status int, s *workflow.Session, itemID, component string) error {
	it, ok := s.Project.Item(itemID)
	if !ok {
		return ErrorJSON(e, component, fmt.Errorf("item %s missing after save", itemID))
	}
	return e.JSON(status, itemResponse{Item: it, DirectCost: s.Project.DirectCost()})
}

// HandleItemList returns the BoQ lines of a project in order.
// Route: GET /api/projects/{id}/items
func HandleItemList(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "item_list", err)
		}
		return e.JSON(http.StatusOK, map[string]any{
			"items":       s.Project.Items(),
			"direct_cost": s.Project.DirectCost(),
		})
	}
}

// HandleItemCreate appends a BoQ line.
// Route: POST /api/projects/{id}/items
func HandleItemCreate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var in pricing.ItemInput
		if ok, err := bindJSON(e, &in); !ok {
			return err
		}
		var itemID string
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			var err error
			itemID, err = p.AddItem(in)
			return err
		})
		if err != nil {
			return ErrorJSON(e, "item_create", err)
		}
		SetToast(e, "success", "تمت إضافة البند")
		return respondItem(e, http.StatusCreated, s, itemID, "item_create")
	}
}

// HandleItemUpdate replaces the fields present in the body.
// Route: PATCH /api/projects/{id}/items/{itemId}
func HandleItemUpdate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var f pricing.ItemFields
		if ok, err := bindJSON(e, &f); !ok {
			return err
		}
		itemID := e.Request.PathValue("itemId")
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.UpdateItem(itemID, f)
		})
		if err != nil {
			return ErrorJSON(e, "item_update", err)
		}
		return respondItem(e, http.StatusOK, s, itemID, "item_update")
	}
}

// HandleItemDelete removes a BoQ line and its decomposition.
// Route: DELETE /api/projects/{id}/items/{itemId}
func HandleItemDelete(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		itemID := e.Request.PathValue("itemId")
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.DeleteItem(itemID)
		})
		if err != nil {
			return ErrorJSON(e, "item_delete", err)
		}
		SetToast(e, "success", "تم حذف البند")
		return e.JSON(http.StatusOK, map[string]any{"direct_cost": s.Project.DirectCost()})
	}
}

// HandleItemSearch looks up previously priced lines across projects.
// Route: GET /api/items/search?q=&unit=&limit=
func HandleItemSearch(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		q := e.Request.URL.Query()
		matches, err := collections.SearchItems(app, q.Get("q"), q.Get("unit"), cast.ToInt(q.Get("limit")))
		if err != nil {
			return ErrorJSON(e, "item_search", err)
		}
		return e.JSON(http.StatusOK, map[string]any{"items": matches})
	}
}
