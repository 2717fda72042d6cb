package handlers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

type subItemRequest struct {
	Category  string  `json:"category"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type decompositionResponse struct {
	ItemID        string                 `json:"item_id"`
	Decomposition *pricing.Decomposition `json:"decomposition"`
	Rollup        pricing.Rollup         `json:"rollup"`
	UnitPrice     float64                `json:"unit_price"`
	TotalPrice    float64                `json:"total_price"`
}

func respondDecomposition(e *core.RequestEvent, s *workflow.Session, itemID string) error {
	it, _ := s.Project.Item(itemID)
	d := it.Decomposition
	if d == nil {
		d = &pricing.Decomposition{}
	}
	return e.JSON(http.StatusOK, decompositionResponse{
		ItemID:        itemID,
		Decomposition: d,
		Rollup:        d.Rollup(),
		UnitPrice:     it.UnitPrice,
		TotalPrice:    it.TotalPrice,
	})
}

// parseCategory resolves the {category} path value or body field.
func parseCategory(e *core.RequestEvent, raw string) (pricing.Category, bool, error) {
	c, ok := pricing.ParseCategory(raw)
	if !ok {
		return "", false, badRequest(e, "فئة التحليل غير معروفة")
	}
	return c, true, nil
}

// HandleDecompositionView returns the decomposition of one line with its rollup.
// Route: GET /api/projects/{id}/items/{itemId}/decomposition
func HandleDecompositionView(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "decomposition_view", err)
		}
		itemID := e.Request.PathValue("itemId")
		if _, ok := s.Project.Item(itemID); !ok {
			return badRequest(e, "البند غير موجود في جدول الكميات")
		}
		return respondDecomposition(e, s, itemID)
	}
}

// HandleSubItemCreate appends a material, labour or equipment line.
// Route: POST /api/projects/{id}/items/{itemId}/decomposition
func HandleSubItemCreate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req subItemRequest
		if ok, err := bindJSON(e, &req); !ok {
			return err
		}
		cat, ok, err := parseCategory(e, req.Category)
		if !ok {
			return err
		}
		itemID := e.Request.PathValue("itemId")
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.AddSubItem(itemID, cat, req.Name, req.Unit, req.Quantity, req.UnitPrice)
		})
		if err != nil {
			return ErrorJSON(e, "subitem_create", err)
		}
		return respondDecomposition(e, s, itemID)
	}
}

// HandleSubItemUpdate replaces fields of the sub-item at a position.
// Route: PATCH /api/projects/{id}/items/{itemId}/decomposition/{category}/{index}
func HandleSubItemUpdate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cat, ok, err := parseCategory(e, e.Request.PathValue("category"))
		if !ok {
			return err
		}
		index, err := strconv.Atoi(e.Request.PathValue("index"))
		if err != nil {
			return badRequest(e, "رقم السطر غير صالح")
		}
		var f pricing.SubItemFields
		if ok, err := bindJSON(e, &f); !ok {
			return err
		}
		itemID := e.Request.PathValue("itemId")
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.UpdateSubItem(itemID, cat, index, f)
		})
		if err != nil {
			return ErrorJSON(e, "subitem_update", err)
		}
		return respondDecomposition(e, s, itemID)
	}
}

// HandleSubItemDelete removes the sub-item at a position; later indices shift.
// Route: DELETE /api/projects/{id}/items/{itemId}/decomposition/{category}/{index}
func HandleSubItemDelete(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cat, ok, err := parseCategory(e, e.Request.PathValue("category"))
		if !ok {
			return err
		}
		index, err := strconv.Atoi(e.Request.PathValue("index"))
		if err != nil {
			return badRequest(e, "رقم السطر غير صالح")
		}
		itemID := e.Request.PathValue("itemId")
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.DeleteSubItem(itemID, cat, index)
		})
		if err != nil {
			return ErrorJSON(e, "subitem_delete", err)
		}
		return respondDecomposition(e, s, itemID)
	}
}

// HandleDecompositionClear discards the decomposition of a line.
// Route: DELETE /api/projects/{id}/items/{itemId}/decomposition
func HandleDecompositionClear(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		itemID := e.Request.PathValue("itemId")
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.ClearDecomposition(itemID)
		})
		if err != nil {
			return ErrorJSON(e, "decomposition_clear", err)
		}
		return respondDecomposition(e, s, itemID)
	}
}

// HandleDecompositionApply rolls the decomposition up into the line's unit price.
// Route: POST /api/projects/{id}/items/{itemId}/decomposition/apply
func HandleDecompositionApply(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		itemID := e.Request.PathValue("itemId")
		s, err := ctrl.EditBoQ(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			_, err := p.ApplyDecomposition(itemID)
			return err
		})
		if err != nil {
			return ErrorJSON(e, "decomposition_apply", err)
		}
		SetToast(e, "success", "تم تطبيق التحليل على سعر الوحدة")
		return respondDecomposition(e, s, itemID)
	}
}

// HandleCatalogue returns the advisory sub-item names of a category.
// Route: GET /api/catalogue/{category}
func HandleCatalogue() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cat, ok, err := parseCategory(e, e.Request.PathValue("category"))
		if !ok {
			return err
		}
		return e.JSON(http.StatusOK, map[string]any{
			"category":    cat,
			"label":       cat.Label(),
			"suggestions": cat.Suggestions(),
		})
	}
}
