package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
	"tenderpricing/services"
	"tenderpricing/workflow"
)

type strategyRequest struct {
	Strategy string `json:"strategy"`
}

type indirectResponse struct {
	Strategy   pricing.Strategy          `json:"strategy"`
	Rates      pricing.IndirectRates     `json:"rates"`
	RateSum    float64                   `json:"rate_sum"`
	DirectCost float64                   `json:"direct_cost"`
	Preview    pricing.IndirectBreakdown `json:"preview"`
}

func respondIndirect(e *core.RequestEvent, p *pricing.Project) error {
	d := p.DirectCost()
	return e.JSON(http.StatusOK, indirectResponse{
		Strategy:   p.Strategy,
		Rates:      p.Indirect,
		RateSum:    p.Indirect.Sum(),
		DirectCost: d,
		Preview:    pricing.ComputeIndirect(d, p.Indirect),
	})
}

// HandleIndirectView returns the current strategy, rates and a cost preview.
// Route: GET /api/projects/{id}/indirect
func HandleIndirectView(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "indirect_view", err)
		}
		return respondIndirect(e, s.Project)
	}
}

// HandleStrategySelect switches strategy and resets the indirect rates to
// the strategy's defaults.
// Route: PUT /api/projects/{id}/strategy
func HandleStrategySelect(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req strategyRequest
		if ok, err := bindJSON(e, &req); !ok {
			return err
		}
		s, err := ctrl.Mutate(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.SetStrategy(pricing.Strategy(req.Strategy), ctrl.Settings())
		})
		if err != nil {
			return ErrorJSON(e, "strategy_select", err)
		}
		SetToast(e, "success", "تم اختيار الاستراتيجية وتحديث النسب")
		return respondIndirect(e, s.Project)
	}
}

// HandleIndirectUpdate overrides the five indirect rates.
// Route: PUT /api/projects/{id}/indirect
func HandleIndirectUpdate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var rates pricing.IndirectRates
		if ok, err := bindJSON(e, &rates); !ok {
			return err
		}
		s, err := ctrl.Mutate(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.SetIndirectRates(rates)
		})
		if err != nil {
			return ErrorJSON(e, "indirect_update", err)
		}
		SetToast(e, "success", "تم حفظ نسب التكاليف غير المباشرة")
		return respondIndirect(e, s.Project)
	}
}

// HandleLocalContentUpdate records the local fractions and returns the
// weighted percentage.
// Route: PUT /api/projects/{id}/local-content
func HandleLocalContentUpdate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var lc pricing.LocalContent
		if ok, err := bindJSON(e, &lc); !ok {
			return err
		}
		s, err := ctrl.Mutate(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.SetLocalContent(lc)
		})
		if err != nil {
			return ErrorJSON(e, "local_content_update", err)
		}
		pct := pricing.LocalContentPercent(s.Project.LocalContent, ctrl.Settings().LocalWeights)
		return e.JSON(http.StatusOK, map[string]any{
			"local_content": s.Project.LocalContent,
			"percent":       pct,
			"display":       services.FormatPercent(pct),
		})
	}
}
