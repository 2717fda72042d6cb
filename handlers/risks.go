package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

type riskListResponse struct {
	Risks  []pricing.Risk `json:"risks"`
	Matrix [4][4]int      `json:"matrix"`
}

func respondRisks(e *core.RequestEvent, status int, p *pricing.Project) error {
	risks := p.Risks
	if risks == nil {
		risks = []pricing.Risk{}
	}
	return e.JSON(status, riskListResponse{Risks: risks, Matrix: pricing.RiskMatrix(p.Risks)})
}

// HandleRiskList returns the risk register with its 4×4 matrix.
// Route: GET /api/projects/{id}/risks
func HandleRiskList(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "risk_list", err)
		}
		return respondRisks(e, http.StatusOK, s.Project)
	}
}

// HandleRiskCreate records a risk.
// Route: POST /api/projects/{id}/risks
func HandleRiskCreate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var in pricing.RiskInput
		if ok, err := bindJSON(e, &in); !ok {
			return err
		}
		s, err := ctrl.Mutate(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			_, err := p.AddRisk(in)
			return err
		})
		if err != nil {
			return ErrorJSON(e, "risk_create", err)
		}
		SetToast(e, "success", "تمت إضافة الخطر")
		return respondRisks(e, http.StatusCreated, s.Project)
	}
}

// HandleRiskDelete removes a risk.
// Route: DELETE /api/projects/{id}/risks/{riskId}
func HandleRiskDelete(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		riskID := e.Request.PathValue("riskId")
		s, err := ctrl.Mutate(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.RemoveRisk(riskID)
		})
		if err != nil {
			return ErrorJSON(e, "risk_delete", err)
		}
		SetToast(e, "success", "تم حذف الخطر")
		return respondRisks(e, http.StatusOK, s.Project)
	}
}
