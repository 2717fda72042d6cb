package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

// sessionView is the API representation of a project session.
type sessionView struct {
	Stage      int              `json:"stage"`
	StageTitle string           `json:"stage_title"`
	Stages     []StageLink      `json:"stages"`
	Project    *pricing.Project `json:"project"`
	DirectCost float64          `json:"direct_cost"`
	RiskMatrix [4][4]int        `json:"risk_matrix"`
	Result     *pricing.Result  `json:"result,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func viewOf(s *workflow.Session) sessionView {
	return sessionView{
		Stage:      s.Stage,
		StageTitle: workflow.StageTitle(s.Stage),
		Stages:     BuildStageNav(s),
		Project:    s.Project,
		DirectCost: s.Project.DirectCost(),
		RiskMatrix: pricing.RiskMatrix(s.Project.Risks),
		Result:     s.Result,
		UpdatedAt:  s.UpdatedAt,
	}
}

// HandleProjectList returns every session summary, most recently updated first.
// Route: GET /api/projects
func HandleProjectList(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projects, err := ctrl.Projects(e.Request.Context())
		if err != nil {
			return ErrorJSON(e, "project_list", err)
		}
		return e.JSON(http.StatusOK, map[string]any{"projects": projects})
	}
}

// HandleProjectCreate opens a new session at stage 1.
// Route: POST /api/projects
func HandleProjectCreate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var in pricing.ProjectInput
		if ok, err := bindJSON(e, &in); !ok {
			return err
		}
		s, err := ctrl.Create(e.Request.Context(), in)
		if err != nil {
			return ErrorJSON(e, "project_create", err)
		}
		SetToast(e, "success", "تم إنشاء المشروع")
		return e.JSON(http.StatusCreated, viewOf(s))
	}
}

// HandleProjectView returns the full session of a project.
// Route: GET /api/projects/{id}
func HandleProjectView(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "project_view", err)
		}
		return e.JSON(http.StatusOK, viewOf(s))
	}
}

// HandleProjectUpdate replaces the envelope fields present in the body.
// Route: PATCH /api/projects/{id}
func HandleProjectUpdate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var f pricing.ProjectFields
		if ok, err := bindJSON(e, &f); !ok {
			return err
		}
		s, err := ctrl.Mutate(e.Request.Context(), e.Request.PathValue("id"), func(p *pricing.Project) error {
			return p.UpdateDetails(f)
		})
		if err != nil {
			return ErrorJSON(e, "project_update", err)
		}
		SetToast(e, "success", "تم حفظ بيانات المشروع")
		return e.JSON(http.StatusOK, viewOf(s))
	}
}

// HandleProjectDelete drops a session. Its pricing history is kept.
// Route: DELETE /api/projects/{id}
func HandleProjectDelete(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := ctrl.Delete(e.Request.Context(), e.Request.PathValue("id")); err != nil {
			return ErrorJSON(e, "project_delete", err)
		}
		SetToast(e, "success", "تم حذف المشروع")
		return e.NoContent(http.StatusNoContent)
	}
}
