package handlers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/workflow"
)

type stageResponse struct {
	Stage  int         `json:"stage"`
	Title  string      `json:"title"`
	Stages []StageLink `json:"stages"`
}

func respondStage(e *core.RequestEvent, ctrl *workflow.Controller, component string) error {
	s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return ErrorJSON(e, component, err)
	}
	return e.JSON(http.StatusOK, stageResponse{
		Stage:  s.Stage,
		Title:  workflow.StageTitle(s.Stage),
		Stages: BuildStageNav(s),
	})
}

// HandleStageView returns the current stage and the stage bar.
// Route: GET /api/projects/{id}/stage
func HandleStageView(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return respondStage(e, ctrl, "stage_view")
	}
}

// HandleStageAdvance moves one stage forward when the guard allows it.
// Route: POST /api/projects/{id}/stage/next
func HandleStageAdvance(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, err := ctrl.Advance(e.Request.Context(), e.Request.PathValue("id")); err != nil {
			return ErrorJSON(e, "stage_advance", err)
		}
		return respondStage(e, ctrl, "stage_advance")
	}
}

// HandleStageRetreat moves one stage back.
// Route: POST /api/projects/{id}/stage/previous
func HandleStageRetreat(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, err := ctrl.Retreat(e.Request.Context(), e.Request.PathValue("id")); err != nil {
			return ErrorJSON(e, "stage_retreat", err)
		}
		return respondStage(e, ctrl, "stage_retreat")
	}
}

// HandleStageJump moves to an arbitrary stage; forward jumps check every
// guard on the way.
// Route: POST /api/projects/{id}/stage/{stage}
func HandleStageJump(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		to, err := strconv.Atoi(e.Request.PathValue("stage"))
		if err != nil {
			return badRequest(e, "رقم المرحلة غير صالح")
		}
		if _, err := ctrl.Jump(e.Request.Context(), e.Request.PathValue("id"), to); err != nil {
			return ErrorJSON(e, "stage_jump", err)
		}
		return respondStage(e, ctrl, "stage_jump")
	}
}
