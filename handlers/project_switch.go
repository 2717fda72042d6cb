package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/workflow"
)

// HandleProjectActivate sets the active project cookie.
// Route: POST /api/projects/{id}/activate
func HandleProjectActivate(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("id")

		s, err := ctrl.Session(e.Request.Context(), projectID)
		if err != nil {
			return ErrorJSON(e, "project_activate", err)
		}

		// 30-day expiry, HttpOnly
		http.SetCookie(e.Response, &http.Cookie{
			Name:     activeProjectCookie,
			Value:    projectID,
			Path:     "/",
			MaxAge:   60 * 60 * 24 * 30,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		SetToast(e, "success", "تم تفعيل المشروع")
		return e.JSON(http.StatusOK, map[string]any{"active": workflow.SummaryOf(s)})
	}
}

// HandleProjectDeactivate clears the active project cookie.
// Route: POST /api/projects/deactivate
func HandleProjectDeactivate() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		clearActiveCookie(e)
		SetToast(e, "success", "تم إلغاء تفعيل المشروع")
		return e.NoContent(http.StatusNoContent)
	}
}

// HandleActiveProject returns the project selected by the cookie, or null.
// Route: GET /api/active
func HandleActiveProject() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return e.JSON(http.StatusOK, map[string]any{"active": GetActiveProject(e.Request)})
	}
}
