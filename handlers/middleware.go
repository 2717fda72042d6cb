package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/workflow"
)

type contextKey string

const ActiveProjectKey contextKey = "activeProject"

const activeProjectCookie = "active_project"

// GetActiveProject extracts the active project summary from the request context.
func GetActiveProject(r *http.Request) *workflow.Summary {
	if val, ok := r.Context().Value(ActiveProjectKey).(*workflow.Summary); ok {
		return val
	}
	return nil
}

// ActiveProjectMiddleware reads the "active_project" cookie, loads the
// session summary and stores it in the request context. A cookie naming a
// project that no longer exists is cleared.
func ActiveProjectMiddleware(ctrl *workflow.Controller) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var active *workflow.Summary

		cookie, err := e.Request.Cookie(activeProjectCookie)
		if err == nil && cookie.Value != "" {
			s, err := ctrl.Session(e.Request.Context(), cookie.Value)
			if err == nil {
				sum := workflow.SummaryOf(s)
				active = &sum
			} else {
				log.Printf("middleware: active project %s not found, clearing cookie", cookie.Value)
				clearActiveCookie(e)
			}
		}

		ctx := context.WithValue(e.Request.Context(), ActiveProjectKey, active)
		e.Request = e.Request.WithContext(ctx)

		return e.Next()
	}
}

func clearActiveCookie(e *core.RequestEvent) {
	http.SetCookie(e.Response, &http.Cookie{
		Name:   activeProjectCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
