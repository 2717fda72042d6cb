package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/services"
	"tenderpricing/workflow"
)

// HandleVocabulary returns the closed lists behind every entry form.
// Route: GET /api/vocabulary
func HandleVocabulary(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return e.JSON(http.StatusOK, services.VocabularyOptions(ctrl.Settings()))
	}
}
