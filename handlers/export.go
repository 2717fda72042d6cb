package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
	"tenderpricing/services"
	"tenderpricing/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, `"`, "")
	return s
}

func sendFile(e *core.RequestEvent, contentType, filename string, body []byte) error {
	e.Response.Header().Set("Content-Type", contentType)
	e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, err := e.Response.Write(body)
	return err
}

// HandleBoQExport emits the BoQ in the canonical column schema followed by
// a total row, as JSON rows or an Excel sheet. ?lang=ar switches headings
// and unit labels to Arabic.
// Route: GET /api/projects/{id}/export
func HandleBoQExport(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "boq_export", err)
		}

		lang := pricing.LangEnglish
		if e.Request.URL.Query().Get("lang") == string(pricing.LangArabic) {
			lang = pricing.LangArabic
		}
		rows := s.Project.ExportRows(lang)

		switch e.Request.URL.Query().Get("format") {
		case "", "json":
			return e.JSON(http.StatusOK, map[string]any{
				"columns": pricing.ExportColumns(rows, lang),
				"rows":    rows,
			})
		case "xlsx":
			xlsxBytes, err := services.GenerateBoQExcel(rows, lang)
			if err != nil {
				log.Printf("boq_export: failed to generate: %v", err)
				return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
			}
			filename := fmt.Sprintf("BOQ_%s_%s.xlsx", sanitizeFilename(s.Project.Code), lang)
			return sendFile(e, xlsxContentType, filename, xlsxBytes)
		}
		return badRequest(e, "صيغة التصدير غير مدعومة")
	}
}
