package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"

	"tenderpricing/collections"
	"tenderpricing/pricing"
	"tenderpricing/services"
	"tenderpricing/templates"
	"tenderpricing/workflow"
)

type priceResponse struct {
	Result  *pricing.Result `json:"result"`
	Warning string          `json:"warning,omitempty"`
}

// HandlePrice runs final assembly and stores the result in history. A
// repeat of an identical history entry is answered 200 with a warning.
// Route: POST /api/projects/{id}/price
func HandlePrice(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		res, err := ctrl.Price(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil && !errors.Is(err, pricing.ErrDuplicateHistoryEntry) {
			return ErrorJSON(e, "price", err)
		}
		out := priceResponse{Result: res}
		if err != nil {
			pe, _ := pricing.AsError(err)
			out.Warning = pe.Message
			SetToast(e, "warning", pe.Message)
		} else {
			SetToast(e, "success", "تم التسعير بنجاح")
		}
		return e.JSON(http.StatusOK, out)
	}
}

// HandleResult returns the latest result of a project as JSON, an Excel
// workbook, a PDF or an HTML sheet, selected by ?format=.
// Route: GET /api/projects/{id}/result
func HandleResult(ctrl *workflow.Controller, pdf services.PDFOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, err := ctrl.Session(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "result", err)
		}
		if s.Result == nil {
			SetToast(e, "error", "لم يتم تسعير المشروع بعد")
			return e.JSON(http.StatusNotFound, errorBody{Error: "not priced", Message: "لم يتم تسعير المشروع بعد"})
		}

		format := e.Request.URL.Query().Get("format")
		if format == "" || format == "json" {
			return e.JSON(http.StatusOK, s.Result)
		}

		data := services.BuildExportData(s.Result, s.Project, ctrl.Settings())
		base := fmt.Sprintf("PRICING_%s_%s", sanitizeFilename(s.Project.Code), s.Result.EndTime.Format("20060102-150405"))

		switch format {
		case "xlsx":
			xlsxBytes, err := services.GenerateResultExcel(data)
			if err != nil {
				log.Printf("result_excel: failed to generate: %v", err)
				return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
			}
			return sendFile(e, xlsxContentType, base+".xlsx", xlsxBytes)
		case "pdf":
			pdfBytes, err := services.GenerateResultPDF(data, pdf)
			if err != nil {
				log.Printf("result_pdf: failed to generate: %v", err)
				return e.String(http.StatusInternalServerError, "Failed to generate PDF file")
			}
			return sendFile(e, "application/pdf", base+".pdf", pdfBytes)
		case "html":
			e.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
			return templates.ResultSheet(data, workflow.Stages(s)).Render(e.Request.Context(), e.Response)
		}
		return badRequest(e, "صيغة التصدير غير مدعومة")
	}
}

// HandleHistory lists the stored results of a project in append order.
// Route: GET /api/projects/{id}/history
func HandleHistory(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		history, err := ctrl.History(e.Request.Context(), e.Request.PathValue("id"))
		if err != nil {
			return ErrorJSON(e, "history", err)
		}
		return e.JSON(http.StatusOK, map[string]any{"history": history})
	}
}

// HandleRecentHistory lists the latest saved results across projects.
// Route: GET /api/history?limit=
func HandleRecentHistory(history *collections.HistoryStore) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		limit := cast.ToInt(e.Request.URL.Query().Get("limit"))
		entries, err := history.Recent(e.Request.Context(), limit)
		if err != nil {
			return ErrorJSON(e, "recent_history", err)
		}
		return e.JSON(http.StatusOK, map[string]any{"history": entries})
	}
}
