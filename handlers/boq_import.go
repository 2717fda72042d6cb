package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
	"tenderpricing/services"
	"tenderpricing/workflow"
)

const maxUploadSize = 10 << 20

type importResponse struct {
	Accepted   []string              `json:"accepted"`
	Rejected   []pricing.RejectedRow `json:"rejected"`
	ItemCount  int                   `json:"item_count"`
	DirectCost float64               `json:"direct_cost"`
}

type importRowsRequest struct {
	Rows []pricing.Row `json:"rows"`
}

type rejectedReportRequest struct {
	Rejected []pricing.RejectedRow `json:"rejected"`
}

// readImportRows takes rows from a multipart CSV/XLSX upload in field
// "file", or from a JSON body {"rows": [...]}.
func readImportRows(e *core.RequestEvent) ([]pricing.Row, bool, error) {
	if strings.HasPrefix(e.Request.Header.Get("Content-Type"), "multipart/form-data") {
		if err := e.Request.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, false, badRequest(e, "تعذر قراءة الملف المرفوع")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return nil, false, badRequest(e, "يرجى اختيار ملف للاستيراد")
		}
		defer file.Close()

		rows, err := services.ParseBoQFile(file, header.Filename)
		if errors.Is(err, services.ErrUnsupportedFormat) {
			return nil, false, badRequest(e, "صيغة الملف غير مدعومة، يرجى رفع ملف CSV أو XLSX")
		}
		if err != nil {
			log.Printf("boq_import: parse %s: %v", header.Filename, err)
			return nil, false, badRequest(e, "تعذر قراءة محتوى الملف")
		}
		return rows, true, nil
	}

	var req importRowsRequest
	if ok, err := bindJSON(e, &req); !ok {
		return nil, false, err
	}
	return req.Rows, true, nil
}

// HandleBoQImport bulk-appends BoQ rows. Valid rows are kept even when
// others are rejected; a partial import is answered 422 with the rejected
// rows in the error details.
// Route: POST /api/projects/{id}/import
func HandleBoQImport(ctrl *workflow.Controller) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rows, ok, err := readImportRows(e)
		if !ok {
			return err
		}
		if len(rows) == 0 {
			return badRequest(e, "الملف لا يحتوي على أي صفوف")
		}

		projectID := e.Request.PathValue("id")
		report, err := ctrl.ImportRows(e.Request.Context(), projectID, rows)
		if err != nil {
			return ErrorJSON(e, "boq_import", err)
		}

		s, err := ctrl.Session(e.Request.Context(), projectID)
		if err != nil {
			return ErrorJSON(e, "boq_import", err)
		}
		SetToast(e, "success", "تم استيراد جدول الكميات")
		return e.JSON(http.StatusOK, importResponse{
			Accepted:   report.Accepted,
			Rejected:   report.Rejected,
			ItemCount:  s.Project.ItemCount(),
			DirectCost: s.Project.DirectCost(),
		})
	}
}

// HandleRejectedRowsReport turns the rejected rows of an import into an
// Excel sheet listing the row, field and problem of every rejection.
// Route: POST /api/import/errors
func HandleRejectedRowsReport() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req rejectedReportRequest
		if ok, err := bindJSON(e, &req); !ok {
			return err
		}
		if len(req.Rejected) == 0 {
			return badRequest(e, "لا توجد صفوف مرفوضة")
		}
		xlsxBytes, err := services.GenerateRejectedRowsReport(req.Rejected)
		if err != nil {
			log.Printf("import_errors: failed to generate: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
		}
		return sendFile(e, xlsxContentType, "import_errors.xlsx", xlsxBytes)
	}
}
