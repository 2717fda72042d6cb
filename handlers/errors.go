package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
)

// errorBody is the JSON shape of every failed API call.
type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

const internalMessage = "حدث خطأ غير متوقع، يرجى المحاولة مرة أخرى"

// errorStatus maps an engine error kind to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, pricing.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrMissingProject):
		return http.StatusNotFound
	case errors.Is(err, pricing.ErrStageBlocked), errors.Is(err, pricing.ErrDuplicateHistoryEntry):
		return http.StatusConflict
	case errors.Is(err, pricing.ErrNoDecomposition), errors.Is(err, pricing.ErrImportRowRejected):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// ErrorJSON writes err as an API error. Engine errors carry their Arabic
// message and details; anything else is logged under component and
// reported generically.
func ErrorJSON(e *core.RequestEvent, component string, err error) error {
	status := errorStatus(err)
	body := errorBody{Error: "internal", Message: internalMessage}
	if pe, ok := pricing.AsError(err); ok && status != http.StatusInternalServerError {
		body = errorBody{Error: pe.Kind.Error(), Message: pe.Message, Details: pe.Details}
	} else {
		log.Printf("%s: %v", component, err)
	}
	SetToast(e, "error", body.Message)
	return e.JSON(status, body)
}

// badRequest reports malformed input that never reached the engine.
func badRequest(e *core.RequestEvent, message string) error {
	SetToast(e, "error", message)
	return e.JSON(http.StatusBadRequest, errorBody{Error: pricing.ErrInvalidInput.Error(), Message: message})
}

// bindJSON decodes the request body into dst, answering 400 on failure.
// The returned bool is false when a response has already been written.
func bindJSON(e *core.RequestEvent, dst any) (bool, error) {
	if err := e.BindBody(dst); err != nil {
		if _, ok := pricing.AsError(err); ok {
			return false, ErrorJSON(e, "bind", err)
		}
		return false, badRequest(e, "بيانات الطلب غير صالحة")
	}
	return true, nil
}
