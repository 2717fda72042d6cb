package pricing

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidInput          = errors.New("invalid_input")
	ErrStageBlocked          = errors.New("stage_blocked")
	ErrNoDecomposition       = errors.New("no_decomposition")
	ErrDuplicateHistoryEntry = errors.New("duplicate_history_entry")
	ErrImportRowRejected     = errors.New("import_row_rejected")
	ErrMissingProject        = errors.New("missing_project")
)

// Error is a user-facing failure. Message is Arabic and safe to display as is;
// Details carries the technical payload (field names, row numbers, guards).
type Error struct {
	Kind    error
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: %s %v", e.Kind, e.Message, e.Details)
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func invalidInput(field, message string) *Error {
	return newError(ErrInvalidInput, message, map[string]any{"field": field})
}

// MissingProject reports an unknown project id.
func MissingProject(projectID string) *Error {
	return newError(ErrMissingProject, "المشروع غير موجود", map[string]any{"project_id": projectID})
}

// StageBlocked reports a refused stage transition.
func StageBlocked(from int, guard, message string) *Error {
	return newError(ErrStageBlocked, message, map[string]any{"stage": from, "guard": guard})
}

// DuplicateHistoryEntry reports a pricing result that is already in history.
func DuplicateHistoryEntry(projectID string, finalPrice float64, at string) *Error {
	return newError(ErrDuplicateHistoryEntry, "هذا التسعير محفوظ مسبقاً", map[string]any{
		"project_id":  projectID,
		"final_price": finalPrice,
		"timestamp":   at,
	})
}

// AsError returns the *Error inside err, if any.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
