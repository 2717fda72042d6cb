// Package workflow drives a project through the seven pricing stages and
// owns the session lifecycle: load, mutate, persist.
package workflow

import (
	"context"
	"time"

	"tenderpricing/pricing"
)

// Stage bounds. Stage 8 is the reference view reached after pricing.
const (
	FirstStage = 1
	BoQStage   = 2
	FinalStage = 7
	ViewStage  = 8
)

// Session is the canonical copy of one project's pricing state.
type Session struct {
	Stage     int              `json:"stage"`
	Project   *pricing.Project `json:"project"`
	Result    *pricing.Result  `json:"result,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Summary is a lightweight listing entry.
type Summary struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Stage     int       `json:"stage"`
	Items     int       `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore keeps one session per project id. Load returns an error
// wrapping pricing.ErrMissingProject for unknown ids.
type SessionStore interface {
	Load(ctx context.Context, projectID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, projectID string) error
}

// HistoryStore is the append-only pricing history. Append rejects an entry
// with the same project id, end timestamp and final price as an existing one
// with pricing.ErrDuplicateHistoryEntry.
type HistoryStore interface {
	Append(ctx context.Context, r *pricing.Result) error
	List(ctx context.Context, projectID string) ([]*pricing.Result, error)
}

// AdvisoryRequest is what an advisor sees of a finished result.
type AdvisoryRequest struct {
	ProjectName string
	Strategy    pricing.Strategy
	Summary     pricing.Summary
	Risks       []pricing.RiskCharge
}

// Advisor supplies free-text notes about a result. Its output is never fed
// back into any figure.
type Advisor interface {
	Advise(ctx context.Context, req AdvisoryRequest) ([]string, error)
}
