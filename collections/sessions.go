package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

// SessionStore keeps one pricing_sessions record per project. The whole
// session is stored as a JSON payload; name, code, stage and item count are
// copied into columns for listing, and the BoQ is mirrored into
// pricing_items for cross-project search.
type SessionStore struct {
	app core.App
}

// NewSessionStore returns a store backed by app.
func NewSessionStore(app core.App) *SessionStore {
	return &SessionStore{app: app}
}

var _ workflow.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Load(_ context.Context, projectID string) (*workflow.Session, error) {
	rec, err := findSession(s.app, projectID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, pricing.MissingProject(projectID)
	}
	var sess workflow.Session
	if err := rec.UnmarshalJSONField("payload", &sess); err != nil {
		return nil, fmt.Errorf("sessions: decode %s: %w", projectID, err)
	}
	return &sess, nil
}

func (s *SessionStore) Save(_ context.Context, sess *workflow.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sessions: encode %s: %w", sess.Project.ID, err)
	}

	return s.app.RunInTransaction(func(txApp core.App) error {
		rec, err := findSession(txApp, sess.Project.ID)
		if err != nil {
			return err
		}
		if rec == nil {
			col, err := txApp.FindCollectionByNameOrId(SessionsCollection)
			if err != nil {
				return fmt.Errorf("sessions: could not find collection: %w", err)
			}
			rec = core.NewRecord(col)
			rec.Set("project_id", sess.Project.ID)
		}
		rec.Set("name", sess.Project.Name)
		rec.Set("code", sess.Project.Code)
		rec.Set("stage", sess.Stage)
		rec.Set("items", sess.Project.ItemCount())
		rec.Set("payload", types.JSONRaw(payload))
		if err := txApp.Save(rec); err != nil {
			return fmt.Errorf("sessions: save %s: %w", sess.Project.ID, err)
		}
		return mirrorItems(txApp, sess.Project)
	})
}

func (s *SessionStore) List(_ context.Context) ([]workflow.Summary, error) {
	records, err := s.app.FindAllRecords(SessionsCollection)
	if err != nil {
		return nil, fmt.Errorf("sessions: list: %w", err)
	}
	out := make([]workflow.Summary, 0, len(records))
	for _, rec := range records {
		out = append(out, workflow.Summary{
			ProjectID: rec.GetString("project_id"),
			Name:      rec.GetString("name"),
			Code:      rec.GetString("code"),
			Stage:     rec.GetInt("stage"),
			Items:     rec.GetInt("items"),
			UpdatedAt: rec.GetDateTime("updated").Time(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return out, nil
}

// Delete removes a session together with its mirrored items. History
// entries are kept.
func (s *SessionStore) Delete(_ context.Context, projectID string) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		rec, err := findSession(txApp, projectID)
		if err != nil {
			return err
		}
		if rec == nil {
			return pricing.MissingProject(projectID)
		}
		if err := deleteMirror(txApp, projectID); err != nil {
			return err
		}
		if err := txApp.Delete(rec); err != nil {
			return fmt.Errorf("sessions: delete %s: %w", projectID, err)
		}
		return nil
	})
}

func findSession(app core.App, projectID string) (*core.Record, error) {
	rec, err := app.FindFirstRecordByFilter(
		SessionsCollection,
		"project_id = {:projectId}",
		map[string]any{"projectId": projectID},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: find %s: %w", projectID, err)
	}
	return rec, nil
}
