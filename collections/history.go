package collections

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

// HistoryStore is the saved_pricing table: append-only, one JSON result
// per record, ordered by a per-project sequence number.
type HistoryStore struct {
	app core.App
}

// NewHistoryStore returns a history backed by app.
func NewHistoryStore(app core.App) *HistoryStore {
	return &HistoryStore{app: app}
}

var _ workflow.HistoryStore = (*HistoryStore)(nil)

// Append stores r unless an entry with the same project, end timestamp and
// final price already exists. The check and the insert share a transaction.
func (h *HistoryStore) Append(_ context.Context, r *pricing.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: encode %s: %w", r.ProjectID, err)
	}

	return h.app.RunInTransaction(func(txApp core.App) error {
		existing, err := historyRecords(txApp, r.ProjectID)
		if err != nil {
			return err
		}
		for _, rec := range existing {
			prev, err := decodeResult(rec)
			if err != nil {
				return err
			}
			if workflow.IsDuplicate(prev, r) {
				return pricing.DuplicateHistoryEntry(r.ProjectID, r.Summary.FinalPrice, r.EndTime.String())
			}
		}

		col, err := txApp.FindCollectionByNameOrId(HistoryCollection)
		if err != nil {
			return fmt.Errorf("history: could not find collection: %w", err)
		}
		rec := core.NewRecord(col)
		rec.Set("project_id", r.ProjectID)
		rec.Set("project_name", r.Summary.ProjectName)
		rec.Set("strategy", string(r.Strategy))
		rec.Set("pricing_end_time", r.EndTime.String())
		rec.Set("final_price", r.Summary.FinalPrice)
		rec.Set("seq", len(existing)+1)
		rec.Set("payload", types.JSONRaw(payload))
		if err := txApp.Save(rec); err != nil {
			return fmt.Errorf("history: save %s: %w", r.ProjectID, err)
		}
		return nil
	})
}

// List returns the stored results of projectID in append order.
func (h *HistoryStore) List(_ context.Context, projectID string) ([]*pricing.Result, error) {
	records, err := historyRecords(h.app, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]*pricing.Result, 0, len(records))
	for _, rec := range records {
		r, err := decodeResult(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// HistoryEntry is a listing row of saved_pricing across projects.
type HistoryEntry struct {
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Strategy    string  `json:"strategy"`
	EndTime     string  `json:"pricing_end_time"`
	FinalPrice  float64 `json:"final_price"`
	Seq         int     `json:"seq"`
}

// Recent lists the latest entries across all projects, newest first.
func (h *HistoryStore) Recent(_ context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := h.app.FindRecordsByFilter(HistoryCollection, "project_id != ''", "-pricing_end_time,-seq", limit, 0)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, HistoryEntry{
			ProjectID:   rec.GetString("project_id"),
			ProjectName: rec.GetString("project_name"),
			Strategy:    rec.GetString("strategy"),
			EndTime:     rec.GetString("pricing_end_time"),
			FinalPrice:  rec.GetFloat("final_price"),
			Seq:         rec.GetInt("seq"),
		})
	}
	return out, nil
}

func historyRecords(app core.App, projectID string) ([]*core.Record, error) {
	records, err := app.FindRecordsByFilter(
		HistoryCollection,
		"project_id = {:projectId}",
		"seq", 0, 0,
		map[string]any{"projectId": projectID},
	)
	if err != nil {
		return nil, fmt.Errorf("history: find %s: %w", projectID, err)
	}
	return records, nil
}

func decodeResult(rec *core.Record) (*pricing.Result, error) {
	var r pricing.Result
	if err := rec.UnmarshalJSONField("payload", &r); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", rec.Id, err)
	}
	return &r, nil
}
