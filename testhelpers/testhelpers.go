// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"

	"tenderpricing/collections"
	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

// FixedNow is the clock used by NewTestController.
var FixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// NewTestController wires a controller to the app's stores with a pinned
// clock and default settings.
func NewTestController(t *testing.T, app *pocketbase.PocketBase, opts ...workflow.Option) *workflow.Controller {
	t.Helper()
	opts = append([]workflow.Option{workflow.WithClock(func() time.Time { return FixedNow })}, opts...)
	return workflow.New(
		collections.NewSessionStore(app),
		collections.NewHistoryStore(app),
		pricing.DefaultSettings(),
		opts...,
	)
}

// CreateTestSession creates a project session with the given name and code.
func CreateTestSession(t *testing.T, ctrl *workflow.Controller, name, code string) *workflow.Session {
	t.Helper()

	s, err := ctrl.Create(context.Background(), pricing.ProjectInput{Name: name, Code: code})
	if err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return s
}

// MoveToStage jumps a session to stage, failing the test if a guard
// refuses.
func MoveToStage(t *testing.T, ctrl *workflow.Controller, projectID string, stage int) {
	t.Helper()

	if _, err := ctrl.Jump(context.Background(), projectID, stage); err != nil {
		t.Fatalf("failed to move to stage %d: %v", stage, err)
	}
}

// AddTestItem appends a BoQ line to a session and returns its id. A session
// still at stage 1 is moved to the BoQ stage first.
func AddTestItem(t *testing.T, ctrl *workflow.Controller, projectID, code string, qty, unitPrice float64) string {
	t.Helper()

	stage, err := ctrl.CurrentStage(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to read stage: %v", err)
	}
	if stage < workflow.BoQStage {
		MoveToStage(t, ctrl, projectID, workflow.BoQStage)
	}

	var id string
	_, err = ctrl.EditBoQ(context.Background(), projectID, func(p *pricing.Project) error {
		var err error
		id, err = p.AddItem(pricing.ItemInput{
			Code:        code,
			Description: "بند اختبار " + code,
			Unit:        string(pricing.UnitVolume),
			Quantity:    qty,
			UnitPrice:   unitPrice,
		})
		return err
	})
	if err != nil {
		t.Fatalf("failed to add test item: %v", err)
	}
	return id
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
