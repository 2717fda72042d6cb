package collections_test

import (
	"context"
	"errors"
	"testing"

	"tenderpricing/collections"
	"tenderpricing/pricing"
	"tenderpricing/testhelpers"
	"tenderpricing/workflow"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	ctrl := testhelpers.NewTestController(t, app)
	ctx := context.Background()

	s := testhelpers.CreateTestSession(t, ctrl, "مستودع", "W-1")
	itemID := testhelpers.AddTestItem(t, ctrl, s.Project.ID, "A", 4, 25)
	if _, err := ctrl.Mutate(ctx, s.Project.ID, func(p *pricing.Project) error {
		return p.AddSubItem(itemID, pricing.CategoryMaterial, "أسمنت", "كيس", 10, 12)
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	got, err := collections.NewSessionStore(app).Load(ctx, s.Project.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Project.Name != "مستودع" || got.Project.ItemCount() != 1 {
		t.Errorf("loaded project = %q with %d items", got.Project.Name, got.Project.ItemCount())
	}
	it, ok := got.Project.Item(itemID)
	if !ok {
		t.Fatal("item lost on round trip")
	}
	if it.TotalPrice != 100 || len(it.Decomposition.Materials) != 1 {
		t.Errorf("item = %+v", it)
	}

	rec, err := app.FindFirstRecordByFilter(collections.SessionsCollection, "project_id = {:id}", map[string]any{"id": s.Project.ID})
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if rec.GetInt("items") != 1 || rec.GetString("code") != "W-1" {
		t.Errorf("listing columns = items %d code %q", rec.GetInt("items"), rec.GetString("code"))
	}
}

func TestSessionStore_MissingProject(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	store := collections.NewSessionStore(app)

	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, pricing.ErrMissingProject) {
		t.Errorf("Load err = %v, want ErrMissingProject", err)
	}
	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, pricing.ErrMissingProject) {
		t.Errorf("Delete err = %v, want ErrMissingProject", err)
	}
}

func TestSessionStore_DeleteDropsMirror(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	ctrl := testhelpers.NewTestController(t, app)
	s := testhelpers.CreateTestSession(t, ctrl, "x", "y")
	testhelpers.AddTestItem(t, ctrl, s.Project.ID, "A", 1, 1)

	if err := ctrl.Delete(context.Background(), s.Project.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rows, _ := app.FindAllRecords(collections.ItemsCollection)
	if len(rows) != 0 {
		t.Errorf("expected mirror to be empty, got %d rows", len(rows))
	}
	if _, err := ctrl.Session(context.Background(), s.Project.ID); !errors.Is(err, pricing.ErrMissingProject) {
		t.Errorf("Session after delete err = %v", err)
	}
}

func TestHistoryStore_AppendAndDuplicate(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	ctrl := testhelpers.NewTestController(t, app)
	ctx := context.Background()
	s := testhelpers.CreateTestSession(t, ctrl, "مدرسة", "S-1")
	testhelpers.AddTestItem(t, ctrl, s.Project.ID, "A", 10, 100)
	testhelpers.MoveToStage(t, ctrl, s.Project.ID, workflow.FinalStage)

	res, err := ctrl.Price(ctx, s.Project.ID)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if res.Summary.FinalPrice != 1552.5 {
		t.Errorf("final price = %v, want 1552.5", res.Summary.FinalPrice)
	}

	if _, err := ctrl.Price(ctx, s.Project.ID); !errors.Is(err, pricing.ErrDuplicateHistoryEntry) {
		t.Errorf("second Price err = %v, want ErrDuplicateHistoryEntry", err)
	}

	history, err := ctrl.History(ctx, s.Project.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	if !pricing.SameFigures(history[0], res) {
		t.Error("stored result differs from returned result")
	}
	if !workflow.IsDuplicate(history[0], res) {
		t.Error("stored result should carry the same identity")
	}

	testhelpers.AddTestItem(t, ctrl, s.Project.ID, "B", 1, 50)
	if _, err := ctrl.Price(ctx, s.Project.ID); err != nil {
		t.Fatalf("third Price: %v", err)
	}
	recent, err := collections.NewHistoryStore(app).Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Seq != 2 {
		t.Errorf("recent = %+v", recent)
	}
}

func TestSearchItems(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	ctrl := testhelpers.NewTestController(t, app)
	ctx := context.Background()

	a := testhelpers.CreateTestSession(t, ctrl, "a", "1")
	b := testhelpers.CreateTestSession(t, ctrl, "b", "2")
	for _, id := range []string{a.Project.ID, b.Project.ID} {
		if _, err := ctrl.Mutate(ctx, id, func(p *pricing.Project) error {
			_, err := p.AddItem(pricing.ItemInput{Code: "BL-20", Description: "بلوك خرساني 20 سم", Unit: "m2", Quantity: 10, UnitPrice: 60})
			return err
		}); err != nil {
			t.Fatalf("Mutate: %v", err)
		}
	}
	testhelpers.AddTestItem(t, ctrl, a.Project.ID, "EX-1", 1, 1)

	tests := []struct {
		name  string
		query string
		unit  string
		want  int
	}{
		{"by description", "بلوك", "", 2},
		{"by code", "BL-20", "", 2},
		{"unit filter excludes", "بلوك", "m3", 0},
		{"unit filter arabic", "بلوك", "م2", 2},
		{"blank query", "  ", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collections.SearchItems(app, tt.query, tt.unit, 0)
			if err != nil {
				t.Fatalf("SearchItems: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("matches = %d, want %d", len(got), tt.want)
			}
		})
	}
}
