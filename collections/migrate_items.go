package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/workflow"
)

// RebuildItemMirror finds sessions whose pricing_items rows do not match
// their BoQ size and rewrites the mirror from the session payload.
// Safe to call on every startup -- returns early if nothing to rebuild.
func RebuildItemMirror(app core.App) error {
	sessions, err := app.FindAllRecords(SessionsCollection)
	if err != nil {
		return fmt.Errorf("migrate: could not query sessions: %w", err)
	}

	rebuilt := 0
	for _, rec := range sessions {
		projectID := rec.GetString("project_id")
		mirrored, err := app.FindRecordsByFilter(
			ItemsCollection,
			"project_id = {:projectId}",
			"", 0, 0,
			map[string]any{"projectId": projectID},
		)
		if err != nil {
			return fmt.Errorf("migrate: could not query items of %s: %w", projectID, err)
		}

		var sess workflow.Session
		if err := rec.UnmarshalJSONField("payload", &sess); err != nil || sess.Project == nil {
			log.Printf("migrate: skipping unreadable session %s: %v\n", projectID, err)
			continue
		}
		if len(mirrored) == sess.Project.ItemCount() {
			continue
		}

		if err := app.RunInTransaction(func(txApp core.App) error {
			return mirrorItems(txApp, sess.Project)
		}); err != nil {
			log.Printf("migrate: failed to rebuild items of %s: %v\n", projectID, err)
			continue
		}
		rebuilt++
		log.Printf("migrate: rebuilt %d item(s) of project %q (%s)\n", sess.Project.ItemCount(), sess.Project.Name, projectID)
	}

	if rebuilt > 0 {
		log.Printf("migrate: item mirror rebuilt for %d project(s).\n", rebuilt)
	}
	return nil
}
