package main

import (
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/collections"
	"tenderpricing/config"
	"tenderpricing/handlers"
	"tenderpricing/services"
	"tenderpricing/workflow"
)

func main() {
	cfg := config.MustLoad()
	settings, err := cfg.Settings()
	if err != nil {
		log.Fatal(err)
	}

	app := pocketbase.New()

	// Create collections, repair the item mirror and seed on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.RebuildItemMirror(app); err != nil {
			log.Printf("Warning: item mirror rebuild failed: %v", err)
		}
		if cfg.SeedDemo {
			if err := collections.Seed(app, settings); err != nil {
				log.Printf("Warning: seed data failed: %v", err)
			}
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		history := collections.NewHistoryStore(app)
		opts := []workflow.Option{workflow.WithLogger(app.Logger().With("component", "workflow"))}
		if cfg.Advisor.Enabled() {
			opts = append(opts, workflow.WithAdvisor(
				services.NewOpenRouterAdvisor(cfg.Advisor.APIKey, cfg.Advisor.Model, cfg.Advisor.Timeout)))
		}
		ctrl := workflow.New(collections.NewSessionStore(app), history, settings, opts...)
		pdf := services.PDFOptions{FontPath: cfg.PDFFont}

		// Apply active project middleware globally
		se.Router.BindFunc(handlers.ActiveProjectMiddleware(ctrl))

		// ── Vocabulary & lookups ─────────────────────────────────
		se.Router.GET("/api/vocabulary", handlers.HandleVocabulary(ctrl))
		se.Router.GET("/api/catalogue/{category}", handlers.HandleCatalogue())
		se.Router.GET("/api/items/search", handlers.HandleItemSearch(app))
		se.Router.GET("/api/history", handlers.HandleRecentHistory(history))
		se.Router.POST("/api/import/errors", handlers.HandleRejectedRowsReport())

		// ── Project activation ───────────────────────────────────
		se.Router.GET("/api/active", handlers.HandleActiveProject())
		se.Router.POST("/api/projects/{id}/activate", handlers.HandleProjectActivate(ctrl))
		se.Router.POST("/api/projects/deactivate", handlers.HandleProjectDeactivate())

		// ── Project sessions ─────────────────────────────────────
		se.Router.GET("/api/projects", handlers.HandleProjectList(ctrl))
		se.Router.POST("/api/projects", handlers.HandleProjectCreate(ctrl))
		se.Router.GET("/api/projects/{id}", handlers.HandleProjectView(ctrl))
		se.Router.PATCH("/api/projects/{id}", handlers.HandleProjectUpdate(ctrl))
		se.Router.DELETE("/api/projects/{id}", handlers.HandleProjectDelete(ctrl))

		// ── Stage navigation ─────────────────────────────────────
		se.Router.GET("/api/projects/{id}/stage", handlers.HandleStageView(ctrl))
		se.Router.POST("/api/projects/{id}/stage/next", handlers.HandleStageAdvance(ctrl))
		se.Router.POST("/api/projects/{id}/stage/previous", handlers.HandleStageRetreat(ctrl))
		se.Router.POST("/api/projects/{id}/stage/{stage}", handlers.HandleStageJump(ctrl))

		// ── Bill of quantities ───────────────────────────────────
		se.Router.GET("/api/projects/{id}/items", handlers.HandleItemList(ctrl))
		se.Router.POST("/api/projects/{id}/items", handlers.HandleItemCreate(ctrl))
		se.Router.PATCH("/api/projects/{id}/items/{itemId}", handlers.HandleItemUpdate(ctrl))
		se.Router.DELETE("/api/projects/{id}/items/{itemId}", handlers.HandleItemDelete(ctrl))
		se.Router.POST("/api/projects/{id}/import", handlers.HandleBoQImport(ctrl))
		se.Router.GET("/api/projects/{id}/export", handlers.HandleBoQExport(ctrl))

		// ── Cost decomposition ───────────────────────────────────
		se.Router.GET("/api/projects/{id}/items/{itemId}/decomposition", handlers.HandleDecompositionView(ctrl))
		se.Router.POST("/api/projects/{id}/items/{itemId}/decomposition", handlers.HandleSubItemCreate(ctrl))
		se.Router.DELETE("/api/projects/{id}/items/{itemId}/decomposition", handlers.HandleDecompositionClear(ctrl))
		se.Router.POST("/api/projects/{id}/items/{itemId}/decomposition/apply", handlers.HandleDecompositionApply(ctrl))
		se.Router.PATCH("/api/projects/{id}/items/{itemId}/decomposition/{category}/{index}", handlers.HandleSubItemUpdate(ctrl))
		se.Router.DELETE("/api/projects/{id}/items/{itemId}/decomposition/{category}/{index}", handlers.HandleSubItemDelete(ctrl))

		// ── Strategy, indirect costs, risks, local content ───────
		se.Router.GET("/api/projects/{id}/indirect", handlers.HandleIndirectView(ctrl))
		se.Router.PUT("/api/projects/{id}/strategy", handlers.HandleStrategySelect(ctrl))
		se.Router.PUT("/api/projects/{id}/indirect", handlers.HandleIndirectUpdate(ctrl))
		se.Router.GET("/api/projects/{id}/risks", handlers.HandleRiskList(ctrl))
		se.Router.POST("/api/projects/{id}/risks", handlers.HandleRiskCreate(ctrl))
		se.Router.DELETE("/api/projects/{id}/risks/{riskId}", handlers.HandleRiskDelete(ctrl))
		se.Router.PUT("/api/projects/{id}/local-content", handlers.HandleLocalContentUpdate(ctrl))

		// ── Pricing ──────────────────────────────────────────────
		se.Router.POST("/api/projects/{id}/price", handlers.HandlePrice(ctrl))
		se.Router.GET("/api/projects/{id}/result", handlers.HandleResult(ctrl, pdf))
		se.Router.GET("/api/projects/{id}/history", handlers.HandleHistory(ctrl))

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
