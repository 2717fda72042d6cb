package collections

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"tenderpricing/pricing"
	"tenderpricing/workflow"
)

// ── Definition structs ───────────────────────────────────────────────────

type subDef struct {
	category  pricing.Category
	name      string
	unit      string
	quantity  float64
	unitPrice float64
}

type itemDef struct {
	code        string
	description string
	unit        pricing.Unit
	quantity    float64
	unitPrice   float64
	category    string
	subs        []subDef
}

type riskDef struct {
	category    pricing.RiskCategory
	description string
	probability pricing.Level
	impact      pricing.Level
	costImpact  float64
	response    string
}

// DemoProjectCode identifies the seeded sample tender.
const DemoProjectCode = "DEMO-001"

var demoItems = []itemDef{
	{
		code: "01-001", description: "أعمال الحفر لأساسات المبنى حتى منسوب -2.00 م", unit: pricing.UnitVolume,
		quantity: 850, unitPrice: 18, category: "أعمال ترابية",
	},
	{
		code: "02-001", description: "خرسانة مسلحة للقواعد والميد بقوة 30 نيوتن", unit: pricing.UnitVolume,
		quantity: 240, category: "أعمال خرسانية",
		subs: []subDef{
			{pricing.CategoryMaterial, "خرسانة جاهزة", "م3", 1.02, 260},
			{pricing.CategoryMaterial, "حديد تسليح", "طن", 0.11, 2900},
			{pricing.CategoryLabour, "نجار", "يوم", 0.6, 180},
			{pricing.CategoryLabour, "حداد", "يوم", 0.5, 180},
			{pricing.CategoryEquipment, "مضخة خرسانة", "ساعة", 0.1, 350},
			{pricing.CategoryEquipment, "هزاز خرسانة", "يوم", 0.05, 90},
		},
	},
	{
		code: "03-001", description: "مباني بلوك خرساني مفرغ سماكة 20 سم", unit: pricing.UnitArea,
		quantity: 1600, unitPrice: 65, category: "أعمال المباني",
	},
	{
		code: "04-001", description: "عزل مائي للأسطح بطبقتين من الرولات", unit: pricing.UnitArea,
		quantity: 720, unitPrice: 42, category: "أعمال العزل",
	},
	{
		code: "05-001", description: "تجهيز الموقع والمكاتب المؤقتة", unit: pricing.UnitLumpSum,
		quantity: 1, unitPrice: 45000, category: "أعمال عامة",
	},
}

var demoRisks = []riskDef{
	{pricing.RiskFinancial, "ارتفاع أسعار حديد التسليح خلال فترة التنفيذ", 3, 3, 0.04, "تثبيت الأسعار مع المورد عند الترسية"},
	{pricing.RiskTechnical, "منسوب مياه جوفية أعلى من المتوقع", 2, 4, 0.03, "إجراء جسات إضافية قبل الحفر"},
	{pricing.RiskContractual, "تأخر صرف المستخلصات", 2, 2, 0.02, ""},
}

// Seed inserts a sample tender when no session exists yet.
func Seed(app core.App, settings pricing.Settings) error {
	// ── idempotency: skip if sessions already exist ──────────────────
	existing, err := app.FindAllRecords(SessionsCollection)
	if err != nil {
		return fmt.Errorf("seed: could not query sessions: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	log.Println("seed: pricing_sessions collection is empty – inserting demo tender …")

	p, err := pricing.NewProject(pricing.ProjectInput{
		Name:         "مجمع مدارس حي النرجس",
		Code:         DemoProjectCode,
		Location:     "الرياض",
		StartDate:    "2026-09-01",
		DurationDays: 540,
		Budget:       1_500_000,
		Description:  "إنشاء مبنى تعليمي من دورين مع الأعمال الخارجية",
		Strategy:     pricing.StrategyBalanced,
	}, settings, time.Now())
	if err != nil {
		return fmt.Errorf("seed: project: %w", err)
	}

	for _, d := range demoItems {
		id, err := p.AddItem(pricing.ItemInput{
			Code: d.code, Description: d.description, Unit: string(d.unit),
			Quantity: d.quantity, UnitPrice: d.unitPrice, Category: d.category,
		})
		if err != nil {
			return fmt.Errorf("seed: item %s: %w", d.code, err)
		}
		if len(d.subs) == 0 {
			continue
		}
		for _, s := range d.subs {
			if err := p.AddSubItem(id, s.category, s.name, s.unit, s.quantity*d.quantity, s.unitPrice); err != nil {
				return fmt.Errorf("seed: sub-item %s/%s: %w", d.code, s.name, err)
			}
		}
		if _, err := p.ApplyDecomposition(id); err != nil {
			return fmt.Errorf("seed: apply %s: %w", d.code, err)
		}
	}

	for _, r := range demoRisks {
		if _, err := p.AddRisk(pricing.RiskInput{
			Category: string(r.category), Description: r.description,
			Probability: r.probability, Impact: r.impact, CostImpact: r.costImpact, Response: r.response,
		}); err != nil {
			return fmt.Errorf("seed: risk: %w", err)
		}
	}

	if err := p.SetLocalContent(pricing.LocalContent{Materials: 0.7, Equipment: 0.4, Labour: 0.35, Subcontractors: 0.8}); err != nil {
		return fmt.Errorf("seed: local content: %w", err)
	}

	store := NewSessionStore(app)
	sess := &workflow.Session{Stage: workflow.BoQStage, Project: p, UpdatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := store.Save(context.Background(), sess); err != nil {
		return fmt.Errorf("seed: save: %w", err)
	}

	log.Printf("seed: demo tender %q created with %d items\n", p.Code, p.ItemCount())
	return nil
}
