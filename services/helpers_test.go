package services

import (
	"bytes"
	"testing"
	"time"

	"tenderpricing/pricing"
)

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// bytesReader wraps a byte slice in a bytes.Reader for use with excelize.OpenReader.
func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

// pricedProject builds a two-line project, decomposes the first line and
// prices it with the comprehensive strategy.
func pricedProject(t *testing.T) (*pricing.Project, *pricing.Result) {
	t.Helper()

	p, err := pricing.NewProject(pricing.ProjectInput{Name: "مدرسة الحي", Code: "T-100"}, pricing.DefaultSettings(), testNow)
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	first, err := p.AddItem(pricing.ItemInput{Code: "A1", Description: "خرسانة مسلحة", Unit: "m3", Quantity: 10, UnitPrice: 0})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := p.AddSubItem(first, pricing.CategoryMaterial, "أسمنت", "كيس", 10, 50); err != nil {
		t.Fatalf("AddSubItem: %v", err)
	}
	if err := p.AddSubItem(first, pricing.CategoryLabour, "عامل", "يوم", 5, 100); err != nil {
		t.Fatalf("AddSubItem: %v", err)
	}
	if _, err := p.ApplyDecomposition(first); err != nil {
		t.Fatalf("ApplyDecomposition: %v", err)
	}
	if _, err := p.AddItem(pricing.ItemInput{Code: "A2", Description: "=SUM(A1)", Unit: "m2", Quantity: 2, UnitPrice: 250}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := p.AddRisk(pricing.RiskInput{
		Category: "financial", Description: "تقلب أسعار الحديد", Probability: 2, Impact: 4, CostImpact: 0.1,
	}); err != nil {
		t.Fatalf("AddRisk: %v", err)
	}

	res, err := pricing.Assemble(p, pricing.DefaultSettings(), func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return p, res
}
