package services

import (
	"math"
	"testing"

	"tenderpricing/pricing"
)

func TestBuildExportData_Rows(t *testing.T) {
	p, res := pricedProject(t)
	data := BuildExportData(res, p, pricing.DefaultSettings())

	if data.Title != "مدرسة الحي" || data.Code != "T-100" {
		t.Errorf("unexpected header: %q %q", data.Title, data.Code)
	}
	if data.Strategy != "شامل" {
		t.Errorf("Strategy = %q, want label of comprehensive", data.Strategy)
	}
	if data.PricedAt != "2026-03-01 09:30:00" {
		t.Errorf("PricedAt = %q", data.PricedAt)
	}

	// A1, its two sub-items, then A2.
	wantIndex := []string{"1", "1.1", "1.2", "2"}
	wantLevel := []int{0, 1, 1, 0}
	if len(data.Rows) != len(wantIndex) {
		t.Fatalf("got %d rows, want %d", len(data.Rows), len(wantIndex))
	}
	for i, r := range data.Rows {
		if r.Index != wantIndex[i] || r.Level != wantLevel[i] {
			t.Errorf("row %d = (%q, %d), want (%q, %d)", i, r.Index, r.Level, wantIndex[i], wantLevel[i])
		}
	}
	if data.Rows[1].Code != "المواد" || data.Rows[2].Code != "العمالة" {
		t.Errorf("sub-item rows should carry category labels, got %q %q", data.Rows[1].Code, data.Rows[2].Code)
	}
	if data.Rows[0].UOM != "م3" {
		t.Errorf("UOM = %q, want Arabic label", data.Rows[0].UOM)
	}
	if math.Abs(data.Rows[0].FinalTotalPrice-1400) > 1e-9 {
		t.Errorf("FinalTotalPrice = %v, want 1400", data.Rows[0].FinalTotalPrice)
	}
}

func TestBuildExportData_Summary(t *testing.T) {
	_, res := pricedProject(t)
	data := BuildExportData(res, nil, pricing.DefaultSettings())

	if len(data.Rows) != 2 {
		t.Errorf("without a project only BoQ lines are listed, got %d rows", len(data.Rows))
	}
	last := data.Summary[len(data.Summary)-1]
	if !last.Total || math.Abs(last.Value-2415) > 1e-9 {
		t.Errorf("final line = %+v, want total 2415", last)
	}
	if data.Summary[0].Value != 1500 {
		t.Errorf("direct line = %v, want 1500", data.Summary[0].Value)
	}
	if len(data.Risks) != 1 || data.Risks[0].Applied != 75 {
		t.Errorf("unexpected risks: %+v", data.Risks)
	}
}

func TestBuildExportData_UnknownStrategyKeepsTag(t *testing.T) {
	_, res := pricedProject(t)
	data := BuildExportData(res, nil, pricing.Settings{})
	if data.Strategy != string(pricing.StrategyComprehensive) {
		t.Errorf("Strategy = %q, want raw tag", data.Strategy)
	}
}
