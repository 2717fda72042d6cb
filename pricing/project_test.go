package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewProject(t *testing.T) {
	tests := []struct {
		name    string
		in      ProjectInput
		wantErr bool
	}{
		{"identity can be empty at creation", ProjectInput{}, false},
		{"full envelope", ProjectInput{Name: "برج", Code: "P-1", StartDate: "2026-05-01", DurationDays: 180, Budget: 5e6}, false},
		{"negative duration", ProjectInput{Name: "x", Code: "y", DurationDays: -1}, true},
		{"negative budget", ProjectInput{Name: "x", Code: "y", Budget: -10}, true},
		{"bad date", ProjectInput{Name: "x", Code: "y", StartDate: "01/05/2026"}, true},
		{"unknown strategy", ProjectInput{Name: "x", Code: "y", Strategy: "greedy"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProject(tt.in, DefaultSettings(), fixedNow)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, StrategyComprehensive, p.Strategy)
			assert.InDelta(t, 0.35, p.Indirect.Sum(), 1e-9)
		})
	}
}

func TestDurationMessageMatchesRule(t *testing.T) {
	_, err := NewProject(ProjectInput{Name: "x", Code: "y", DurationDays: -5}, DefaultSettings(), fixedNow)
	require.ErrorIs(t, err, ErrInvalidInput)
	pe, _ := AsError(err)
	fields, _ := pe.Details["fields"].(map[string]string)
	assert.Contains(t, fields["duration_days"], "سالبة")

	p, err := NewProject(ProjectInput{Name: "x", Code: "y"}, DefaultSettings(), fixedNow)
	require.NoError(t, err, "zero duration means not entered yet")
	assert.Zero(t, p.DurationDays)
}

func TestHasIdentity(t *testing.T) {
	p := newTestProject(t, "")
	assert.True(t, p.HasIdentity())
	require.NoError(t, p.UpdateDetails(ProjectFields{Code: ptr("   ")}))
	assert.False(t, p.HasIdentity())
}

func TestItemLifecycle(t *testing.T) {
	p := newTestProject(t, "")
	a := addItem(t, p, "A", 2, 10)
	b := addItem(t, p, "B", 3, 10)
	c := addItem(t, p, "A", 1, 5)

	assert.Equal(t, 3, p.ItemCount(), "duplicate codes are kept")
	assert.InDelta(t, 55, p.DirectCost(), 1e-9)

	require.NoError(t, p.UpdateItem(b, ItemFields{Quantity: ptr(4.0)}))
	it, _ := p.Item(b)
	assert.InDelta(t, 40, it.TotalPrice, 1e-9)
	assert.InDelta(t, 65, p.DirectCost(), 1e-9)

	require.NoError(t, p.DeleteItem(a))
	ids := []string{}
	for _, it := range p.Items() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{b, c}, ids)
	assert.InDelta(t, 45, p.DirectCost(), 1e-9)

	err := p.DeleteItem(a)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddItemValidation(t *testing.T) {
	p := newTestProject(t, "")
	tests := []struct {
		name  string
		in    ItemInput
		field string
	}{
		{"missing code", ItemInput{Description: "d", Unit: "m2"}, "code"},
		{"unknown unit", ItemInput{Code: "c", Description: "d", Unit: "furlong"}, "unit"},
		{"negative quantity", ItemInput{Code: "c", Description: "d", Unit: "m2", Quantity: -1}, "quantity"},
		{"negative price", ItemInput{Code: "c", Description: "d", Unit: "m2", UnitPrice: -0.5}, "unit_price"},
		{"total overflows", ItemInput{Code: "c", Description: "d", Unit: "m2", Quantity: 10, UnitPrice: 1.7e308}, "unit_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.AddItem(tt.in)
			require.ErrorIs(t, err, ErrInvalidInput)
			pe, _ := AsError(err)
			fields, _ := pe.Details["fields"].(map[string]string)
			assert.Contains(t, fields, tt.field)
		})
	}
	assert.Zero(t, p.ItemCount())
}

func TestLineTotalsStayFinite(t *testing.T) {
	p := newTestProject(t, "")
	id := addItem(t, p, "A", 10, 1e307)

	err := p.UpdateItem(id, ItemFields{Quantity: ptr(100.0)})
	require.ErrorIs(t, err, ErrInvalidInput)
	it, _ := p.Item(id)
	assert.InDelta(t, 10, it.Quantity, 1e-9)

	err = p.AddSubItem(id, CategoryMaterial, "حديد", "طن", 1e200, 1e200)
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, p.AddSubItem(id, CategoryMaterial, "حديد", "طن", 1, 1.5e308))
	require.NoError(t, p.AddSubItem(id, CategoryLabour, "عامل", "يوم", 1, 1.5e308))
	_, err = p.ApplyDecomposition(id)
	require.ErrorIs(t, err, ErrInvalidInput)
	it, _ = p.Item(id)
	assert.InDelta(t, 1e307, it.UnitPrice, 1e293)
}

func TestArabicUnitAccepted(t *testing.T) {
	p := newTestProject(t, "")
	id, err := p.AddItem(ItemInput{Code: "U", Description: "بلاط", Unit: "م²", Quantity: 1, UnitPrice: 1})
	require.NoError(t, err)
	it, _ := p.Item(id)
	assert.Equal(t, UnitArea, it.Unit)
}

func TestDirectCostCache(t *testing.T) {
	p := newTestProject(t, "")
	id := addItem(t, p, "K", 2, 5)
	assert.InDelta(t, 10, p.DirectCost(), 1e-9)
	rev := p.Revision()

	require.NoError(t, p.AddSubItem(id, CategoryMaterial, "رمل", "", 4, 10))
	assert.Greater(t, p.Revision(), rev)
	_, err := p.ApplyDecomposition(id)
	require.NoError(t, err)
	assert.InDelta(t, 40, p.DirectCost(), 1e-9)
}

func TestDecompositionIndices(t *testing.T) {
	p := newTestProject(t, "")
	id := addItem(t, p, "D", 1, 0)
	for _, name := range []string{"أسمنت", "رمل", "حصى"} {
		require.NoError(t, p.AddSubItem(id, CategoryMaterial, name, "", 1, 10))
	}
	require.NoError(t, p.DeleteSubItem(id, CategoryMaterial, 0))

	it, _ := p.Item(id)
	names := []string{}
	for _, s := range it.Decomposition.Items(CategoryMaterial) {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"رمل", "حصى"}, names)

	require.NoError(t, p.UpdateSubItem(id, CategoryMaterial, 1, SubItemFields{UnitPrice: ptr(30.0)}))
	it, _ = p.Item(id)
	assert.InDelta(t, 30, it.Decomposition.Materials[1].Total, 1e-9)

	err := p.UpdateSubItem(id, CategoryMaterial, 2, SubItemFields{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	err = p.AddSubItem(id, Category("tools"), "x", "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestApplyDecompositionEdges(t *testing.T) {
	t.Run("no decomposition", func(t *testing.T) {
		p := newTestProject(t, "")
		id := addItem(t, p, "E", 1, 10)
		_, err := p.ApplyDecomposition(id)
		assert.ErrorIs(t, err, ErrNoDecomposition)
		it, _ := p.Item(id)
		assert.InDelta(t, 10, it.UnitPrice, 1e-9)
	})

	t.Run("zero parent quantity keeps unit price", func(t *testing.T) {
		p := newTestProject(t, "")
		id := addItem(t, p, "E", 0, 7)
		require.NoError(t, p.AddSubItem(id, CategoryLabour, "نجار", "", 2, 100))
		roll, err := p.ApplyDecomposition(id)
		require.NoError(t, err)
		assert.InDelta(t, 200, roll.GrandTotal, 1e-9)
		it, _ := p.Item(id)
		assert.InDelta(t, 7, it.UnitPrice, 1e-9)
		assert.InDelta(t, 0, it.TotalPrice, 1e-9)
	})

	t.Run("cleared decomposition", func(t *testing.T) {
		p := newTestProject(t, "")
		id := addItem(t, p, "E", 1, 1)
		require.NoError(t, p.AddSubItem(id, CategoryEquipment, "رافعة", "", 1, 1))
		require.NoError(t, p.ClearDecomposition(id))
		err := p.DeleteSubItem(id, CategoryEquipment, 0)
		assert.ErrorIs(t, err, ErrNoDecomposition)
	})
}

func TestStrategyResetsRates(t *testing.T) {
	p := newTestProject(t, StrategyComprehensive)
	require.NoError(t, p.SetIndirectRates(IndirectRates{Overhead: 0.5}))
	assert.Equal(t, StrategyComprehensive, p.Strategy)

	require.NoError(t, p.SetStrategy(StrategyCompetitive, DefaultSettings()))
	assert.InDelta(t, 0.28, p.Indirect.Sum(), 1e-9)

	err := p.SetIndirectRates(IndirectRates{Profit: 1.2})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.InDelta(t, 0.07, p.Indirect.Profit, 1e-9)

	require.NoError(t, p.SetIndirectRates(IndirectRates{Overhead: 1, Profit: 1}))
	assert.InDelta(t, 2, p.Indirect.Sum(), 1e-9)
}

func TestRisks(t *testing.T) {
	p := newTestProject(t, "")
	_, err := p.AddRisk(RiskInput{Category: "technical", Description: "x", Probability: 5, Impact: 1})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = p.AddRisk(RiskInput{Category: "weather", Description: "x", Probability: 1, Impact: 1})
	require.ErrorIs(t, err, ErrInvalidInput)

	id, err := p.AddRisk(RiskInput{Category: "مالية", Description: "تأخر الدفعات", Probability: 4, Impact: 4, CostImpact: 1.7})
	require.NoError(t, err)
	require.Len(t, p.Risks, 1)
	assert.Equal(t, RiskFinancial, p.Risks[0].Category)
	assert.InDelta(t, 1, p.Risks[0].CostImpact, 1e-9)

	c := ChargeRisk(1000, p.Risks[0], 1)
	assert.InDelta(t, 1000, c.Raw, 1e-9, "raw charge is bounded by direct · cost_impact")

	m := RiskMatrix(p.Risks)
	assert.Equal(t, 1, m[3][3])

	require.NoError(t, p.RemoveRisk(id))
	assert.Empty(t, p.Risks)
	assert.ErrorIs(t, p.RemoveRisk(id), ErrInvalidInput)
}

func TestRiskLevelMessagesAreArabic(t *testing.T) {
	for _, in := range []RiskInput{
		{Category: "technical", Description: "x", Probability: -1, Impact: 1},
		{Category: "technical", Description: "x", Probability: 1, Impact: -3},
	} {
		_, err := NewRisk(in)
		require.ErrorIs(t, err, ErrInvalidInput)
		pe, _ := AsError(err)
		fields, _ := pe.Details["fields"].(map[string]string)
		require.NotEmpty(t, fields)
		for field, msg := range fields {
			assert.Contains(t, msg, "من 1 إلى 4", field)
			assert.NotContains(t, msg, "must be", field)
		}
	}
}

func TestRiskInputUnmarshalLevels(t *testing.T) {
	var in RiskInput
	require.NoError(t, json.Unmarshal([]byte(`{"category":"technical","description":"d","probability":"likely","impact":"high"}`), &in))
	assert.Equal(t, Level(3), in.Probability)
	assert.Equal(t, Level(3), in.Impact)
	assert.Equal(t, "technical", in.Category)

	require.NoError(t, json.Unmarshal([]byte(`{"probability":"نادر","impact":4}`), &in))
	assert.Equal(t, Level(1), in.Probability)
	assert.Equal(t, Level(4), in.Impact)

	err := json.Unmarshal([]byte(`{"probability":"often","impact":1}`), &in)
	require.ErrorIs(t, err, ErrInvalidInput)
	pe, _ := AsError(err)
	assert.Equal(t, "probability", pe.Details["field"])
}

func TestLocalContentValidation(t *testing.T) {
	p := newTestProject(t, "")
	err := p.SetLocalContent(LocalContent{Labour: 1.1})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.NoError(t, p.SetLocalContent(LocalContent{Labour: 1}))
	assert.InDelta(t, 30, LocalContentPercent(p.LocalContent, DefaultLocalWeights), 1e-9)
}

func TestCloneIsIndependent(t *testing.T) {
	p := newTestProject(t, "")
	id := addItem(t, p, "C", 1, 10)
	require.NoError(t, p.AddSubItem(id, CategoryMaterial, "طوب", "", 1, 1))

	c := p.Clone()
	require.NoError(t, c.UpdateItem(id, ItemFields{UnitPrice: ptr(99.0)}))
	require.NoError(t, c.AddSubItem(id, CategoryMaterial, "بلاط", "", 1, 1))

	orig, _ := p.Item(id)
	assert.InDelta(t, 10, orig.UnitPrice, 1e-9)
	assert.Len(t, orig.Decomposition.Materials, 1)
}

func TestProjectJSONRoundTrip(t *testing.T) {
	p := newTestProject(t, StrategyBalanced)
	id := addItem(t, p, "J", 3, 4)
	require.NoError(t, p.AddSubItem(id, CategoryLabour, "حداد", "يوم", 2, 6))
	_, err := p.AddRisk(RiskInput{Category: "operational", Description: "نقص العمالة", Probability: 2, Impact: 2, CostImpact: 0.02})
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var back Project
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p.Items(), back.Items())
	assert.Equal(t, p.Risks, back.Risks)
	assert.InDelta(t, p.DirectCost(), back.DirectCost(), 1e-9)

	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(again))
}
