package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tenderpricing/pricing"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type advisorMock struct{ mock.Mock }

func (m *advisorMock) Advise(ctx context.Context, req AdvisoryRequest) ([]string, error) {
	args := m.Called(ctx, req)
	notes, _ := args.Get(0).([]string)
	return notes, args.Error(1)
}

func newTestController(opts ...Option) (*Controller, *MemorySessions, *MemoryHistory) {
	sessions := NewMemorySessions()
	history := NewMemoryHistory()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	c := New(sessions, history, pricing.DefaultSettings(), append(base, opts...)...)
	return c, sessions, history
}

// addLine appends one BoQ line, entering the BoQ stage first if needed.
func addLine(t *testing.T, c *Controller, id string, qty, price float64) {
	t.Helper()
	stage, err := c.CurrentStage(context.Background(), id)
	require.NoError(t, err)
	if stage < BoQStage {
		_, err = c.Jump(context.Background(), id, BoQStage)
		require.NoError(t, err)
	}
	_, err = c.EditBoQ(context.Background(), id, func(p *pricing.Project) error {
		_, err := p.AddItem(pricing.ItemInput{Code: "L", Description: "بند", Unit: "m2", Quantity: qty, UnitPrice: price})
		return err
	})
	require.NoError(t, err)
}

func toPricing(t *testing.T, c *Controller, id string) {
	t.Helper()
	_, err := c.Jump(context.Background(), id, FinalStage)
	require.NoError(t, err)
}

func TestAdvanceRequiresIdentity(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "مستشفى"})
	require.NoError(t, err)
	id := s.Project.ID

	_, err = c.Advance(ctx, id)
	require.ErrorIs(t, err, pricing.ErrStageBlocked)
	stage, err := c.CurrentStage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, stage)

	_, err = c.Mutate(ctx, id, func(p *pricing.Project) error {
		code := "H-7"
		return p.UpdateDetails(pricing.ProjectFields{Code: &code})
	})
	require.NoError(t, err)

	stage, err = c.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, stage)
	stage, err = c.CurrentStage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, stage)
}

func TestAdvanceRequiresItems(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	id := s.Project.ID

	_, err = c.Advance(ctx, id)
	require.NoError(t, err)
	_, err = c.Advance(ctx, id)
	require.ErrorIs(t, err, pricing.ErrStageBlocked)
	pe, _ := pricing.AsError(err)
	assert.Equal(t, "boq_not_empty", pe.Details["guard"])

	addLine(t, c, id, 1, 1)
	stage, err := c.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, stage)
}

func TestRetreatThenAdvanceLeavesProjectUnchanged(t *testing.T) {
	ctx := context.Background()
	c, sessions, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	id := s.Project.ID
	addLine(t, c, id, 3, 7)
	_, err = c.Jump(ctx, id, 4)
	require.NoError(t, err)

	before := sessions.Snapshot(id)
	_, err = c.Retreat(ctx, id)
	require.NoError(t, err)
	_, err = c.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(sessions.Snapshot(id)))
}

func TestStageBounds(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	id := s.Project.ID

	_, err = c.Retreat(ctx, id)
	assert.ErrorIs(t, err, pricing.ErrStageBlocked)

	_, err = c.Jump(ctx, id, 9)
	assert.ErrorIs(t, err, pricing.ErrInvalidInput)

	_, err = c.Jump(ctx, id, 3)
	assert.ErrorIs(t, err, pricing.ErrStageBlocked, "jumping over an empty BoQ is refused")

	addLine(t, c, id, 1, 1)
	_, err = c.Jump(ctx, id, 8)
	require.ErrorIs(t, err, pricing.ErrStageBlocked, "stage 8 needs a completed result")

	toPricing(t, c, id)
	_, err = c.Price(ctx, id)
	require.NoError(t, err)
	stage, err := c.Jump(ctx, id, 8)
	require.NoError(t, err)
	assert.Equal(t, ViewStage, stage)

	_, err = c.Advance(ctx, id)
	assert.ErrorIs(t, err, pricing.ErrStageBlocked)

	stage, err = c.Jump(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stage)
}

func TestMutateFailureLeavesSession(t *testing.T) {
	ctx := context.Background()
	c, sessions, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	id := s.Project.ID
	addLine(t, c, id, 2, 2)
	before := sessions.Snapshot(id)

	boom := errors.New("boom")
	_, err = c.Mutate(ctx, id, func(p *pricing.Project) error {
		_, _ = p.AddItem(pricing.ItemInput{Code: "X", Description: "x", Unit: "m", Quantity: 1, UnitPrice: 1})
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, string(before), string(sessions.Snapshot(id)))
}

func TestMutateDropsStaleResult(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	id := s.Project.ID
	addLine(t, c, id, 1, 100)
	toPricing(t, c, id)
	_, err = c.Price(ctx, id)
	require.NoError(t, err)
	_, err = c.Jump(ctx, id, 8)
	require.NoError(t, err)

	addLine(t, c, id, 1, 50)
	res, err := c.LatestResult(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, res)
	stage, _ := c.CurrentStage(ctx, id)
	assert.Equal(t, FinalStage, stage)
}

func TestPriceAppendsHistory(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	id := s.Project.ID
	addLine(t, c, id, 10, 100)
	toPricing(t, c, id)

	res, err := c.Price(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 1552.5, res.Summary.FinalPrice, 1e-9)

	_, err = c.Price(ctx, id)
	require.ErrorIs(t, err, pricing.ErrDuplicateHistoryEntry)

	hist, err := c.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	addLine(t, c, id, 1, 1)
	_, err = c.Price(ctx, id)
	require.NoError(t, err)
	hist, err = c.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestPriceRequiresPassedGuards(t *testing.T) {
	ctx := context.Background()
	blank := ""

	tests := []struct {
		name  string
		in    pricing.ProjectInput
		setup func(t *testing.T, c *Controller, id string)
		guard string
	}{
		{
			name:  "unnamed project at stage 1",
			in:    pricing.ProjectInput{},
			setup: func(t *testing.T, c *Controller, id string) {},
			guard: "pricing_stage",
		},
		{
			name:  "priced from the BoQ stage",
			in:    pricing.ProjectInput{Name: "n", Code: "c"},
			setup: func(t *testing.T, c *Controller, id string) { addLine(t, c, id, 10, 100) },
			guard: "pricing_stage",
		},
		{
			name: "code cleared after reaching pricing",
			in:   pricing.ProjectInput{Name: "n", Code: "c"},
			setup: func(t *testing.T, c *Controller, id string) {
				addLine(t, c, id, 10, 100)
				toPricing(t, c, id)
				_, err := c.Mutate(ctx, id, func(p *pricing.Project) error {
					return p.UpdateDetails(pricing.ProjectFields{Code: &blank})
				})
				require.NoError(t, err)
			},
			guard: "project_identity",
		},
		{
			name: "indirect rate broken after reaching pricing",
			in:   pricing.ProjectInput{Name: "n", Code: "c"},
			setup: func(t *testing.T, c *Controller, id string) {
				addLine(t, c, id, 10, 100)
				toPricing(t, c, id)
				_, err := c.Mutate(ctx, id, func(p *pricing.Project) error {
					p.Indirect.Overhead = 1.5
					return nil
				})
				require.NoError(t, err)
			},
			guard: "indirect_rates_in_range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, history := newTestController()
			s, err := c.Create(ctx, tt.in)
			require.NoError(t, err)
			tt.setup(t, c, s.Project.ID)

			res, err := c.Price(ctx, s.Project.ID)
			require.ErrorIs(t, err, pricing.ErrStageBlocked)
			assert.Nil(t, res)
			pe, ok := pricing.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.guard, pe.Details["guard"])

			list, _ := history.List(ctx, s.Project.ID)
			assert.Empty(t, list)
			latest, err := c.LatestResult(ctx, s.Project.ID)
			require.NoError(t, err)
			assert.Nil(t, latest)
		})
	}
}

func TestEditBoQRequiresBoQStage(t *testing.T) {
	ctx := context.Background()
	c, sessions, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	id := s.Project.ID
	before := sessions.Snapshot(id)

	_, err = c.EditBoQ(ctx, id, func(p *pricing.Project) error {
		_, err := p.AddItem(pricing.ItemInput{Code: "L", Description: "بند", Unit: "m2", Quantity: 1, UnitPrice: 1})
		return err
	})
	require.ErrorIs(t, err, pricing.ErrStageBlocked)
	pe, _ := pricing.AsError(err)
	assert.Equal(t, "boq_stage", pe.Details["guard"])
	assert.Equal(t, string(before), string(sessions.Snapshot(id)))

	_, err = c.ImportRows(ctx, id, []pricing.Row{
		{"code": "1", "description": "a", "unit": "m", "quantity": 1, "unit_price": 1},
	})
	require.ErrorIs(t, err, pricing.ErrStageBlocked)

	addLine(t, c, id, 1, 1)
	got, err := c.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, BoQStage, got.Stage)
	assert.Equal(t, 1, got.Project.ItemCount())
}

func TestAdvisorNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("notes appended", func(t *testing.T) {
		adv := new(advisorMock)
		adv.On("Advise", mock.Anything, mock.AnythingOfType("workflow.AdvisoryRequest")).
			Return([]string{"راجع أسعار الحديد"}, nil).Once()
		c, _, _ := newTestController(WithAdvisor(adv))
		s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
		require.NoError(t, err)
		addLine(t, c, s.Project.ID, 1, 10)
		toPricing(t, c, s.Project.ID)

		res, err := c.Price(ctx, s.Project.ID)
		require.NoError(t, err)
		assert.Contains(t, res.Summary.Notes, "راجع أسعار الحديد")
		adv.AssertExpectations(t)
	})

	t.Run("failure does not block pricing", func(t *testing.T) {
		adv := new(advisorMock)
		adv.On("Advise", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
		c, _, _ := newTestController(WithAdvisor(adv))
		s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
		require.NoError(t, err)
		addLine(t, c, s.Project.ID, 1, 10)
		toPricing(t, c, s.Project.ID)

		res, err := c.Price(ctx, s.Project.ID)
		require.NoError(t, err)
		assert.True(t, res.Complete())
		assert.InDelta(t, 13.5*1.15, res.Summary.FinalPrice, 1e-9)
	})
}

func TestImportRowsReport(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	s, err := c.Create(ctx, pricing.ProjectInput{Name: "n", Code: "c"})
	require.NoError(t, err)
	_, err = c.Advance(ctx, s.Project.ID)
	require.NoError(t, err)

	report, err := c.ImportRows(ctx, s.Project.ID, []pricing.Row{
		{"code": "1", "description": "a", "unit": "m", "quantity": 1, "unit_price": 1},
		{"code": "2", "description": "b", "unit": "m"},
	})
	require.ErrorIs(t, err, pricing.ErrImportRowRejected)
	assert.Len(t, report.Accepted, 1)

	got, err := c.Session(ctx, s.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Project.ItemCount())
}

func TestUnknownProject(t *testing.T) {
	c, _, _ := newTestController()
	_, err := c.Advance(context.Background(), "nope")
	assert.ErrorIs(t, err, pricing.ErrMissingProject)
	_, err = c.History(context.Background(), "nope")
	assert.ErrorIs(t, err, pricing.ErrMissingProject)
}

func TestProjectsListing(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	a, err := c.Create(ctx, pricing.ProjectInput{Name: "a", Code: "1"})
	require.NoError(t, err)
	_, err = c.Create(ctx, pricing.ProjectInput{Name: "b", Code: "2"})
	require.NoError(t, err)
	addLine(t, c, a.Project.ID, 1, 1)

	list, err := c.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, s := range list {
		if s.ProjectID == a.Project.ID {
			assert.Equal(t, 1, s.Items)
		}
	}
}
