package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tenderpricing/pricing"
)

// Controller enforces the stage workflow over a session store. It keeps no
// state of its own between calls; every handler loads the session, applies
// one change and saves it back.
type Controller struct {
	sessions SessionStore
	history  HistoryStore
	settings pricing.Settings
	advisor  Advisor
	now      pricing.Clock
	log      *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithAdvisor attaches an advisory-notes source.
func WithAdvisor(a Advisor) Option { return func(c *Controller) { c.advisor = a } }

// WithClock pins the clock used for timestamps.
func WithClock(now pricing.Clock) Option { return func(c *Controller) { c.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

// New builds a controller.
func New(sessions SessionStore, history HistoryStore, settings pricing.Settings, opts ...Option) *Controller {
	c := &Controller{
		sessions: sessions,
		history:  history,
		settings: settings,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With(slog.String("component", "workflow"))
	return c
}

// Settings returns the constants block the controller prices with.
func (c *Controller) Settings() pricing.Settings { return c.settings }

// Create starts a new session at stage 1.
func (c *Controller) Create(ctx context.Context, in pricing.ProjectInput) (*Session, error) {
	p, err := pricing.NewProject(in, c.settings, c.now())
	if err != nil {
		return nil, err
	}
	s := &Session{Stage: FirstStage, Project: p}
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}
	c.log.Info("project created", slog.String("project_id", p.ID), slog.String("name", p.Name))
	return s, nil
}

// Session loads the session of projectID.
func (c *Controller) Session(ctx context.Context, projectID string) (*Session, error) {
	return c.sessions.Load(ctx, projectID)
}

// Projects lists all sessions.
func (c *Controller) Projects(ctx context.Context) ([]Summary, error) {
	return c.sessions.List(ctx)
}

// Delete drops the session of projectID. Its pricing history is kept.
func (c *Controller) Delete(ctx context.Context, projectID string) error {
	if err := c.sessions.Delete(ctx, projectID); err != nil {
		return err
	}
	c.log.Info("project deleted", slog.String("project_id", projectID))
	return nil
}

// CurrentStage returns the stage of projectID, 1..8.
func (c *Controller) CurrentStage(ctx context.Context, projectID string) (int, error) {
	s, err := c.sessions.Load(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return s.Stage, nil
}

// Advance moves one stage forward when the current stage's guard holds.
func (c *Controller) Advance(ctx context.Context, projectID string) (int, error) {
	s, err := c.sessions.Load(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if s.Stage >= ViewStage {
		return s.Stage, pricing.StageBlocked(s.Stage, "last_stage", "هذه هي المرحلة الأخيرة")
	}
	if err := checkGuard(s.Stage, s); err != nil {
		return s.Stage, err
	}
	s.Stage++
	if err := c.save(ctx, s); err != nil {
		return 0, err
	}
	c.log.Debug("stage advanced", slog.String("project_id", projectID), slog.Int("stage", s.Stage))
	return s.Stage, nil
}

// Retreat moves one stage back. Stage 1 cannot retreat.
func (c *Controller) Retreat(ctx context.Context, projectID string) (int, error) {
	s, err := c.sessions.Load(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if s.Stage <= FirstStage {
		return s.Stage, pricing.StageBlocked(s.Stage, "first_stage", "هذه هي المرحلة الأولى")
	}
	s.Stage--
	if err := c.save(ctx, s); err != nil {
		return 0, err
	}
	return s.Stage, nil
}

// Jump moves to stage to. Moving forward requires every stage passed over
// to satisfy its guard; moving back is always allowed.
func (c *Controller) Jump(ctx context.Context, projectID string, to int) (int, error) {
	if to < FirstStage || to > ViewStage {
		return 0, &pricing.Error{
			Kind:    pricing.ErrInvalidInput,
			Message: "رقم المرحلة غير صالح",
			Details: map[string]any{"stage": to},
		}
	}
	s, err := c.sessions.Load(ctx, projectID)
	if err != nil {
		return 0, err
	}
	for st := s.Stage; st < to; st++ {
		if err := checkGuard(st, s); err != nil {
			return s.Stage, err
		}
	}
	s.Stage = to
	if err := c.save(ctx, s); err != nil {
		return 0, err
	}
	return s.Stage, nil
}

// Mutate applies fn to a copy of the project and stores the copy only when
// fn succeeds, so a failed handler leaves the session untouched. A stored
// change discards the session's result, which no longer describes the
// project.
func (c *Controller) Mutate(ctx context.Context, projectID string, fn func(p *pricing.Project) error) (*Session, error) {
	return c.mutate(ctx, projectID, nil, fn)
}

// EditBoQ is Mutate for changes to BoQ lines and their decompositions.
// Lines can only be touched once the session has entered the BoQ stage,
// which it reaches only with a named and coded project.
func (c *Controller) EditBoQ(ctx context.Context, projectID string, fn func(p *pricing.Project) error) (*Session, error) {
	return c.mutate(ctx, projectID, func(s *Session) error {
		if s.Stage < BoQStage {
			return pricing.StageBlocked(s.Stage, "boq_stage", "لا يمكن تعديل جدول الكميات قبل الانتقال إلى مرحلته")
		}
		return checkGuard(FirstStage, s)
	}, fn)
}

// ImportRows bulk-appends BoQ rows. Accepted rows are stored even when
// others are rejected; the returned error then wraps
// pricing.ErrImportRowRejected.
func (c *Controller) ImportRows(ctx context.Context, projectID string, rows []pricing.Row) (pricing.ImportReport, error) {
	var report pricing.ImportReport
	_, err := c.EditBoQ(ctx, projectID, func(p *pricing.Project) error {
		report = p.ImportRows(rows)
		return nil
	})
	if err != nil {
		return report, err
	}
	c.log.Info("boq rows imported",
		slog.String("project_id", projectID),
		slog.Int("accepted", len(report.Accepted)),
		slog.Int("rejected", len(report.Rejected)))
	return report, report.Err()
}

// Price runs final assembly, attaches advisory notes and appends the
// result to history. The session must be at the pricing stage. A duplicate history entry is reported alongside the
// result; the session still records it.
func (c *Controller) Price(ctx context.Context, projectID string) (*pricing.Result, error) {
	s, err := c.sessions.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := readyToPrice(s); err != nil {
		return nil, err
	}
	res, err := pricing.Assemble(s.Project, c.settings, c.now)
	if err != nil {
		if res != nil {
			c.log.Error("pricing failed", slog.String("project_id", projectID), slog.Any("error", err))
		}
		return res, err
	}

	c.attachAdvice(ctx, s.Project, res)

	var warn error
	if err := c.history.Append(ctx, res); err != nil {
		if !errors.Is(err, pricing.ErrDuplicateHistoryEntry) {
			return nil, fmt.Errorf("append pricing history: %w", err)
		}
		warn = err
	}

	s.Result = res
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}
	c.log.Info("project priced",
		slog.String("project_id", projectID),
		slog.String("strategy", string(res.Strategy)),
		slog.Float64("final_price", res.Summary.FinalPrice))
	return res, warn
}

// LatestResult returns the session's result, or nil.
func (c *Controller) LatestResult(ctx context.Context, projectID string) (*pricing.Result, error) {
	s, err := c.sessions.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.Result, nil
}

// History lists the stored results of projectID in append order.
func (c *Controller) History(ctx context.Context, projectID string) ([]*pricing.Result, error) {
	if _, err := c.sessions.Load(ctx, projectID); err != nil {
		return nil, err
	}
	return c.history.List(ctx, projectID)
}

// readyToPrice holds once the session sits at the pricing stage and every
// guard on the way there still passes; edits made since reaching it may
// have broken one.
func readyToPrice(s *Session) error {
	if s.Stage < FinalStage {
		return pricing.StageBlocked(s.Stage, "pricing_stage", "لا يمكن التسعير قبل الوصول إلى مرحلة التسعير النهائي")
	}
	for st := FirstStage; st < FinalStage; st++ {
		if err := checkGuard(st, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) mutate(ctx context.Context, projectID string, check func(s *Session) error, fn func(p *pricing.Project) error) (*Session, error) {
	s, err := c.sessions.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(s); err != nil {
			return s, err
		}
	}
	work := s.Project.Clone()
	if err := fn(work); err != nil {
		return s, err
	}
	s.Project = work
	if s.Result != nil {
		s.Result = nil
		if s.Stage > FinalStage {
			s.Stage = FinalStage
		}
	}
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Controller) attachAdvice(ctx context.Context, p *pricing.Project, res *pricing.Result) {
	if c.advisor == nil {
		return
	}
	notes, err := c.advisor.Advise(ctx, AdvisoryRequest{
		ProjectName: p.Name,
		Strategy:    res.Strategy,
		Summary:     res.Summary,
		Risks:       res.Risk.Items,
	})
	if err != nil {
		c.log.Warn("advisor unavailable", slog.String("project_id", p.ID), slog.Any("error", err))
		res.Summary.Notes = append(res.Summary.Notes, "تعذر الحصول على توصيات المساعد الذكي")
		return
	}
	res.Summary.Notes = append(res.Summary.Notes, notes...)
}

func (c *Controller) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = c.now().UTC().Truncate(time.Second)
	if err := c.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %s: %w", s.Project.ID, err)
	}
	return nil
}

// IsDuplicate reports whether two results share project, end timestamp and
// final price.
func IsDuplicate(a, b *pricing.Result) bool {
	return a.ProjectID == b.ProjectID &&
		a.EndTime.String() == b.EndTime.String() &&
		a.Summary.FinalPrice == b.Summary.FinalPrice
}
