package workflow

import (
	"tenderpricing/pricing"
)

// guard decides whether a session may leave its stage going forward.
type guard func(s *Session) error

// guards is keyed by the stage being left. Stages without an entry have no
// extra condition.
var guards = map[int]guard{
	1: func(s *Session) error {
		if !s.Project.HasIdentity() {
			return pricing.StageBlocked(1, "project_identity", "يجب إدخال اسم المشروع ورمزه قبل الانتقال إلى جدول الكميات")
		}
		return nil
	},
	2: func(s *Session) error {
		if s.Project.ItemCount() == 0 {
			return pricing.StageBlocked(2, "boq_not_empty", "يجب إضافة بند واحد على الأقل إلى جدول الكميات")
		}
		return nil
	},
	5: func(s *Session) error {
		if err := s.Project.Indirect.Validate(); err != nil {
			return pricing.StageBlocked(5, "indirect_rates_in_range", "نسب التكاليف غير المباشرة يجب أن تكون بين 0 و 1")
		}
		return nil
	},
	7: func(s *Session) error {
		if !s.Result.Complete() {
			return pricing.StageBlocked(7, "pricing_complete", "يجب إكمال التسعير النهائي قبل عرض النتيجة")
		}
		return nil
	},
}

// checkGuard runs the guard of stage, if any.
func checkGuard(stage int, s *Session) error {
	if g, ok := guards[stage]; ok {
		return g(s)
	}
	return nil
}

// StageTitle returns the Arabic title of stage.
func StageTitle(stage int) string { return pricing.StageTitles[stage] }

// StageStatus describes one stage as seen from a session.
type StageStatus struct {
	Stage     int    `json:"stage"`
	Title     string `json:"title"`
	Current   bool   `json:"current"`
	Reachable bool   `json:"reachable"`
	// Blocker is the message of this stage's own exit guard, if it fails.
	Blocker string `json:"blocker,omitempty"`
}

// Stages reports every stage 1..8: which one is current, which can be
// reached from stage 1 without tripping a guard, and which guards fail.
func Stages(s *Session) []StageStatus {
	out := make([]StageStatus, 0, ViewStage)
	reachable := true
	for stage := FirstStage; stage <= ViewStage; stage++ {
		st := StageStatus{
			Stage:     stage,
			Title:     StageTitle(stage),
			Current:   stage == s.Stage,
			Reachable: reachable,
		}
		if stage < ViewStage {
			if err := checkGuard(stage, s); err != nil {
				if pe, ok := pricing.AsError(err); ok {
					st.Blocker = pe.Message
				} else {
					st.Blocker = err.Error()
				}
				reachable = false
			}
		}
		out = append(out, st)
	}
	return out
}
