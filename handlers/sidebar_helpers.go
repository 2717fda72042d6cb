package handlers

import (
	"fmt"

	"tenderpricing/workflow"
)

// StageLink is one entry of the stage bar shown next to a project.
type StageLink struct {
	workflow.StageStatus
	URL string `json:"url"`
}

// BuildStageNav lists the stages of s with the jump URL of each.
func BuildStageNav(s *workflow.Session) []StageLink {
	stages := workflow.Stages(s)
	out := make([]StageLink, 0, len(stages))
	for _, st := range stages {
		out = append(out, StageLink{
			StageStatus: st,
			URL:         fmt.Sprintf("/api/projects/%s/stage/%d", s.Project.ID, st.Stage),
		})
	}
	return out
}
