package models

import (
	"fmt"
	"strings"
	"time"
)

// RunMode tells how a reconcile run chose its starting point
type RunMode string

const (
	RunModeBootstrap RunMode = "bootstrap"
	RunModeResume    RunMode = "resume"
)

// RunSummary reports what a reconcile run did
type RunSummary struct {
	Mode         RunMode       `json:"mode"`
	Year         int           `json:"year"`
	Cursor       string        `json:"cursor,omitempty"`
	ItemsFetched int           `json:"itemsFetched"`
	Saved        []*Photo      `json:"saved"`
	NothingFound bool          `json:"nothingFound"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
}

// Message renders the summary as the plain text report shown after a check
func (s *RunSummary) Message() string {
	var b strings.Builder

	switch s.Mode {
	case RunModeBootstrap:
		if s.NothingFound || len(s.Saved) == 0 {
			fmt.Fprintf(&b, "Cannot find the first photo of %d", s.Year)
			return b.String()
		}
		p := s.Saved[0]
		fmt.Fprintf(&b, "Saved the first photo: day %d of %d (%s)", p.DayOfYear, p.Year, p.RemoteID)
	case RunModeResume:
		fmt.Fprintf(&b, "Completing since %s", s.Cursor)
		for _, p := range s.Saved {
			fmt.Fprintf(&b, "\nSaved a photo: day %d of %d (%s)", p.DayOfYear, p.Year, p.RemoteID)
		}
		if len(s.Saved) == 0 {
			b.WriteString("\nNothing new")
		}
	}

	return b.String()
}
