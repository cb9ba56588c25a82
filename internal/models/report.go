package models

import (
	"time"

	"devhost-keeper/internal/host"
)

// BootstrapReport summarizes one bootstrap run.
type BootstrapReport struct {
	RunID      string          `json:"runId"`
	StartTime  time.Time       `json:"startTime"`
	EndTime    time.Time       `json:"endTime"`
	Host       host.RunConfig  `json:"host"`
	Packages   []string        `json:"installedPackages,omitempty"`
	Artifacts  []string        `json:"changedArtifacts,omitempty"`
	Services   []ServiceResult `json:"services"`
	Aborted    bool            `json:"aborted,omitempty"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	FatalError string          `json:"fatalError,omitempty"`
}

// Tally recounts Succeeded and Failed from Services.
func (r *BootstrapReport) Tally() {
	r.Succeeded, r.Failed = 0, 0
	for _, s := range r.Services {
		switch {
		case s.State.Succeeded():
			r.Succeeded++
		case s.State.Failed():
			r.Failed++
		}
	}
}
