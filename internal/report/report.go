// Package report collects per-unit outcomes of a run and derives the run's
// overall status.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Stage is the pipeline stage an outcome belongs to.
type Stage string

const (
	StageGeneration Stage = "generation"
	StageCompile    Stage = "compile"
	StagePackage    Stage = "package"
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageGeneration, StageCompile, StagePackage}

// ParseStage is the inverse of Stage's string value.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Outcome is the result of one stage for one unit.
type Outcome struct {
	// Unit is the unit name; for a failed generation no unit was registered
	// and Unit holds the name the unit would have had.
	Unit     string `json:"unit"`
	Database string `json:"database,omitempty"`
	Stage    Stage  `json:"stage"`
	Success  bool   `json:"success"`
	// Diagnostic carries the failure message, or a note on success.
	Diagnostic string        `json:"diagnostic,omitempty"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
}

// Succeeded builds a successful outcome.
func Succeeded(unit, database string, stage Stage) Outcome {
	return Outcome{Unit: unit, Database: database, Stage: stage, Success: true}
}

// Failed builds a failed outcome from err.
func Failed(unit, database string, stage Stage, err error) Outcome {
	o := Outcome{Unit: unit, Database: database, Stage: stage}
	if err != nil {
		o.Diagnostic = err.Error()
	}
	return o
}

// Note renders the outcome as a one-line annotation for the manifest.
func (o Outcome) Note() string {
	status := "ok"
	if !o.Success {
		status = "failed"
	}
	if o.Diagnostic == "" {
		return string(o.Stage) + ": " + status
	}
	return fmt.Sprintf("%s: %s: %s", o.Stage, status, firstLine(o.Diagnostic))
}

// Report is the aggregated outcome list of one run, in the order outcomes
// were produced: generation outcomes in inventory order, then build outcomes
// in manifest order.
type Report struct {
	RunID    string    `json:"run_id,omitempty"`
	Server   string    `json:"server,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Outcomes []Outcome `json:"outcomes"`
}

// Add appends outcomes.
func (r *Report) Add(outcomes ...Outcome) {
	r.Outcomes = append(r.Outcomes, outcomes...)
}

// Succeeded reports whether every outcome succeeded.
func (r *Report) Succeeded() bool {
	for _, o := range r.Outcomes {
		if !o.Success {
			return false
		}
	}
	return true
}

// Failures returns the failed outcomes in order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

// ByStage returns the outcomes of one stage in order.
func (r *Report) ByStage(stage Stage) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Stage == stage {
			out = append(out, o)
		}
	}
	return out
}

// Summary counts outcomes per stage.
type Summary struct {
	Stage     Stage `json:"stage"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
}

// Summaries returns one Summary per stage, in pipeline order.
func (r *Report) Summaries() []Summary {
	out := make([]Summary, len(Stages))
	for i, st := range Stages {
		out[i].Stage = st
		for _, o := range r.ByStage(st) {
			if o.Success {
				out[i].Succeeded++
			} else {
				out[i].Failed++
			}
		}
	}
	return out
}

// WriteText prints a per-unit table followed by the stage totals.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tDATABASE\tSTAGE\tSTATUS\tDIAGNOSTIC")
	for _, o := range r.Outcomes {
		status := "ok"
		if !o.Success {
			status = "FAILED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Unit, o.Database, o.Stage, status, firstLine(o.Diagnostic))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	parts := make([]string, 0, len(Stages))
	for _, s := range r.Summaries() {
		parts = append(parts, fmt.Sprintf("%s %d ok/%d failed", s.Stage, s.Succeeded, s.Failed))
	}
	_, err := fmt.Fprintf(w, "\n%s\n", strings.Join(parts, ", "))
	return err
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
