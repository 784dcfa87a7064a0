package transcript

import (
	"context"

	"github.com/pluqqy/editbridge/pkg/router"
)

// StepReport is the printable form of an Outcome
type StepReport struct {
	Index  int            `json:"index" yaml:"index"`
	Kind   string         `json:"kind" yaml:"kind"`
	Detail string         `json:"detail" yaml:"detail"`
	Note   string         `json:"note,omitempty" yaml:"note,omitempty"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`
	Calls  []router.Entry `json:"calls" yaml:"calls"`
	HTML   string         `json:"html" yaml:"html"`
}

// Report is the printable result of a whole replay
type Report struct {
	Name  string         `json:"name" yaml:"name"`
	Setup []router.Entry `json:"setup" yaml:"setup"`
	Steps []StepReport   `json:"steps" yaml:"steps"`
}

// Failed counts the steps that reported an error
func (r *Report) Failed() int {
	failed := 0
	for _, step := range r.Steps {
		if step.Error != "" {
			failed++
		}
	}
	return failed
}

// Report converts the outcome for printing
func (o Outcome) Report() StepReport {
	report := StepReport{
		Index:  o.Index,
		Kind:   o.Step.Kind(),
		Detail: o.Step.Detail(),
		Note:   o.Step.Note,
		Calls:  o.Calls,
		HTML:   o.HTML,
	}
	if report.Calls == nil {
		report.Calls = []router.Entry{}
	}
	if o.Err != nil {
		report.Error = o.Err.Error()
	}
	return report
}

// Replay plays t from start to finish and reports every step
func Replay(ctx context.Context, t *Transcript, opts ...Option) (*Report, error) {
	p, err := NewPlayer(ctx, t, opts...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	outcomes, err := p.Run(ctx)
	report := &Report{Name: t.Name, Setup: p.Setup()}
	for _, out := range outcomes {
		report.Steps = append(report.Steps, out.Report())
	}
	return report, err
}
