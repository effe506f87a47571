// Package report holds the structured results produced by the pr-description
// and code-review skills and renders them as fixed-section Markdown.
//
// Result objects are filled in by whoever performs the review (a person or a
// language model); this package never invents content. Rendering is a pure
// function of the result object, and Check verifies that a Markdown document
// has the structure the renderers guarantee.
package report

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingInput is returned when a result lacks content that must be
// supplied by the user before a document can be rendered.
var ErrMissingInput = errors.New("missing input")

// Severity is the closed set of finding severities.
type Severity string

const (
	SeverityBlocker Severity = "BLOCKER"
	SeverityMajor   Severity = "MAJOR"
	SeverityMinor   Severity = "MINOR"
)

// Severities lists all severities, most severe first.
var Severities = []Severity{SeverityBlocker, SeverityMajor, SeverityMinor}

// ParseSeverity accepts a severity label in any case.
func ParseSeverity(s string) (Severity, error) {
	candidate := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", errors.Errorf("unknown severity %q, expected one of BLOCKER, MAJOR, MINOR", s)
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.rank() < len(Severities)
}

func (s Severity) rank() int {
	for i, candidate := range Severities {
		if s == candidate {
			return i
		}
	}
	return len(Severities)
}

// Verdict is the closed set of review outcomes.
type Verdict string

const (
	VerdictApprove        Verdict = "Approve"
	VerdictRequestChanges Verdict = "Request changes"
	VerdictComment        Verdict = "Comment"
)

// Verdicts lists all verdict labels.
var Verdicts = []Verdict{VerdictApprove, VerdictRequestChanges, VerdictComment}

// ParseVerdict accepts the rendered label or a flag-style spelling
// such as "request-changes".
func ParseVerdict(s string) (Verdict, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", " ", "_", " ").Replace(normalized)
	for _, v := range Verdicts {
		if strings.ToLower(string(v)) == normalized {
			return v, nil
		}
	}
	return "", errors.Errorf("unknown verdict %q, expected one of Approve, Request changes, Comment", s)
}

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	for _, candidate := range Verdicts {
		if v == candidate {
			return true
		}
	}
	return false
}

// SuggestVerdict proposes a verdict from the findings alone. The reviewer
// still makes the final call.
func SuggestVerdict(findings []Finding) Verdict {
	verdict := VerdictApprove
	for _, f := range findings {
		switch f.Severity {
		case SeverityBlocker:
			return VerdictRequestChanges
		case SeverityMajor:
			verdict = VerdictComment
		}
	}
	return verdict
}

// Focus is a review focus area.
type Focus string

const (
	FocusCorrectness     Focus = "correctness"
	FocusRisk            Focus = "risk"
	FocusSecurity        Focus = "security"
	FocusPerformance     Focus = "performance"
	FocusMaintainability Focus = "maintainability"
	FocusObservability   Focus = "observability"
	FocusTests           Focus = "tests"
)

// FocusOrder is the order in which review attention is spent.
var FocusOrder = []Focus{
	FocusCorrectness,
	FocusRisk,
	FocusSecurity,
	FocusPerformance,
	FocusMaintainability,
	FocusObservability,
	FocusTests,
}

// Priority returns the position of f in FocusOrder. Unknown or empty focus
// areas sort last.
func (f Focus) Priority() int {
	for i, candidate := range FocusOrder {
		if f == candidate {
			return i
		}
	}
	return len(FocusOrder)
}

// Finding is a single reported issue.
type Finding struct {
	Severity      Severity `yaml:"severity" json:"severity" jsonschema:"enum=BLOCKER,enum=MAJOR,enum=MINOR"`
	Focus         Focus    `yaml:"focus,omitempty" json:"focus,omitempty" jsonschema:"enum=correctness,enum=risk,enum=security,enum=performance,enum=maintainability,enum=observability,enum=tests"`
	Location      string   `yaml:"location,omitempty" json:"location,omitempty" jsonschema:"description=file path with optional :line"`
	Title         string   `yaml:"title" json:"title"`
	Justification string   `yaml:"justification" json:"justification" jsonschema:"description=evidence from the diff that supports the finding"`
}

// PRDescription is the result of the pr-description skill.
type PRDescription struct {
	Context     string   `yaml:"context" json:"context" jsonschema:"description=why the change exists"`
	WhatChanged []string `yaml:"what_changed" json:"what_changed"`
	HowToTest   []string `yaml:"how_to_test" json:"how_to_test"`
	Risks       string   `yaml:"risks,omitempty" json:"risks,omitempty" jsonschema:"description=risks and rollout plan"`
	Notes       string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Missing returns the names of the sections that have no content and must be
// asked for before rendering.
func (d *PRDescription) Missing() []string {
	var missing []string
	if strings.TrimSpace(d.Context) == "" {
		missing = append(missing, SectionContext)
	}
	if len(nonEmpty(d.WhatChanged)) == 0 {
		missing = append(missing, SectionWhatChanged)
	}
	if len(nonEmpty(d.HowToTest)) == 0 {
		missing = append(missing, SectionHowToTest)
	}
	return missing
}

// VerificationResult records one verification command run before a review.
type VerificationResult struct {
	Command string `yaml:"command" json:"command"`
	Passed  bool   `yaml:"passed" json:"passed"`
	Output  string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Review is the result of the code-review skill.
type Review struct {
	Summary                   string               `yaml:"summary" json:"summary"`
	Verdict                   Verdict              `yaml:"verdict" json:"verdict" jsonschema:"enum=Approve,enum=Request changes,enum=Comment"`
	Findings                  []Finding            `yaml:"findings,omitempty" json:"findings,omitempty"`
	Risks                     []string             `yaml:"risks,omitempty" json:"risks,omitempty"`
	Suggestions               []string             `yaml:"suggestions,omitempty" json:"suggestions,omitempty"`
	Alternatives              []string             `yaml:"alternatives,omitempty" json:"alternatives,omitempty" jsonschema:"description=alternative perspectives on the approach"`
	AlternativesJustification string               `yaml:"alternatives_justification,omitempty" json:"alternatives_justification,omitempty" jsonschema:"description=why no alternative perspective applies"`
	Tests                     []string             `yaml:"tests,omitempty" json:"tests,omitempty"`
	Questions                 []string             `yaml:"questions,omitempty" json:"questions,omitempty"`
	Verification              []VerificationResult `yaml:"verification,omitempty" json:"verification,omitempty"`
}

// VerificationFailed reports whether any recorded verification command failed.
func (r *Review) VerificationFailed() bool {
	for _, v := range r.Verification {
		if !v.Passed {
			return true
		}
	}
	return false
}

// Missing returns the names of inputs the user must supply before rendering.
func (r *Review) Missing() []string {
	var missing []string
	if strings.TrimSpace(r.Summary) == "" {
		missing = append(missing, SectionSummary)
	}
	if r.Verdict == "" {
		missing = append(missing, "Verdict")
	}
	if len(nonEmpty(r.Alternatives)) == 0 && strings.TrimSpace(r.AlternativesJustification) == "" {
		missing = append(missing, "Alternative perspectives justification")
	}
	return missing
}

func nonEmpty(items []string) []string {
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
