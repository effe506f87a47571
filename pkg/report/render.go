package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Section headings of the pr-description output, in order.
const (
	SectionContext      = "Context"
	SectionWhatChanged  = "What changed"
	SectionHowToTest    = "How to test"
	SectionRisksRollout = "Risks/Rollout"
	SectionNotes        = "Notes"
)

// Section headings of the code-review output, in order.
const (
	SectionSummary     = "Summary"
	SectionTopFindings = "Top findings"
	SectionMustFix     = "Must-fix"
	SectionRisks       = "Risks"
	SectionSuggestions = "Suggestions"
	SectionTests       = "Tests"
	SectionQuestions   = "Questions"
)

// AlternativesHeading is the sub-heading rendered inside Suggestions.
const AlternativesHeading = "Alternative perspectives"

// PRSections lists the pr-description sections in render order.
var PRSections = []string{
	SectionContext,
	SectionWhatChanged,
	SectionHowToTest,
	SectionRisksRollout,
	SectionNotes,
}

// ReviewSections lists the code-review sections in render order.
var ReviewSections = []string{
	SectionSummary,
	SectionTopFindings,
	SectionMustFix,
	SectionRisks,
	SectionSuggestions,
	SectionTests,
	SectionQuestions,
}

// MaxTopFindings caps the Top findings section.
const MaxTopFindings = 3

const (
	emptyMarker        = "None."
	noneIdentified     = "None identified"
	deferredSuggestion = "Deferred until the failing verification is understood."
)

// RenderPR renders a pull-request body. It returns ErrMissingInput when
// Context, What changed or How to test is empty.
func RenderPR(d *PRDescription) (string, error) {
	if missing := d.Missing(); len(missing) > 0 {
		return "", missingError(missing)
	}

	var b strings.Builder
	writeSection(&b, SectionContext, paragraph(d.Context))
	writeSection(&b, SectionWhatChanged, bullets(d.WhatChanged))
	writeSection(&b, SectionHowToTest, bullets(d.HowToTest))
	writeSection(&b, SectionRisksRollout, paragraph(d.Risks))
	writeSection(&b, SectionNotes, paragraph(d.Notes))

	out := strings.TrimRight(b.String(), "\n") + "\n"
	if err := CheckPR([]byte(out)); err != nil {
		return "", errors.Wrap(err, "rendered description does not follow the layout")
	}
	return out, nil
}

// RenderReview renders a code review report.
//
// When a verification command failed, MINOR findings are withheld and
// Suggestions is deferred until the failure is understood.
func RenderReview(r *Review) (string, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return "", err
	}
	if missing := r.Missing(); len(missing) > 0 {
		return "", missingError(missing)
	}

	paused := r.VerificationFailed()
	findings := r.Findings
	if paused {
		findings = withoutSeverity(findings, SeverityMinor)
	}

	top := TopFindings(findings, MaxTopFindings)

	var b strings.Builder
	writeSection(&b, SectionSummary, paragraph(r.Summary)+"\n\n**Verdict:** "+string(r.Verdict))
	writeSection(&b, SectionTopFindings, numbered(top))
	writeSection(&b, SectionMustFix, findingBullets(withSeverity(findings, SeverityBlocker)))
	writeSection(&b, SectionRisks, bullets(r.Risks))
	writeSection(&b, SectionSuggestions, suggestions(r, remaining(findings, top), paused))
	writeSection(&b, SectionTests, tests(r))
	writeSection(&b, SectionQuestions, bullets(r.Questions))

	out := strings.TrimRight(b.String(), "\n") + "\n"
	if err := CheckReview([]byte(out)); err != nil {
		return "", errors.Wrap(err, "rendered review does not follow the layout")
	}
	return out, nil
}

// TopFindings returns at most n findings ordered by severity, then focus
// priority, then input order.
func TopFindings(findings []Finding, n int) []Finding {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if ri, rj := sorted[i].Severity.rank(), sorted[j].Severity.rank(); ri != rj {
			return ri < rj
		}
		return sorted[i].Focus.Priority() < sorted[j].Focus.Priority()
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func writeSection(b *strings.Builder, heading, body string) {
	fmt.Fprintf(b, "## %s\n\n%s\n\n", heading, body)
}

func paragraph(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return emptyMarker
	}
	return escapeText(s)
}

func bullets(items []string) string {
	items = nonEmpty(items)
	if len(items) == 0 {
		return emptyMarker
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + indentContinuation(escapeText(strings.TrimSpace(item)), "  ")
	}
	return strings.Join(lines, "\n")
}

func numbered(findings []Finding) string {
	if len(findings) == 0 {
		return emptyMarker
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = fmt.Sprintf("%d. %s\n   %s", i+1, findingHeadline(f), indentContinuation(escapeText(strings.TrimSpace(f.Justification)), "   "))
	}
	return strings.Join(lines, "\n")
}

func findingBullets(findings []Finding) string {
	if len(findings) == 0 {
		return emptyMarker
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = "- " + findingHeadline(f)
	}
	return strings.Join(lines, "\n")
}

func findingHeadline(f Finding) string {
	headline := fmt.Sprintf("[%s] %s", f.Severity, escapeText(strings.TrimSpace(f.Title)))
	if f.Location != "" {
		headline += fmt.Sprintf(" (`%s`)", f.Location)
	}
	if f.Focus != "" {
		headline += fmt.Sprintf(" _%s_", f.Focus)
	}
	return headline
}

func suggestions(r *Review, leftover []Finding, paused bool) string {
	var b strings.Builder
	if paused {
		b.WriteString(deferredSuggestion)
	} else {
		var items []string
		for _, f := range leftover {
			if f.Severity == SeverityBlocker {
				continue
			}
			items = append(items, findingHeadline(f)+": "+strings.TrimSpace(f.Justification))
		}
		items = append(items, nonEmpty(r.Suggestions)...)
		b.WriteString(bullets(items))
	}

	b.WriteString("\n\n### " + AlternativesHeading + "\n\n")
	if alternatives := nonEmpty(r.Alternatives); len(alternatives) > 0 {
		b.WriteString(bullets(alternatives))
	} else {
		b.WriteString(noneIdentified + ": " + escapeText(strings.TrimSpace(r.AlternativesJustification)))
	}
	return b.String()
}

func tests(r *Review) string {
	items := nonEmpty(r.Tests)
	for _, v := range r.Verification {
		status := "passed"
		if !v.Passed {
			status = "FAILED"
		}
		item := fmt.Sprintf("`%s`: %s", v.Command, status)
		if !v.Passed && strings.TrimSpace(v.Output) != "" {
			output := strings.TrimSpace(v.Output)
			f := Fence(output)
			item += "\n\n" + f + "\n" + output + "\n" + f
		}
		items = append(items, item)
	}
	return bullets(items)
}

func withSeverity(findings []Finding, s Severity) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

func withoutSeverity(findings []Finding, s Severity) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity != s {
			out = append(out, f)
		}
	}
	return out
}

// remaining returns the findings that were not selected for Top findings,
// preserving input order.
func remaining(all, top []Finding) []Finding {
	used := make([]bool, len(all))
	for _, t := range top {
		for i, f := range all {
			if !used[i] && f == t {
				used[i] = true
				break
			}
		}
	}
	var out []Finding
	for i, f := range all {
		if !used[i] {
			out = append(out, f)
		}
	}
	return out
}

func indentContinuation(s, indent string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n"+indent)
}
