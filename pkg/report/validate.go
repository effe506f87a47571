package report

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Validate checks the labels and per-finding fields of a review. It does not
// report missing top-level inputs; see Missing.
func (r *Review) Validate() error {
	var result *multierror.Error

	if r.Verdict != "" && !r.Verdict.Valid() {
		result = multierror.Append(result, errors.Errorf("verdict %q is not one of Approve, Request changes, Comment", r.Verdict))
	}

	for i, f := range r.Findings {
		prefix := fmt.Sprintf("finding %d", i+1)
		if !f.Severity.Valid() {
			result = multierror.Append(result, errors.Errorf("%s: severity %q is not one of BLOCKER, MAJOR, MINOR", prefix, f.Severity))
		}
		if f.Focus != "" && f.Focus.Priority() == len(FocusOrder) {
			result = multierror.Append(result, errors.Errorf("%s: unknown focus area %q", prefix, f.Focus))
		}
		if strings.TrimSpace(f.Title) == "" {
			result = multierror.Append(result, errors.Errorf("%s: title is required", prefix))
		}
		// A finding without evidence is indistinguishable from a fabricated one.
		if strings.TrimSpace(f.Justification) == "" {
			result = multierror.Append(result, errors.Errorf("%s: justification is required", prefix))
		}
	}

	return result.ErrorOrNil()
}

// Normalize canonicalizes label spellings in place so that hand-written
// result files may use "major" or "request-changes".
func (r *Review) Normalize() {
	if r.Verdict != "" {
		if v, err := ParseVerdict(string(r.Verdict)); err == nil {
			r.Verdict = v
		}
	}
	for i := range r.Findings {
		if s, err := ParseSeverity(string(r.Findings[i].Severity)); err == nil {
			r.Findings[i].Severity = s
		}
		r.Findings[i].Focus = Focus(strings.ToLower(strings.TrimSpace(string(r.Findings[i].Focus))))
	}
}

func missingError(missing []string) error {
	return errors.Wrapf(ErrMissingInput, "%s", strings.Join(missing, ", "))
}
