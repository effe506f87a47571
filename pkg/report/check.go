package report

import (
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Kind identifies which skill produced a document.
type Kind string

const (
	KindPR     Kind = "pr"
	KindReview Kind = "review"
)

// ParseKind accepts "pr", "pr-description", "review" or "code-review".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pr", "pr-description":
		return KindPR, nil
	case "review", "code-review":
		return KindReview, nil
	}
	return "", errors.Errorf("unknown document kind %q, expected pr or review", s)
}

var (
	bracketLabel = regexp.MustCompile(`\[([A-Z][A-Z_-]+)\]`)
	verdictLine  = regexp.MustCompile(`^Verdict:\s*(.*)$`)
)

type section struct {
	title string
	nodes []ast.Node
}

// Check verifies the structure of a rendered document and returns every
// violation found, aggregated.
func Check(kind Kind, markdown []byte) error {
	switch kind {
	case KindPR:
		return CheckPR(markdown)
	case KindReview:
		return CheckReview(markdown)
	}
	return errors.Errorf("unknown document kind %q", kind)
}

// CheckPR verifies that a pull-request body has exactly the five sections in
// order and none of them is blank.
func CheckPR(markdown []byte) error {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))
	preamble, sections := splitSections(doc, markdown)

	var result *multierror.Error
	result = checkPreamble(result, preamble)
	result = checkHeadings(result, PRSections, sections)
	result = checkNonEmpty(result, sections)
	return result.ErrorOrNil()
}

// CheckReview verifies that a review has exactly the seven sections in order,
// at most three top findings, the literal empty markers, and only known
// severity and verdict labels.
func CheckReview(markdown []byte) error {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))
	preamble, sections := splitSections(doc, markdown)

	var result *multierror.Error
	result = checkPreamble(result, preamble)
	result = checkHeadings(result, ReviewSections, sections)
	result = checkNonEmpty(result, sections)

	for _, s := range sections {
		switch s.title {
		case SectionSummary:
			result = checkVerdict(result, s, markdown)
		case SectionTopFindings:
			result = checkTopFindings(result, s, markdown)
		case SectionSuggestions:
			result = checkAlternatives(result, s, markdown)
		}
	}

	result = checkSeverityLabels(result, doc, markdown)
	return result.ErrorOrNil()
}

func splitSections(doc ast.Node, src []byte) ([]ast.Node, []*section) {
	var preamble []ast.Node
	var sections []*section
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 2 {
			sections = append(sections, &section{title: plainText(h, src, false)})
			continue
		}
		if len(sections) == 0 {
			preamble = append(preamble, n)
			continue
		}
		current := sections[len(sections)-1]
		current.nodes = append(current.nodes, n)
	}
	return preamble, sections
}

func checkPreamble(result *multierror.Error, preamble []ast.Node) *multierror.Error {
	if len(preamble) > 0 {
		result = multierror.Append(result, errors.New("content found before the first section heading"))
	}
	return result
}

func checkHeadings(result *multierror.Error, want []string, sections []*section) *multierror.Error {
	got := make([]string, len(sections))
	for i, s := range sections {
		got[i] = s.title
	}
	if len(got) != len(want) {
		return multierror.Append(result, errors.Errorf("expected %d sections %q, found %d %q", len(want), want, len(got), got))
	}
	for i := range want {
		if got[i] != want[i] {
			result = multierror.Append(result, errors.Errorf("section %d is %q, expected %q", i+1, got[i], want[i]))
		}
	}
	return result
}

func checkNonEmpty(result *multierror.Error, sections []*section) *multierror.Error {
	for _, s := range sections {
		if len(s.nodes) == 0 {
			result = multierror.Append(result, errors.Errorf("section %q is empty, render %q instead", s.title, emptyMarker))
		}
	}
	return result
}

func checkVerdict(result *multierror.Error, s *section, src []byte) *multierror.Error {
	var verdicts []string
	for _, n := range s.nodes {
		if _, ok := n.(*ast.Paragraph); !ok {
			continue
		}
		if m := verdictLine.FindStringSubmatch(plainText(n, src, false)); m != nil {
			verdicts = append(verdicts, strings.TrimSpace(m[1]))
		}
	}
	switch len(verdicts) {
	case 0:
		return multierror.Append(result, errors.New("summary has no verdict"))
	case 1:
	default:
		return multierror.Append(result, errors.Errorf("summary has %d verdicts, expected one", len(verdicts)))
	}
	if !Verdict(verdicts[0]).Valid() {
		result = multierror.Append(result, errors.Errorf("verdict %q is not one of Approve, Request changes, Comment", verdicts[0]))
	}
	return result
}

func checkTopFindings(result *multierror.Error, s *section, src []byte) *multierror.Error {
	items := 0
	lists := 0
	for _, n := range s.nodes {
		if list, ok := n.(*ast.List); ok {
			lists++
			items += list.ChildCount()
		}
	}
	if lists == 0 {
		if body := sectionText(s, src); body != emptyMarker {
			result = multierror.Append(result, errors.Errorf("top findings without a list must read %q, found %q", emptyMarker, body))
		}
		return result
	}
	if items > MaxTopFindings {
		result = multierror.Append(result, errors.Errorf("top findings lists %d items, at most %d allowed", items, MaxTopFindings))
	}
	return result
}

func checkAlternatives(result *multierror.Error, s *section, src []byte) *multierror.Error {
	start := -1
	for i, n := range s.nodes {
		if h, ok := n.(*ast.Heading); ok && h.Level == 3 && plainText(h, src, false) == AlternativesHeading {
			start = i
			break
		}
	}
	if start < 0 {
		return multierror.Append(result, errors.Errorf("suggestions has no %q block", AlternativesHeading))
	}

	body := s.nodes[start+1:]
	if len(body) == 0 {
		return multierror.Append(result, errors.Errorf("%q is blank, render %q with a justification instead", AlternativesHeading, noneIdentified))
	}
	if _, ok := body[0].(*ast.Paragraph); !ok {
		return result
	}
	first := plainText(body[0], src, false)
	if !strings.HasPrefix(first, noneIdentified) {
		return result
	}
	justification := strings.TrimLeft(strings.TrimPrefix(first, noneIdentified), " :.-")
	if justification == "" && len(body) == 1 {
		result = multierror.Append(result, errors.Errorf("%q must carry a justification", noneIdentified))
	}
	return result
}

func checkSeverityLabels(result *multierror.Error, doc ast.Node, src []byte) *multierror.Error {
	seen := map[string]bool{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
		default:
			return ast.WalkContinue, nil
		}
		for _, m := range bracketLabel.FindAllStringSubmatch(plainText(n, src, true), -1) {
			label := m[1]
			if Severity(label).Valid() || seen[label] {
				continue
			}
			seen[label] = true
			result = multierror.Append(result, errors.Errorf("severity label %q is not one of BLOCKER, MAJOR, MINOR", label))
		}
		return ast.WalkSkipChildren, nil
	})
	return result
}

func sectionText(s *section, src []byte) string {
	parts := make([]string, 0, len(s.nodes))
	for _, n := range s.nodes {
		parts = append(parts, plainText(n, src, false))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// plainText concatenates the inline text below n. Code spans are dropped when
// skipCode is set so that quoted output cannot trip label checks.
func plainText(n ast.Node, src []byte, skipCode bool) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.CodeSpan:
			if skipCode {
				return ast.WalkSkipChildren, nil
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
