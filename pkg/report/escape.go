package report

import (
	"regexp"
	"strings"
)

var (
	atxHeading      = regexp.MustCompile(`^#{1,6}(\s|$)`)
	setextUnderline = regexp.MustCompile(`^(=+|-+)[ \t]*$`)
	fenceOpener     = regexp.MustCompile("^(`{3,}|~{3,})")
	verdictPrefix   = regexp.MustCompile(`^([*_]*)Verdict:`)
)

// Fence returns a backtick fence longer than any backtick run in body.
func Fence(body string) string {
	longest, run := 0, 0
	for _, r := range body {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

// escapeText neutralizes free text before it is placed inside a section:
// top-level headings, setext underlines, verdict lines and unknown bracket
// labels are backslash-escaped, and an unterminated code fence is closed.
// Lines inside fenced code are left alone.
func escapeText(s string) string {
	lines := strings.Split(s, "\n")
	var open string
	for i, line := range lines {
		indent := leadingSpaces(line)
		if indent > 3 {
			continue
		}
		rest := line[indent:]

		if open != "" {
			if strings.HasPrefix(rest, open) && strings.Trim(rest, open[:1]+" \t") == "" {
				open = ""
			}
			continue
		}
		if m := fenceOpener.FindString(rest); m != "" {
			if m[0] != '`' || !strings.Contains(rest[len(m):], "`") {
				open = m
				continue
			}
		}

		switch {
		case atxHeading.MatchString(rest), setextUnderline.MatchString(rest):
			rest = `\` + rest
		default:
			rest = verdictPrefix.ReplaceAllString(rest, `${1}Verdict\:`)
		}
		lines[i] = line[:indent] + escapeLabels(rest)
	}
	out := strings.Join(lines, "\n")
	if open != "" {
		out += "\n" + open
	}
	return out
}

// escapeLabels escapes bracketed upper-case labels that are not severities,
// leaving inline code untouched.
func escapeLabels(line string) string {
	parts := strings.Split(line, "`")
	for i := 0; i < len(parts); i += 2 {
		parts[i] = bracketLabel.ReplaceAllStringFunc(parts[i], func(m string) string {
			label := m[1 : len(m)-1]
			if Severity(label).Valid() {
				return m
			}
			return `\[` + label + `\]`
		})
	}
	return strings.Join(parts, "`")
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}
