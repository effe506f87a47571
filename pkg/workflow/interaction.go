// Package workflow drives the two skills: it gathers the repository context
// a reader needs, fills in missing inputs by asking the user, and performs
// the side effects the user explicitly asked for.
package workflow

import (
	"strings"

	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/pkg/errors"
)

// Prompter asks the user for input.
type Prompter interface {
	Prompt(question string, options ...string) string
	Confirm(question string) bool
}

// Previewer shows a diff between the current and proposed text.
type Previewer interface {
	Diff(oldLabel, newLabel, oldText, newText string) bool
	Info(message string)
}

// UI is everything a workflow needs from the terminal.
type UI interface {
	Prompter
	Previewer
}

func missingInput(missing []string) error {
	return errors.Wrapf(report.ErrMissingInput, "%s", strings.Join(missing, ", "))
}

// splitItems turns a one-line answer into list items separated by ";".
func splitItems(answer string) []string {
	var items []string
	for _, item := range strings.Split(answer, ";") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
