package skills

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/jingkaihe/prskill/pkg/report"
)

//go:embed templates/prompt.tmpl
var promptTemplate string

// ContextBlock is one piece of gathered context, usually the output of a
// single command.
type ContextBlock struct {
	Title   string
	Command string
	Body    string
}

// PromptData is passed to the prompt template.
type PromptData struct {
	Skill  *Skill
	Blocks []ContextBlock
}

var promptTmpl = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"trim":  strings.TrimSpace,
	"chomp": func(s string) string { return strings.TrimRight(s, "\r\n") },
	"fence": report.Fence,
}).Parse(promptTemplate))

// Render returns the skill body followed by the gathered context, ready to
// hand to whoever follows the skill. A nil skill renders the context alone.
func Render(skill *Skill, blocks []ContextBlock) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, PromptData{Skill: skill, Blocks: blocks}); err != nil {
		return "", errors.Wrap(err, "failed to render prompt")
	}
	return buf.String(), nil
}
