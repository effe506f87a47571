// Package skills holds the pr-description and code-review playbooks. The
// built-in SKILL.md documents are embedded in the binary; a repository or
// user can override them with a SKILL.md of the same name under
// .prskill/skills.
package skills

// Built-in skill names.
const (
	PRDescription = "pr-description"
	CodeReview    = "code-review"
)

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // One line shown by skill list
	Directory   string // Directory holding SKILL.md, empty for built-ins
	Content     string // Body of SKILL.md without the frontmatter
	Raw         string // Full SKILL.md including frontmatter
	Builtin     bool
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// Source describes where a skill was loaded from.
func (s *Skill) Source() string {
	if s.Builtin {
		return "builtin"
	}
	return s.Directory
}
