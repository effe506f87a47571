package skills

import (
	"embed"
	"io/fs"
	"path"
	"sort"

	"github.com/pkg/errors"
)

//go:embed builtin/*/SKILL.md
var builtinFS embed.FS

// Builtin returns the skills embedded in the binary keyed by name.
func Builtin() (map[string]*Skill, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read builtin skills")
	}

	skills := make(map[string]*Skill, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		content, err := builtinFS.ReadFile(path.Join("builtin", entry.Name(), skillFileName))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read builtin skill %s", entry.Name())
		}
		skill, err := parseSkill(content)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid builtin skill %s", entry.Name())
		}
		skill.Builtin = true
		skills[skill.Name] = skill
	}
	return skills, nil
}

// BuiltinNames returns the sorted names of the embedded skills.
func BuiltinNames() []string {
	skills, err := Builtin()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
