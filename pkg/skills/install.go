package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/pkg/errors"
)

// InstallResult lists the SKILL.md files written and left alone.
type InstallResult struct {
	Written []string
	Skipped []string
}

// Install writes the built-in skills into dir, one directory per skill, so
// an agent that loads skills from dir (for example .claude/skills) picks
// them up. Existing files are kept unless force is set.
func Install(ctx context.Context, dir string, force bool) (*InstallResult, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &InstallResult{}
	for _, name := range names {
		target := filepath.Join(dir, name, skillFileName)
		log := logger.G(ctx).WithField("path", target)

		if _, err := os.Stat(target); err == nil && !force {
			log.Debug("skill already installed, skipping")
			result.Skipped = append(result.Skipped, target)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return result, errors.Wrapf(err, "failed to create %s", filepath.Dir(target))
		}
		if err := os.WriteFile(target, []byte(builtin[name].Raw), 0o644); err != nil {
			return result, errors.Wrapf(err, "failed to write %s", target)
		}
		log.Debug("installed skill")
		result.Written = append(result.Written, target)
	}

	return result, nil
}
