package workflow

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/pkg/errors"
)

// maxVerifyOutput caps the output kept per failing command.
const maxVerifyOutput = 4000

// Verify runs each command through sh in dir, one after another, and records
// whether it passed. A failing command does not stop the ones after it.
func Verify(ctx context.Context, runner vcs.Runner, dir string, commands []string) []report.VerificationResult {
	results := make([]report.VerificationResult, 0, len(commands))
	for _, command := range commands {
		command = strings.TrimSpace(command)
		if command == "" {
			continue
		}
		log := logger.G(ctx).WithField("verify", command)

		out, err := runner.Run(ctx, dir, "sh", "-c", command)
		result := report.VerificationResult{Command: command, Passed: err == nil}
		if err != nil {
			result.Output = tail(failureOutput(out, err), maxVerifyOutput)
			log.WithError(err).Warn("verification command failed")
		} else {
			log.Debug("verification command passed")
		}
		results = append(results, result)
	}
	return results
}

func failureOutput(stdout []byte, err error) string {
	parts := []string{strings.TrimSpace(string(stdout))}
	var cmdErr *vcs.CommandError
	if errors.As(err, &cmdErr) {
		parts = append(parts, cmdErr.Stderr, cmdErr.Err.Error())
	} else {
		parts = append(parts, err.Error())
	}

	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	for len(s) > 0 && !utf8.RuneStart(s[0]) {
		s = s[1:]
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return "...\n" + s
}
