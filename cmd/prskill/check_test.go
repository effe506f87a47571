package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPR = `## Context

Fresh clones lack the base branch.

## What changed

- Fetch before giving up

## How to test

- go test ./...

## Risks/Rollout

None.

## Notes

None.
`

func TestCheckDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pr.md")
	require.NoError(t, os.WriteFile(path, []byte(validPR), 0o644))

	assert.NoError(t, checkDocument("pr", path, nil))
	assert.NoError(t, checkDocument("pr-description", "-", strings.NewReader(validPR)))
}

func TestCheckDocumentReportsViolations(t *testing.T) {
	broken := strings.Replace(validPR, "## Notes\n\nNone.\n", "", 1)
	err := checkDocument("pr", "-", strings.NewReader(broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Notes")
}

func TestCheckDocumentErrors(t *testing.T) {
	assert.Error(t, checkDocument("changelog", "-", strings.NewReader(validPR)))
	assert.Error(t, checkDocument("review", filepath.Join(t.TempDir(), "missing.md"), nil))
}

func TestSchemaFor(t *testing.T) {
	out, err := schemaFor("review")
	require.NoError(t, err)
	assert.Contains(t, out, `"alternatives_justification"`)
	assert.Contains(t, out, `"BLOCKER"`)

	out, err = schemaFor("pr")
	require.NoError(t, err)
	assert.Contains(t, out, `"how_to_test"`)

	_, err = schemaFor("issue")
	assert.Error(t, err)
}
