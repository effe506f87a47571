package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// DraftDir is where drafts go when no file name is given, relative to the
// repository root.
const DraftDir = ".prskill/drafts"

// WriteDraft writes a rendered document to path. An empty path picks a new
// file under DraftDir in root. It returns the path written.
func WriteDraft(ctx context.Context, root, path, content string) (string, error) {
	if path == "" {
		path = filepath.Join(root, filepath.FromSlash(DraftDir), uuid.NewString()+".md")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := lockedfile.Write(path, strings.NewReader(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}

	logger.G(ctx).WithField("path", path).Debug("wrote draft")
	return path, nil
}
