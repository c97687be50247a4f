package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

type writeCategory string

const (
	categoryPage  writeCategory = "page"
	categoryAsset writeCategory = "asset"
)

// writeFileRequest describes a file write routed through the artifact writer.
// Path is slash separated and relative to the writer root.
type writeFileRequest struct {
	Path     string
	Content  io.Reader
	Category writeCategory
}

// artifactWriter persists generator outputs.
type artifactWriter interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req writeFileRequest) error
}

// fsWriter writes below root. Each file is replaced atomically so readers
// never observe a partial page.
type fsWriter struct {
	root string
}

func newFSWriter(root string) *fsWriter {
	return &fsWriter{root: root}
}

func (w *fsWriter) resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", errors.New("generator: write requires path")
	}
	full := filepath.Join(w.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(full, filepath.Clean(w.root)+string(filepath.Separator)) {
		return "", fmt.Errorf("generator: path %q escapes output root", rel)
	}
	return full, nil
}

func (w *fsWriter) EnsureDir(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(rel) == "" || rel == "." {
		return os.MkdirAll(w.root, 0o755)
	}
	full, err := w.resolve(rel)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

func (w *fsWriter) WriteFile(ctx context.Context, req writeFileRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Content == nil {
		return errors.New("generator: write requires content reader")
	}
	full, err := w.resolve(req.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("generator: create dir for %s %s: %w", req.Category, req.Path, err)
	}
	if err := atomic.WriteFile(full, req.Content); err != nil {
		return fmt.Errorf("generator: write %s %s: %w", req.Category, req.Path, err)
	}
	return nil
}

func writeString(ctx context.Context, w artifactWriter, rel string, category writeCategory, body string) (string, error) {
	if err := w.WriteFile(ctx, writeFileRequest{
		Path:     rel,
		Content:  bytes.NewBufferString(body),
		Category: category,
	}); err != nil {
		return "", err
	}
	return computeHashFromString(body), nil
}

func computeHashFromString(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// prepareStaging wipes and recreates the staging directory for root. The
// parent of root is created when missing.
func prepareStaging(root string) (string, error) {
	staging := stagingDir(root)
	if err := os.RemoveAll(staging); err != nil {
		return "", fmt.Errorf("generator: clear staging %s: %w", staging, err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", fmt.Errorf("generator: create staging %s: %w", staging, err)
	}
	return staging, nil
}

// publishStaging swaps staging into root. The previous output is moved aside
// first and only removed once the new tree is in place; if the swap fails it
// is moved back. leftover names a backup that could not be removed.
func publishStaging(staging, root string) (leftover string, err error) {
	previous := backupDir(root)
	if err := os.RemoveAll(previous); err != nil {
		return "", fmt.Errorf("generator: clear backup %s: %w", previous, err)
	}

	hadPrevious := false
	if _, err := os.Lstat(root); err == nil {
		if err := os.Rename(root, previous); err != nil {
			return "", fmt.Errorf("generator: move previous output aside: %w", err)
		}
		hadPrevious = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("generator: stat output %s: %w", root, err)
	}

	if err := os.Rename(staging, root); err != nil {
		if hadPrevious {
			_ = os.Rename(previous, root)
		}
		return "", fmt.Errorf("generator: publish output %s: %w", root, err)
	}
	if hadPrevious {
		if err := os.RemoveAll(previous); err != nil {
			return previous, nil
		}
	}
	return "", nil
}

func discardStaging(staging string) error {
	return os.RemoveAll(staging)
}
