package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultAssets lists the static files copied when none are configured.
func DefaultAssets() []string {
	return []string{"style.css"}
}

type assetSummary struct {
	Copied   []string
	Warnings []string
}

// copyAssets copies each configured asset from dir into the writer root,
// keeping its relative path. Missing files only produce warnings; a failed
// write is returned.
func copyAssets(ctx context.Context, w artifactWriter, dir string, assets []string) (assetSummary, error) {
	var summary assetSummary
	if strings.TrimSpace(dir) == "" {
		if len(assets) > 0 {
			summary.Warnings = append(summary.Warnings, "assets directory not configured; skipped static assets")
		}
		return summary, nil
	}

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rel := cleanAssetPath(asset)
		if rel == "" {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("asset %q is not a relative path; skipped", asset))
			continue
		}

		file, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("asset %s not found in %s", rel, dir))
				continue
			}
			return summary, fmt.Errorf("generator: open asset %s: %w", rel, err)
		}
		err = w.WriteFile(ctx, writeFileRequest{Path: rel, Content: file, Category: categoryAsset})
		_ = file.Close()
		if err != nil {
			return summary, err
		}
		summary.Copied = append(summary.Copied, rel)
	}
	return summary, nil
}

func cleanAssetPath(asset string) string {
	asset = filepath.ToSlash(strings.TrimSpace(asset))
	if asset == "" || path.IsAbs(asset) {
		return ""
	}
	clean := path.Clean(asset)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return ""
	}
	return clean
}
