package generator

import (
	"path/filepath"
	"strings"
)

const pageFile = "index.html"

// outputPath returns <root>/<slug>/index.html.
func outputPath(root, slug string) string {
	return filepath.Join(root, slug, pageFile)
}

// relativePagePath is the slash separated page path inside an output root.
func relativePagePath(slug string) string {
	return slug + "/" + pageFile
}

// safeSlug reports whether slug can be used as a single directory name.
func safeSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	if strings.ContainsAny(slug, `/\`) || strings.ContainsRune(slug, 0) {
		return false
	}
	return strings.TrimSpace(slug) == slug
}

// stagingDir returns the sibling directory a run writes into before it is
// published, <parent>/.<base>.staging.
func stagingDir(root string) string {
	clean := filepath.Clean(root)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".staging")
}

// backupDir holds the previous output while the staging tree is swapped in.
func backupDir(root string) string {
	clean := filepath.Clean(root)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".previous")
}
