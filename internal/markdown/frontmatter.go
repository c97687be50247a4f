package markdown

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/adrg/frontmatter"
)

// FrontMatter is the YAML header of an article document.
type FrontMatter struct {
	Title      string
	Slug       string
	Summary    string
	CoverImage string
	Status     string
	Tags       []string
	Date       time.Time
	Draft      bool
	Custom     map[string]any
}

// Document is a Markdown file split into its header and body.
type Document struct {
	Path         string
	FrontMatter  FrontMatter
	Body         []byte
	Checksum     []byte
	LastModified time.Time
}

// ParseFrontMatter splits source into frontmatter and the Markdown body.
// Sources without a header yield an empty FrontMatter and the whole input as
// body.
func ParseFrontMatter(source []byte) (FrontMatter, []byte, error) {
	var meta frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta.toFrontMatter(), body, nil
}

// BuildDocument parses source into a Document for path.
func BuildDocument(path string, source []byte, modified time.Time) (*Document, error) {
	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, err
	}
	return &Document{
		Path:         path,
		FrontMatter:  fm,
		Body:         body,
		LastModified: modified,
	}, nil
}

type frontMatterEnvelope struct {
	Title      string         `yaml:"title"`
	Slug       string         `yaml:"slug"`
	Summary    string         `yaml:"summary"`
	CoverImage string         `yaml:"cover_image"`
	Status     string         `yaml:"status"`
	Tags       []string       `yaml:"tags"`
	Date       time.Time      `yaml:"date"`
	Draft      bool           `yaml:"draft"`
	Custom     map[string]any `yaml:",inline"`
}

func (env frontMatterEnvelope) toFrontMatter() FrontMatter {
	custom := maps.Clone(env.Custom)
	if custom == nil {
		custom = map[string]any{}
	}
	return FrontMatter{
		Title:      env.Title,
		Slug:       env.Slug,
		Summary:    env.Summary,
		CoverImage: env.CoverImage,
		Status:     env.Status,
		Tags:       slices.Clone(env.Tags),
		Date:       env.Date,
		Draft:      env.Draft,
		Custom:     custom,
	}
}
