package articles

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status is the publication state of an article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Article is a rich-text page. ContentHTML may carry microtemplate markers,
// which are stored unexpanded.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID              uuid.UUID  `bun:",pk,type:uuid"                                json:"id"`
	Title           string     `bun:"title,notnull"                                json:"title"`
	Slug            string     `bun:"slug,notnull,unique"                          json:"slug"`
	Summary         string     `bun:"summary"                                      json:"summary,omitempty"`
	ContentHTML     string     `bun:"content_html"                                 json:"content_html"`
	ContentMarkdown string     `bun:"content_markdown"                             json:"content_markdown,omitempty"`
	CoverImage      string     `bun:"cover_image"                                  json:"cover_image,omitempty"`
	Status          Status     `bun:"status,notnull,default:'draft'"               json:"status"`
	Tags            []string   `bun:"tags,type:jsonb"                              json:"tags"`
	Versions        []Version  `bun:"versions,type:jsonb"                          json:"versions,omitempty"`
	PublishedAt     *time.Time `bun:"published_at,nullzero"                        json:"published_at,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Version is a snapshot of an article taken right before an update.
type Version struct {
	Number          int       `json:"number"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Summary         string    `json:"summary,omitempty"`
	ContentHTML     string    `json:"content_html"`
	ContentMarkdown string    `json:"content_markdown,omitempty"`
	CoverImage      string    `json:"cover_image,omitempty"`
	Status          Status    `json:"status"`
	Tags            []string  `json:"tags"`
	SavedAt         time.Time `json:"saved_at"`
}

// HasTag reports whether the article carries the tag slug.
func (a *Article) HasTag(tag string) bool {
	return a != nil && slices.Contains(a.Tags, tag)
}

func (a *Article) snapshot(number int, at time.Time) Version {
	return Version{
		Number:          number,
		Title:           a.Title,
		Slug:            a.Slug,
		Summary:         a.Summary,
		ContentHTML:     a.ContentHTML,
		ContentMarkdown: a.ContentMarkdown,
		CoverImage:      a.CoverImage,
		Status:          a.Status,
		Tags:            slices.Clone(a.Tags),
		SavedAt:         at,
	}
}

func cloneArticle(src *Article) *Article {
	if src == nil {
		return nil
	}
	out := *src
	out.Tags = slices.Clone(src.Tags)
	if src.Versions != nil {
		out.Versions = make([]Version, len(src.Versions))
		for i, v := range src.Versions {
			v.Tags = slices.Clone(v.Tags)
			out.Versions[i] = v
		}
	}
	if src.PublishedAt != nil {
		ts := *src.PublishedAt
		out.PublishedAt = &ts
	}
	return &out
}
