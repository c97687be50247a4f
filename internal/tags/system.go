package tags

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goliatone/go-microsite/internal/validation"
)

//go:embed schema/system_tags.schema.json
var systemTagsSchemaJSON []byte

var systemTagsSchema = validation.MustCompile("system_tags.schema.json", systemTagsSchemaJSON)

// SystemTagDefinition is one entry of the system tags file.
type SystemTagDefinition struct {
	Slug           string   `json:"slug"`
	Name           string   `json:"name,omitempty"`
	Description    string   `json:"description,omitempty"`
	RequiredFields []string `json:"required_fields,omitempty"`
}

// SyncReport lists the slugs touched by SyncSystemTags.
type SyncReport struct {
	Added    []string
	Marked   []string
	Unmarked []string
	Failed   map[string]error
}

// LoadSystemTags reads and validates a JSON array of system tag definitions.
func LoadSystemTags(path string) ([]SystemTagDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tags: read system tags: %w", err)
	}
	return ParseSystemTags(data)
}

// ParseSystemTags validates data against the system tags schema and decodes it.
func ParseSystemTags(data []byte) ([]SystemTagDefinition, error) {
	if err := systemTagsSchema.ValidateJSON(data); err != nil {
		return nil, fmt.Errorf("tags: invalid system tags: %w", err)
	}
	var defs []SystemTagDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("tags: decode system tags: %w", err)
	}
	return defs, nil
}

// SyncSystemTags makes the stored system flags match defs. Missing tags are
// created as system tags. Existing tags that were not system tags are marked
// and take their name, description and required fields from the definition.
// System tags absent from defs are unmarked. Per-tag write failures are
// collected in the report and do not stop the sync.
func (s *service) SyncSystemTags(ctx context.Context, defs []SystemTagDefinition) (*SyncReport, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]*Tag, len(existing))
	for _, tag := range existing {
		bySlug[tag.Slug] = tag
	}

	report := &SyncReport{Failed: map[string]error{}}
	configured := make(map[string]bool, len(defs))
	now := s.now().UTC()

	for _, def := range defs {
		slugValue := strings.TrimSpace(def.Slug)
		if slugValue == "" || configured[slugValue] {
			continue
		}
		configured[slugValue] = true

		name := strings.TrimSpace(def.Name)
		if name == "" {
			name = slugValue
		}
		fields := slices.Clone(def.RequiredFields)
		if fields == nil {
			fields = []string{}
		}

		current, ok := bySlug[slugValue]
		switch {
		case !ok:
			if _, err := s.insert(ctx, &Tag{
				Slug:           slugValue,
				Name:           name,
				Description:    strings.TrimSpace(def.Description),
				RequiredFields: fields,
				IsSystem:       true,
			}); err != nil {
				s.logger.Error("tags.sync.add_failed", "slug", slugValue, "error", err)
				report.Failed[slugValue] = err
				continue
			}
			report.Added = append(report.Added, slugValue)
		case !current.IsSystem:
			next := cloneTag(current)
			next.IsSystem = true
			next.Name = name
			next.Description = strings.TrimSpace(def.Description)
			next.RequiredFields = fields
			next.UpdatedAt = now
			if _, err := s.repo.Update(ctx, next); err != nil {
				s.logger.Error("tags.sync.mark_failed", "slug", slugValue, "error", err)
				report.Failed[slugValue] = err
				continue
			}
			report.Marked = append(report.Marked, slugValue)
		}
	}

	for _, tag := range existing {
		if !tag.IsSystem || configured[tag.Slug] {
			continue
		}
		next := cloneTag(tag)
		next.IsSystem = false
		next.UpdatedAt = now
		if _, err := s.repo.Update(ctx, next); err != nil {
			s.logger.Error("tags.sync.unmark_failed", "slug", tag.Slug, "error", err)
			report.Failed[tag.Slug] = err
			continue
		}
		report.Unmarked = append(report.Unmarked, tag.Slug)
	}

	s.logger.Info("tags.sync.completed",
		"added", len(report.Added),
		"marked", len(report.Marked),
		"unmarked", len(report.Unmarked),
		"failed", len(report.Failed),
	)
	return report, nil
}
