package sitecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/generator"
	"github.com/goliatone/go-microsite/internal/importer"
	"github.com/goliatone/go-microsite/internal/microtemplates"
	"github.com/goliatone/go-microsite/internal/tags"
)

const (
	generateSiteMessageType     = "microsite.site.generate"
	syncSystemTagsMessageType   = "microsite.tags.sync_system"
	importArticlesMessageType   = "microsite.articles.import"
	validateRegistryMessageType = "microsite.microtemplates.validate_registry"
)

// GenerateSiteCommand runs one full generator pass.
type GenerateSiteCommand struct {
	ResultCallback func(*generator.Result) `json:"-"`
}

// Type implements command.Message.
func (GenerateSiteCommand) Type() string { return generateSiteMessageType }

// Validate implements command.Message.
func (GenerateSiteCommand) Validate() error { return nil }

// SyncSystemTagsCommand loads the system tag file at Path and syncs the store.
type SyncSystemTagsCommand struct {
	Path           string                 `json:"path"`
	ResultCallback func(*tags.SyncReport) `json:"-"`
}

// Type implements command.Message.
func (SyncSystemTagsCommand) Type() string { return syncSystemTagsMessageType }

// Validate ensures a path was supplied.
func (m SyncSystemTagsCommand) Validate() error {
	return validation.Errors{
		"path": validation.Validate(strings.TrimSpace(m.Path), validation.Required),
	}.Filter()
}

// ImportArticlesCommand imports a directory of Markdown documents.
type ImportArticlesCommand struct {
	Dir            string                 `json:"dir"`
	DefaultStatus  articles.Status        `json:"default_status,omitempty"`
	Recursive      bool                   `json:"recursive,omitempty"`
	ResultCallback func(*importer.Report) `json:"-"`
}

// Type implements command.Message.
func (ImportArticlesCommand) Type() string { return importArticlesMessageType }

// Validate checks the directory and the optional default status.
func (m ImportArticlesCommand) Validate() error {
	return validation.Errors{
		"dir": validation.Validate(strings.TrimSpace(m.Dir), validation.Required),
		"default_status": validation.Validate(m.DefaultStatus,
			validation.In(articles.StatusDraft, articles.StatusPublished, articles.StatusArchived),
		),
	}.Filter()
}

// ValidateRegistryCommand parses the microtemplate registry at Path without
// the empty-registry fallback used during generation.
type ValidateRegistryCommand struct {
	Path           string                         `json:"path"`
	ResultCallback func(*microtemplates.Registry) `json:"-"`
}

// Type implements command.Message.
func (ValidateRegistryCommand) Type() string { return validateRegistryMessageType }

// Validate ensures a path was supplied.
func (m ValidateRegistryCommand) Validate() error {
	return validation.Errors{
		"path": validation.Validate(strings.TrimSpace(m.Path), validation.Required),
	}.Filter()
}
