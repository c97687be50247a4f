package tags

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tag labels articles. System tags are owned by configuration and drive the
// site menus.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID             uuid.UUID `bun:",pk,type:uuid"                                json:"id"`
	Slug           string    `bun:"slug,notnull,unique"                          json:"slug"`
	Name           string    `bun:"name,notnull"                                 json:"name"`
	Description    string    `bun:"description"                                  json:"description,omitempty"`
	RequiredFields []string  `bun:"required_fields,type:jsonb"                   json:"required_fields,omitempty"`
	IsSystem       bool      `bun:"is_system,notnull,default:false"              json:"is_system"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// NotFoundError is returned when a tag lookup misses.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func cloneTag(src *Tag) *Tag {
	if src == nil {
		return nil
	}
	out := *src
	out.RequiredFields = slices.Clone(src.RequiredFields)
	return &out
}
