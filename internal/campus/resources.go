package campus

import (
	"context"

	"campus/internal/store"
)

// Resource is a curated link (placement material, course, article) grouped by type.
type Resource struct {
	ID          string `json:"id"`
	Type        string `json:"type" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Link        string `json:"link" validate:"omitempty,url"`
	Tags        Tags   `json:"tags,omitempty"`
	PostedBy    string `json:"postedBy"`
	PostedAt    string `json:"postedAt"`
}

type ResourceInput struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Tags        Tags   `json:"tags"`
	PostedBy    string `json:"postedBy"`
}

type Resources struct {
	docs collection[Resource]
	now  func() string
}

var resourcePatch = []string{"type", "title", "description", "link", "tags"}

func (s *Resources) Add(ctx context.Context, in ResourceInput, postedBy string) (Resource, error) {
	trim(&in.Type, &in.Title, &in.Description, &in.Link, &in.PostedBy)
	r := Resource{
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Link:        in.Link,
		Tags:        cleanList(in.Tags),
		PostedBy:    firstNonEmpty(in.PostedBy, postedBy),
		PostedAt:    s.now(),
	}
	return s.docs.create(ctx, &r)
}

// List returns resources newest first, optionally of one type.
func (s *Resources) List(ctx context.Context, typ string, p ListParams) (Page[Resource], error) {
	q := store.Query{OrderBy: "postedAt", Descending: true}.Where("type", typ)
	return s.docs.list(ctx, p.apply(q))
}

func (s *Resources) Get(ctx context.Context, id string) (Resource, error) {
	return s.docs.get(ctx, id)
}

func (s *Resources) Update(ctx context.Context, id string, patch map[string]any) (Resource, error) {
	return s.docs.update(ctx, id, patch, resourcePatch, func(r *Resource) error {
		trim(&r.Type, &r.Title, &r.Link)
		r.Tags = cleanList(r.Tags)
		return nil
	})
}

func (s *Resources) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
