package campus

import (
	"context"

	"campus/internal/store"
)

// Announcement is a notice posted by an admin.
type Announcement struct {
	ID               string `json:"id"`
	Title            string `json:"title" validate:"required"`
	Description      string `json:"description" validate:"required"`
	Category         string `json:"category"`
	AnnouncementDate string `json:"announcementDate"`
	Author           string `json:"author"`
	CreatedAt        string `json:"createdAt"`
}

// AnnouncementInput is the create payload. Tag is accepted as an alias of Category.
type AnnouncementInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Tag              string `json:"tag"`
	AnnouncementDate string `json:"announcementDate"`
}

type Announcements struct {
	docs collection[Announcement]
	now  func() string
}

var announcementPatch = []string{"title", "description", "category", "announcementDate"}

// Create stores an announcement signed by author.
func (s *Announcements) Create(ctx context.Context, in AnnouncementInput, author string) (Announcement, error) {
	trim(&in.Title, &in.Description, &in.Category, &in.Tag)
	now := s.now()
	date, err := normalizeDate("announcementDate", in.AnnouncementDate, now)
	if err != nil {
		return Announcement{}, err
	}
	a := Announcement{
		Title:            in.Title,
		Description:      in.Description,
		Category:         firstNonEmpty(in.Category, in.Tag, "General"),
		AnnouncementDate: date,
		Author:           firstNonEmpty(author, "Admin"),
		CreatedAt:        now,
	}
	return s.docs.create(ctx, &a)
}

// List returns announcements newest first, optionally of one category.
func (s *Announcements) List(ctx context.Context, category string, p ListParams) (Page[Announcement], error) {
	q := store.Query{OrderBy: "createdAt", Descending: true}.Where("category", category)
	return s.docs.list(ctx, p.apply(q))
}

func (s *Announcements) Get(ctx context.Context, id string) (Announcement, error) {
	return s.docs.get(ctx, id)
}

func (s *Announcements) Update(ctx context.Context, id string, patch map[string]any) (Announcement, error) {
	return s.docs.update(ctx, id, patch, announcementPatch, func(a *Announcement) error {
		trim(&a.Title, &a.Description, &a.Category)
		date, err := normalizeDate("announcementDate", a.AnnouncementDate, a.CreatedAt)
		a.AnnouncementDate = date
		return err
	})
}

func (s *Announcements) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
