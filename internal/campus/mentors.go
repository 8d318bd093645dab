package campus

import (
	"context"

	"campus/internal/store"
)

// Mentor is a student or staff listing offering help with some skills.
type Mentor struct {
	ID         string `json:"id"`
	UserID     string `json:"userId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Skills     Tags   `json:"skills" validate:"min=1"`
	Bio        string `json:"bio"`
	Department string `json:"department"`
	CreatedAt  string `json:"createdAt"`
}

// MentorInput accepts skills as a list or a comma-separated string.
type MentorInput struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Skills     Tags   `json:"skills"`
	Bio        string `json:"bio"`
	Department string `json:"department"`
}

type Mentors struct {
	docs collection[Mentor]
	now  func() string
}

var mentorPatch = []string{"name", "skills", "bio", "department"}

func (s *Mentors) Create(ctx context.Context, in MentorInput) (Mentor, error) {
	trim(&in.UserID, &in.Name, &in.Bio, &in.Department)
	m := Mentor{
		UserID:     in.UserID,
		Name:       in.Name,
		Skills:     cleanList(in.Skills),
		Bio:        in.Bio,
		Department: in.Department,
		CreatedAt:  s.now(),
	}
	return s.docs.create(ctx, &m)
}

// List returns every mentor listing, newest first.
func (s *Mentors) List(ctx context.Context, p ListParams) (Page[Mentor], error) {
	return s.docs.list(ctx, p.apply(store.Query{OrderBy: "createdAt", Descending: true}))
}

// ForUser returns the listings of userID; a user without listings is not found.
func (s *Mentors) ForUser(ctx context.Context, userID string) ([]Mentor, error) {
	mentors, err := s.docs.all(ctx, store.Query{}.Where("userId", userID))
	if err != nil {
		return nil, err
	}
	if len(mentors) == 0 {
		return nil, &NotFoundError{Entity: "mentor"}
	}
	return mentors, nil
}

func (s *Mentors) Get(ctx context.Context, id string) (Mentor, error) {
	return s.docs.get(ctx, id)
}

func (s *Mentors) Update(ctx context.Context, id string, patch map[string]any) (Mentor, error) {
	return s.docs.update(ctx, id, patch, mentorPatch, func(m *Mentor) error {
		trim(&m.Name)
		m.Skills = cleanList(m.Skills)
		return nil
	})
}

func (s *Mentors) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
