package campus

import (
	"context"

	"campus/internal/store"
)

// Booking reserves a mentor slot or an upskilling session for a student.
type Booking struct {
	ID          string `json:"id"`
	MentorID    string `json:"mentorId" validate:"required_without=SessionID"`
	SessionID   string `json:"sessionId"`
	StudentName string `json:"studentName"`
	Skill       string `json:"skill"`
	Slot        string `json:"slot"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Purpose     string `json:"purpose"`
	Notes       string `json:"notes"`
	UserID      string `json:"userId"`
	CreatedAt   string `json:"createdAt"`
}

type BookingInput struct {
	MentorID    string `json:"mentorId"`
	SessionID   string `json:"sessionId"`
	StudentName string `json:"studentName"`
	Skill       string `json:"skill"`
	Slot        string `json:"slot"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Purpose     string `json:"purpose"`
	Notes       string `json:"notes"`
	UserID      string `json:"userId"`
}

type BookingFilter struct {
	MentorID string
	UserID   string
}

type Bookings struct {
	docs collection[Booking]
	now  func() string
}

var bookingPatch = []string{"studentName", "skill", "slot", "date", "time", "purpose", "notes"}

func (s *Bookings) Create(ctx context.Context, in BookingInput, userID string) (Booking, error) {
	trim(&in.MentorID, &in.SessionID, &in.StudentName, &in.Skill, &in.Slot, &in.UserID)
	b := Booking{
		MentorID:    in.MentorID,
		SessionID:   in.SessionID,
		StudentName: in.StudentName,
		Skill:       in.Skill,
		Slot:        in.Slot,
		Date:        in.Date,
		Time:        in.Time,
		Purpose:     in.Purpose,
		Notes:       in.Notes,
		UserID:      firstNonEmpty(in.UserID, userID),
		CreatedAt:   s.now(),
	}
	return s.docs.create(ctx, &b)
}

// List returns bookings newest first.
func (s *Bookings) List(ctx context.Context, f BookingFilter, p ListParams) (Page[Booking], error) {
	q := store.Query{OrderBy: "createdAt", Descending: true}.
		Where("mentorId", f.MentorID).
		Where("userId", f.UserID)
	return s.docs.list(ctx, p.apply(q))
}

func (s *Bookings) Get(ctx context.Context, id string) (Booking, error) {
	return s.docs.get(ctx, id)
}

func (s *Bookings) Update(ctx context.Context, id string, patch map[string]any) (Booking, error) {
	return s.docs.update(ctx, id, patch, bookingPatch, nil)
}

func (s *Bookings) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
