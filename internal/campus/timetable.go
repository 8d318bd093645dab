package campus

import (
	"context"
	"time"

	"campus/internal/store"
)

// TimetableEntry is one class slot in a user's weekly timetable.
type TimetableEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"userId" validate:"required"`
	Day       string `json:"day" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Location  string `json:"location"`
	Faculty   string `json:"faculty"`
	Type      string `json:"type"`
	CreatedAt string `json:"createdAt"`
}

type TimetableInput struct {
	UserID    string `json:"userId"`
	Day       string `json:"day"`
	Subject   string `json:"subject"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Location  string `json:"location"`
	Faculty   string `json:"faculty"`
	Type      string `json:"type"`
}

// TimetableFilter narrows a user's timetable by day or class type.
type TimetableFilter struct {
	Day  string
	Type string
}

type Timetable struct {
	docs collection[TimetableEntry]
	now  func() string
}

var timetablePatch = []string{"day", "subject", "startTime", "endTime", "location", "faculty", "type"}

func (s *Timetable) Create(ctx context.Context, in TimetableInput) (TimetableEntry, error) {
	trim(&in.UserID, &in.Day, &in.Subject, &in.StartTime, &in.EndTime, &in.Location, &in.Faculty, &in.Type)
	e := TimetableEntry{
		UserID:    in.UserID,
		Day:       in.Day,
		Subject:   in.Subject,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Location:  in.Location,
		Faculty:   in.Faculty,
		Type:      in.Type,
		CreatedAt: s.now(),
	}
	if err := checkSlot(e); err != nil {
		return TimetableEntry{}, err
	}
	return s.docs.create(ctx, &e)
}

// ForUser lists the entries of userID ordered by start time.
func (s *Timetable) ForUser(ctx context.Context, userID string, f TimetableFilter, p ListParams) (Page[TimetableEntry], error) {
	if userID == "" {
		return Page[TimetableEntry]{}, invalid("userId", "userId is required")
	}
	q := store.Query{OrderBy: "startTime"}.
		Where("userId", userID).
		Where("day", f.Day).
		Where("type", f.Type)
	return s.docs.list(ctx, p.apply(q))
}

func (s *Timetable) Update(ctx context.Context, id string, patch map[string]any) (TimetableEntry, error) {
	return s.docs.update(ctx, id, patch, timetablePatch, func(e *TimetableEntry) error {
		trim(&e.Day, &e.Subject, &e.StartTime, &e.EndTime)
		return checkSlot(*e)
	})
}

func (s *Timetable) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}

// checkSlot rejects HH:MM slots that end before they start. Other formats pass through.
func checkSlot(e TimetableEntry) error {
	start, err1 := time.Parse("15:04", e.StartTime)
	end, err2 := time.Parse("15:04", e.EndTime)
	if err1 == nil && err2 == nil && !end.After(start) {
		return invalid("endTime", "endTime must be after startTime")
	}
	return nil
}
