package campus

import (
	"context"
	"strings"

	"campus/internal/store"
)

const (
	SessionOpen   = "open"
	SessionBooked = "booked"
)

// UpskillingSession is a mentor-led session that one mentee can book.
type UpskillingSession struct {
	ID          string `json:"id"`
	MentorID    string `json:"mentorId" validate:"required"`
	Skill       string `json:"skill" validate:"required"`
	Experience  string `json:"experience"`
	Description string `json:"description"`
	TimeSlot    string `json:"timeSlot"`
	Status      string `json:"status" validate:"oneof=open booked"`
	MenteeID    string `json:"menteeId,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type SessionInput struct {
	MentorID    string `json:"mentorId"`
	Skill       string `json:"skill"`
	Experience  string `json:"experience"`
	Description string `json:"description"`
	TimeSlot    string `json:"timeSlot"`
}

type BookSessionInput struct {
	SessionID string `json:"sessionId" validate:"required"`
	MenteeID  string `json:"menteeId"`
}

type Upskilling struct {
	docs collection[UpskillingSession]
	now  func() string
}

var sessionPatch = []string{"skill", "experience", "description", "timeSlot"}

// Create opens a session for booking.
func (s *Upskilling) Create(ctx context.Context, in SessionInput) (UpskillingSession, error) {
	trim(&in.MentorID, &in.Skill, &in.Experience, &in.Description, &in.TimeSlot)
	sess := UpskillingSession{
		MentorID:    in.MentorID,
		Skill:       in.Skill,
		Experience:  in.Experience,
		Description: in.Description,
		TimeSlot:    in.TimeSlot,
		Status:      SessionOpen,
		CreatedAt:   s.now(),
	}
	return s.docs.create(ctx, &sess)
}

// Open lists sessions that can still be booked, newest first.
func (s *Upskilling) Open(ctx context.Context, p ListParams) (Page[UpskillingSession], error) {
	q := store.Query{OrderBy: "createdAt", Descending: true}.Where("status", SessionOpen)
	return s.docs.list(ctx, p.apply(q))
}

// Book assigns the session to a mentee. Only open sessions can be booked, and the
// check and the write happen atomically.
func (s *Upskilling) Book(ctx context.Context, in BookSessionInput, userID string) (UpskillingSession, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.MenteeID = firstNonEmpty(strings.TrimSpace(in.MenteeID), userID)
	if err := check(&in); err != nil {
		return UpskillingSession{}, err
	}
	return s.docs.mutate(ctx, in.SessionID, func(sess *UpskillingSession) (store.Fields, error) {
		if sess.Status != SessionOpen {
			return nil, invalid("sessionId", "session is not open")
		}
		return store.Fields{"status": SessionBooked, "menteeId": in.MenteeID}, nil
	})
}

func (s *Upskilling) Get(ctx context.Context, id string) (UpskillingSession, error) {
	return s.docs.get(ctx, id)
}

func (s *Upskilling) Update(ctx context.Context, id string, patch map[string]any) (UpskillingSession, error) {
	return s.docs.update(ctx, id, patch, sessionPatch, func(sess *UpskillingSession) error {
		trim(&sess.Skill)
		return nil
	})
}

func (s *Upskilling) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
