package campus

import (
	"context"
	"math"

	"campus/internal/store"
)

// FeedbackEntry is one rating of an event.
type FeedbackEntry struct {
	ID        string `json:"id"`
	EventID   string `json:"eventId" validate:"required"`
	UserID    string `json:"userId"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comments  string `json:"comments"`
	Timestamp string `json:"timestamp"`
}

type FeedbackInput struct {
	EventID  string `json:"eventId"`
	UserID   string `json:"userId"`
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

// EventFeedback aggregates the feedback of one event.
type EventFeedback struct {
	EventID       string          `json:"eventId"`
	Total         int             `json:"total"`
	AverageRating float64         `json:"averageRating"`
	Feedback      []FeedbackEntry `json:"feedback"`
}

type Feedback struct {
	docs collection[FeedbackEntry]
	now  func() string
}

func (s *Feedback) Submit(ctx context.Context, in FeedbackInput, userID string) (FeedbackEntry, error) {
	trim(&in.EventID, &in.UserID, &in.Comments)
	f := FeedbackEntry{
		EventID:   in.EventID,
		UserID:    firstNonEmpty(in.UserID, userID),
		Rating:    in.Rating,
		Comments:  in.Comments,
		Timestamp: s.now(),
	}
	return s.docs.create(ctx, &f)
}

// ForEvent returns all feedback of eventID, newest first, with the average rating
// rounded to one decimal.
func (s *Feedback) ForEvent(ctx context.Context, eventID string) (EventFeedback, error) {
	entries, err := s.docs.all(ctx, store.Query{OrderBy: "timestamp", Descending: true}.Where("eventId", eventID))
	if err != nil {
		return EventFeedback{}, err
	}
	out := EventFeedback{EventID: eventID, Total: len(entries), Feedback: entries}
	if len(entries) > 0 {
		sum := 0
		for _, e := range entries {
			sum += e.Rating
		}
		out.AverageRating = math.Round(float64(sum)/float64(len(entries))*10) / 10
	}
	return out, nil
}
