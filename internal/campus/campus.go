// Package campus implements the campus resources: announcements, complaints, lost and
// found items, timetables, bookings, polls, mentors, upskilling sessions, curated
// resources and event feedback. Each service validates input, stamps server fields and
// stores one canonical document shape per entity.
package campus

import (
	"time"

	"campus/internal/queue"
	"campus/internal/store"
)

// Collection names.
const (
	CollAnnouncements = "announcements"
	CollComplaints    = "complaints"
	CollLostFound     = "lostFound"
	CollTimetables    = "timetables"
	CollBookings      = "bookings"
	CollPolls         = "polls"
	CollPollVotes     = "pollVotes"
	CollMentors       = "mentors"
	CollUpskilling    = "upskillingSessions"
	CollResources     = "curatedResources"
	CollFeedback      = "feedbacks"
)

// TimeLayout is the fixed-width UTC layout of every server timestamp. Strings in this
// layout sort in time order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Options configures the services.
type Options struct {
	// Queue receives lost-and-found image jobs. Nil disables image uploads.
	Queue queue.Queue
	// PollVoteDedup limits authenticated callers to one vote per poll.
	PollVoteDedup bool
	// Now overrides the clock.
	Now func() time.Time
}

// Services bundles every resource service over one store.
type Services struct {
	Announcements *Announcements
	Complaints    *Complaints
	LostFound     *LostFound
	Timetable     *Timetable
	Bookings      *Bookings
	Polls         *Polls
	Mentors       *Mentors
	Upskilling    *Upskilling
	Resources     *Resources
	Feedback      *Feedback
}

// New wires all services to s.
func New(s store.Store, opts Options) *Services {
	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}
	now := func() string { return clock().UTC().Format(TimeLayout) }
	return &Services{
		Announcements: &Announcements{docs: newCollection[Announcement](s, CollAnnouncements, "announcement"), now: now},
		Complaints:    &Complaints{docs: newCollection[Complaint](s, CollComplaints, "complaint"), now: now},
		LostFound:     &LostFound{docs: newCollection[LostFoundItem](s, CollLostFound, "item"), queue: opts.Queue, now: now},
		Timetable:     &Timetable{docs: newCollection[TimetableEntry](s, CollTimetables, "timetable entry"), now: now},
		Bookings:      &Bookings{docs: newCollection[Booking](s, CollBookings, "booking"), now: now},
		Polls:         &Polls{docs: newCollection[pollDoc](s, CollPolls, "poll"), store: s, dedup: opts.PollVoteDedup, now: now},
		Mentors:       &Mentors{docs: newCollection[Mentor](s, CollMentors, "mentor"), now: now},
		Upskilling:    &Upskilling{docs: newCollection[UpskillingSession](s, CollUpskilling, "session"), now: now},
		Resources:     &Resources{docs: newCollection[Resource](s, CollResources, "resource"), now: now},
		Feedback:      &Feedback{docs: newCollection[FeedbackEntry](s, CollFeedback, "feedback"), now: now},
	}
}

// ListParams selects one page of a listing.
type ListParams struct {
	Limit  int
	Cursor string
}

// Page is one page of entities. NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

func (p ListParams) apply(q store.Query) store.Query {
	q.Limit = p.Limit
	q.Cursor = p.Cursor
	return q
}
