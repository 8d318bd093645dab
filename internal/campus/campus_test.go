package campus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/queue"
	"campus/internal/store"
)

type fixture struct {
	store *store.Memory
	queue *queue.InMemory
	svc   *Services
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMemory(),
		queue: queue.NewInMemory(8),
		clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = New(f.store, Options{
		Queue:         f.queue,
		PollVoteDedup: true,
		Now: func() time.Time {
			f.clock = f.clock.Add(time.Second)
			return f.clock
		},
	})
	return f
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr.FieldMap()
}

func TestComplaintLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Complaints

	_, err := s.Create(ctx, ComplaintInput{Title: "  ", Description: "x"}, "")
	assert.Equal(t, map[string]string{"title": "title is required"}, fieldsOf(t, err))
	assert.Equal(t, 0, f.store.Count(CollComplaints))

	_, err = s.Create(ctx, ComplaintInput{Title: "Fan", Description: "broken", Priority: "urgent"}, "")
	assert.Contains(t, fieldsOf(t, err), "priority")

	first, err := s.Create(ctx, ComplaintInput{Title: "Leak", Description: "Bathroom tap", Block: "B"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, "medium", first.Priority)
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, "2024-03-01T09:00:03.000Z", first.SubmittedAt)

	second, err := s.Create(ctx, ComplaintInput{Title: "Wifi", Description: "Down", Block: "C"}, "")
	require.NoError(t, err)

	page, err := s.List(ctx, ComplaintFilter{}, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, second.ID, page.Items[0].ID, "newest first")

	page, err = s.List(ctx, ComplaintFilter{Block: "B"}, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	_, err = s.SetStatus(ctx, first.ID, "done")
	assert.Contains(t, fieldsOf(t, err), "status")

	updated, err := s.SetStatus(ctx, first.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)
	assert.Equal(t, "Leak", updated.Title)

	_, err = s.SetStatus(ctx, "missing", StatusResolved)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "complaint not found", nf.Error())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateIsWhitelistedAndRevalidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Complaints

	c, err := s.Create(ctx, ComplaintInput{Title: "Leak", Description: "Tap"}, "")
	require.NoError(t, err)

	updated, err := s.Update(ctx, c.ID, map[string]any{
		"title":       "Big leak",
		"submittedAt": "1999-01-01T00:00:00.000Z",
		"id":          "hijack",
	})
	require.NoError(t, err)
	assert.Equal(t, "Big leak", updated.Title)
	assert.Equal(t, c.SubmittedAt, updated.SubmittedAt)
	assert.Equal(t, c.ID, updated.ID)

	_, err = s.Update(ctx, c.ID, map[string]any{"title": ""})
	assert.Contains(t, fieldsOf(t, err), "title")

	_, err = s.Update(ctx, c.ID, map[string]any{"title": 42})
	assert.Contains(t, fieldsOf(t, err), "title")

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big leak", got.Title, "rejected updates write nothing")

	_, err = s.Update(ctx, "missing", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, f.store.Count(CollComplaints))
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Resources

	r, err := s.Add(ctx, ResourceInput{Type: "placement", Title: "Resume tips", Tags: Tags{"cv"}}, "admin")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, r.ID))
	require.NoError(t, s.Delete(ctx, r.ID))

	page, err := s.List(ctx, "", ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestAnnouncementDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Announcements

	a, err := s.Create(ctx, AnnouncementInput{Title: "Fest", Description: "Friday", Tag: "Events", AnnouncementDate: "2024-04-05"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Events", a.Category)
	assert.Equal(t, "Admin", a.Author)
	assert.Equal(t, "2024-04-05T00:00:00.000Z", a.AnnouncementDate)

	_, err = s.Create(ctx, AnnouncementInput{Title: "x", Description: "y", AnnouncementDate: "next week"}, "")
	assert.Contains(t, fieldsOf(t, err), "announcementDate")

	b, err := s.Create(ctx, AnnouncementInput{Title: "Exams", Description: "Schedule"}, "Dean")
	require.NoError(t, err)
	assert.Equal(t, "General", b.Category)
	assert.Equal(t, "Dean", b.Author)

	page, err := s.List(ctx, "Events", ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)
}

func TestLostFoundReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.LostFound

	_, err := s.Report(ctx, LostFoundInput{ItemName: "Wallet", Status: "stolen"})
	assert.Contains(t, fieldsOf(t, err), "status")
	_, err = s.Report(ctx, LostFoundInput{Status: "lost"})
	assert.Contains(t, fieldsOf(t, err), "itemName")

	wallet, err := s.Report(ctx, LostFoundInput{
		ItemName:    "Black Wallet",
		Status:      "Lost",
		Description: "Leather, near the library",
		Date:        "2024-02-10",
		Image:       "data:image/png;base64,aGk=",
	})
	require.NoError(t, err)
	assert.Equal(t, "lost", wallet.Status)
	assert.ElementsMatch(t, []string{"black", "wallet", "leather", "near", "the", "library"}, wallet.Keywords)
	assert.Empty(t, wallet.ImageURL)

	_, err = s.Report(ctx, LostFoundInput{ItemName: "Umbrella", Status: "found", Date: "2024-02-20"})
	require.NoError(t, err)

	ctxC, cancel := context.WithCancel(ctx)
	defer cancel()
	jobs, err := f.queue.Consume(ctxC)
	require.NoError(t, err)
	select {
	case msg := <-jobs:
		assert.Equal(t, ImageJobType, msg.Type)
		var job ImageJob
		require.NoError(t, msg.Decode(&job))
		assert.Equal(t, wallet.ID, job.ItemID)
	case <-time.After(time.Second):
		t.Fatal("image job not queued")
	}

	tests := []struct {
		name   string
		filter LostFoundFilter
		want   []string
	}{
		{"keyword", LostFoundFilter{Keyword: "WALLET"}, []string{"Black Wallet"}},
		{"partial word does not match", LostFoundFilter{Keyword: "wall"}, nil},
		{"status", LostFoundFilter{Status: "found"}, []string{"Umbrella"}},
		{"date range", LostFoundFilter{FromDate: "2024-02-01", ToDate: "2024-02-10"}, []string{"Black Wallet"}},
		{"all by date desc", LostFoundFilter{}, []string{"Umbrella", "Black Wallet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.List(ctx, tt.filter, ListParams{})
			require.NoError(t, err)
			var names []string
			for _, it := range page.Items {
				names = append(names, it.ItemName)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	_, err = s.List(ctx, LostFoundFilter{FromDate: "yesterday"}, ListParams{})
	assert.Contains(t, fieldsOf(t, err), "fromDate")

	resolved, err := s.Resolve(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)

	withImage, err := s.SetImage(ctx, wallet.ID, "https://cdn.example/w.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/w.png", withImage.ImageURL)
	assert.Equal(t, StatusResolved, withImage.Status)

	renamed, err := s.Update(ctx, wallet.ID, map[string]any{"itemName": "Brown purse", "keywords": []any{"x"}})
	require.NoError(t, err)
	assert.Contains(t, renamed.Keywords, "purse")
	assert.NotContains(t, renamed.Keywords, "x")

	blank, err := s.Update(ctx, wallet.ID, map[string]any{"itemName": "X", "description": ""})
	require.NoError(t, err)
	assert.Empty(t, blank.Keywords)
	page, err := s.List(ctx, LostFoundFilter{Keyword: "purse"}, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestLostFoundKeywordMatchesEveryWord(t *testing.T) {
	ctx := context.Background()
	s := newFixture(t).svc.LostFound

	for _, name := range []string{"Red wallet", "Red umbrella", "Blue wallet", "red leather wallet", "Wallet, red"} {
		_, err := s.Report(ctx, LostFoundInput{ItemName: name, Status: "lost"})
		require.NoError(t, err)
	}

	names := func(items []LostFoundItem) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.ItemName)
		}
		return out
	}

	page, err := s.List(ctx, LostFoundFilter{Keyword: "red wallet"}, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Wallet, red", "red leather wallet", "Red wallet"}, names(page.Items))
	assert.Empty(t, page.NextCursor)

	first, err := s.List(ctx, LostFoundFilter{Keyword: "red wallet"}, ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Wallet, red", "red leather wallet"}, names(first.Items))
	require.NotEmpty(t, first.NextCursor)

	second, err := s.List(ctx, LostFoundFilter{Keyword: "red wallet"}, ListParams{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"Red wallet"}, names(second.Items))
	assert.Empty(t, second.NextCursor)

	page, err = s.List(ctx, LostFoundFilter{Keyword: "green wallet"}, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestTimetable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Timetable

	_, err := s.Create(ctx, TimetableInput{UserID: "u1", Day: "Monday", Subject: "Maths"})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "startTime")
	assert.Contains(t, fields, "endTime")

	_, err = s.Create(ctx, TimetableInput{UserID: "u1", Day: "Monday", Subject: "Maths", StartTime: "10:00", EndTime: "09:00"})
	assert.Contains(t, fieldsOf(t, err), "endTime")

	late, err := s.Create(ctx, TimetableInput{UserID: "u1", Day: "Monday", Subject: "Physics", StartTime: "11:00", EndTime: "12:00"})
	require.NoError(t, err)
	_, err = s.Create(ctx, TimetableInput{UserID: "u1", Day: "Monday", Subject: "Maths", StartTime: "09:00", EndTime: "10:00"})
	require.NoError(t, err)
	_, err = s.Create(ctx, TimetableInput{UserID: "u2", Day: "Monday", Subject: "Art", StartTime: "09:00", EndTime: "10:00"})
	require.NoError(t, err)

	page, err := s.ForUser(ctx, "u1", TimetableFilter{}, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Maths", page.Items[0].Subject)

	moved, err := s.Update(ctx, late.ID, map[string]any{"day": "Tuesday", "userId": "u2"})
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", moved.Day)
	assert.Equal(t, "u1", moved.UserID, "owner is not patchable")
}

func TestBookingNeedsMentorOrSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Bookings

	_, err := s.Create(ctx, BookingInput{StudentName: "Sam"}, "")
	assert.Equal(t, map[string]string{"mentorId": "mentorId or sessionId is required"}, fieldsOf(t, err))

	b, err := s.Create(ctx, BookingInput{SessionID: "s1", StudentName: "Sam"}, "u9")
	require.NoError(t, err)
	assert.Equal(t, "u9", b.UserID)

	page, err := s.List(ctx, BookingFilter{UserID: "u9"}, ListParams{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestMentorSkillsAndLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Mentors

	_, err := s.Create(ctx, MentorInput{UserID: "u1", Name: "Ann"})
	assert.Equal(t, map[string]string{"skills": "skills must not be empty"}, fieldsOf(t, err))

	m, err := s.Create(ctx, MentorInput{UserID: "u1", Name: "Ann", Skills: cleanList([]string{"Go", " ", "SQL"})})
	require.NoError(t, err)
	assert.Equal(t, Tags{"Go", "SQL"}, m.Skills)

	found, err := s.ForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = s.ForUser(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	updated, err := s.Update(ctx, m.ID, map[string]any{"skills": "Rust, Go"})
	require.NoError(t, err)
	assert.Equal(t, Tags{"Rust", "Go"}, updated.Skills)
}

func TestUpskillingBookOnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Upskilling

	sess, err := s.Create(ctx, SessionInput{MentorID: "m1", Skill: "Docker"})
	require.NoError(t, err)
	assert.Equal(t, SessionOpen, sess.Status)

	booked, err := s.Book(ctx, BookSessionInput{SessionID: sess.ID}, "u1")
	require.NoError(t, err)
	assert.Equal(t, SessionBooked, booked.Status)
	assert.Equal(t, "u1", booked.MenteeID)

	_, err = s.Book(ctx, BookSessionInput{SessionID: sess.ID, MenteeID: "u2"}, "")
	assert.Equal(t, map[string]string{"sessionId": "session is not open"}, fieldsOf(t, err))

	open, err := s.Open(ctx, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, open.Items)

	_, err = s.Book(ctx, BookSessionInput{SessionID: "missing"}, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFeedbackAggregate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.svc.Feedback

	_, err := s.Submit(ctx, FeedbackInput{EventID: "e1", Rating: 6}, "")
	assert.Equal(t, map[string]string{"rating": "rating must be at most 5"}, fieldsOf(t, err))
	_, err = s.Submit(ctx, FeedbackInput{EventID: "e1"}, "")
	assert.Contains(t, fieldsOf(t, err), "rating")

	for _, r := range []int{5, 4, 4} {
		_, err := s.Submit(ctx, FeedbackInput{EventID: "e1", Rating: r}, "")
		require.NoError(t, err)
	}
	_, err = s.Submit(ctx, FeedbackInput{EventID: "e2", Rating: 1}, "")
	require.NoError(t, err)

	agg, err := s.ForEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)
	assert.Equal(t, 4.3, agg.AverageRating)

	empty, err := s.ForEvent(ctx, "none")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.AverageRating)
	assert.NotNil(t, empty.Feedback)
}
