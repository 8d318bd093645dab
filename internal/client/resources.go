package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"campus/internal/campus"
)

const cursorHeader = "X-Next-Cursor"

// Resource binds one collection of the API. List follows the pagination cursor to
// the end, so callers always see the whole (filtered) collection.
type Resource[T any] struct {
	c *Client

	listPath   string
	createPath string
	itemPath   string
	// createKey names the envelope field that carries the created entity, if any.
	createKey string
	id        func(T) string
	query     url.Values
}

// Filter returns a copy of the resource whose List sends q.
func (r *Resource[T]) Filter(q url.Values) *Resource[T] {
	cp := *r
	cp.query = q
	return &cp
}

func (r *Resource[T]) ID(v T) string {
	return r.id(v)
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	items := []T{}
	cursor := ""
	for {
		q := url.Values{}
		for k, v := range r.query {
			q[k] = v
		}
		q.Set("limit", "200")
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var page []T
		h, err := r.c.do(ctx, http.MethodGet, r.listPath, q, nil, &page)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		cursor = h.Get(cursorHeader)
		if cursor == "" {
			return items, nil
		}
	}
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	_, err := r.c.do(ctx, http.MethodGet, r.itemPath+url.PathEscape(id), nil, nil, &v)
	return v, err
}

func (r *Resource[T]) Create(ctx context.Context, in any) (T, error) {
	var v T
	if r.createKey == "" {
		_, err := r.c.do(ctx, http.MethodPost, r.createPath, nil, in, &v)
		return v, err
	}
	var env map[string]json.RawMessage
	if _, err := r.c.do(ctx, http.MethodPost, r.createPath, nil, in, &env); err != nil {
		return v, err
	}
	raw, ok := env[r.createKey]
	if !ok {
		return v, fmt.Errorf("response has no %q field", r.createKey)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode response: %w", err)
	}
	return v, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var v T
	_, err := r.c.do(ctx, http.MethodPut, r.itemPath+url.PathEscape(id), nil, patch, &v)
	return v, err
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.c.do(ctx, http.MethodDelete, r.itemPath+url.PathEscape(id), nil, nil, nil)
	return err
}

func (c *Client) Announcements() *Resource[campus.Announcement] {
	return &Resource[campus.Announcement]{
		c:          c,
		listPath:   "/api/announcement/announcements",
		createPath: "/api/announcement/announcements",
		itemPath:   "/api/announcement/announcements/",
		id:         func(a campus.Announcement) string { return a.ID },
	}
}

func (c *Client) Complaints() *Resource[campus.Complaint] {
	return &Resource[campus.Complaint]{
		c:          c,
		listPath:   "/api/complaints",
		createPath: "/api/complaints",
		itemPath:   "/api/complaints/",
		createKey:  "complaint",
		id:         func(v campus.Complaint) string { return v.ID },
	}
}

// SetComplaintStatus moves a complaint through pending, in-progress and resolved.
func (c *Client) SetComplaintStatus(ctx context.Context, id, status string) (campus.Complaint, error) {
	var out struct {
		Updated campus.Complaint `json:"updated"`
	}
	_, err := c.do(ctx, http.MethodPatch, "/api/complaints/"+url.PathEscape(id)+"/status", nil,
		map[string]string{"status": status}, &out)
	return out.Updated, err
}

func (c *Client) LostFound() *Resource[campus.LostFoundItem] {
	return &Resource[campus.LostFoundItem]{
		c:          c,
		listPath:   "/api/lostfound",
		createPath: "/api/lostfound/report",
		itemPath:   "/api/lostfound/",
		createKey:  "item",
		id:         func(v campus.LostFoundItem) string { return v.ID },
	}
}

func (c *Client) ResolveItem(ctx context.Context, id string) (campus.LostFoundItem, error) {
	var out struct {
		Item campus.LostFoundItem `json:"item"`
	}
	_, err := c.do(ctx, http.MethodPut, "/api/lostfound/resolve/"+url.PathEscape(id), nil, nil, &out)
	return out.Item, err
}

// Timetable binds the entries of one user.
func (c *Client) Timetable(userID string) *Resource[campus.TimetableEntry] {
	return &Resource[campus.TimetableEntry]{
		c:          c,
		listPath:   "/api/timetable/timetable/" + url.PathEscape(userID),
		createPath: "/api/timetable/timetable",
		itemPath:   "/api/timetable/timetable/",
		createKey:  "newEntry",
		id:         func(v campus.TimetableEntry) string { return v.ID },
	}
}

func (c *Client) Bookings() *Resource[campus.Booking] {
	return &Resource[campus.Booking]{
		c:          c,
		listPath:   "/api/book",
		createPath: "/api/book",
		itemPath:   "/api/book/",
		id:         func(v campus.Booking) string { return v.ID },
	}
}

func (c *Client) Polls() *Resource[campus.Poll] {
	return &Resource[campus.Poll]{
		c:          c,
		listPath:   "/api/polls",
		createPath: "/api/polls/create",
		itemPath:   "/api/polls/",
		id:         func(v campus.Poll) string { return v.ID },
	}
}

func (c *Client) Vote(ctx context.Context, pollID string, option int) error {
	_, err := c.do(ctx, http.MethodPost, "/api/polls/vote", nil,
		map[string]any{"pollId": pollID, "optionIndex": option}, nil)
	return err
}

func (c *Client) PollResults(ctx context.Context, pollID string) (campus.PollResults, error) {
	var out campus.PollResults
	_, err := c.do(ctx, http.MethodGet, "/api/polls/results/"+url.PathEscape(pollID), nil, nil, &out)
	return out, err
}

func (c *Client) Mentors() *Resource[campus.Mentor] {
	return &Resource[campus.Mentor]{
		c:          c,
		listPath:   "/api/mentor/getall",
		createPath: "/api/mentor/create",
		itemPath:   "/api/mentor/id/",
		id:         func(v campus.Mentor) string { return v.ID },
	}
}

func (c *Client) MentorsForUser(ctx context.Context, userID string) ([]campus.Mentor, error) {
	var out []campus.Mentor
	_, err := c.do(ctx, http.MethodGet, "/api/mentor/"+url.PathEscape(userID), nil, nil, &out)
	return out, err
}

// Sessions binds the open upskilling sessions.
func (c *Client) Sessions() *Resource[campus.UpskillingSession] {
	return &Resource[campus.UpskillingSession]{
		c:          c,
		listPath:   "/api/upskilling/open",
		createPath: "/api/upskilling/create",
		itemPath:   "/api/upskilling/",
		id:         func(v campus.UpskillingSession) string { return v.ID },
	}
}

func (c *Client) BookSession(ctx context.Context, sessionID string) (campus.UpskillingSession, error) {
	var out struct {
		Session campus.UpskillingSession `json:"session"`
	}
	_, err := c.do(ctx, http.MethodPost, "/api/upskilling/book", nil,
		map[string]string{"sessionId": sessionID}, &out)
	return out.Session, err
}

func (c *Client) Resources() *Resource[campus.Resource] {
	return &Resource[campus.Resource]{
		c:          c,
		listPath:   "/api/resources/all",
		createPath: "/api/resources/add",
		itemPath:   "/api/resources/",
		id:         func(v campus.Resource) string { return v.ID },
	}
}

func (c *Client) SubmitFeedback(ctx context.Context, in campus.FeedbackInput) (campus.FeedbackEntry, error) {
	var out campus.FeedbackEntry
	_, err := c.do(ctx, http.MethodPost, "/api/feedback/submit", nil, in, &out)
	return out, err
}

func (c *Client) EventFeedback(ctx context.Context, eventID string) (campus.EventFeedback, error) {
	var out campus.EventFeedback
	_, err := c.do(ctx, http.MethodGet, "/api/feedback/event/"+url.PathEscape(eventID), nil, nil, &out)
	return out, err
}
