package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"campus/internal/campus"
	"campus/internal/cloudinary"
)

func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storeOK := h.store.Ping(ctx) == nil
	body := gin.H{"status": "ok", "store": storeOK}
	if h.redis != nil {
		body["redis"] = h.redis.Healthy(ctx)
	}
	if !storeOK {
		body["status"] = "unavailable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, caller(c))
}

// announcements

func (h *handler) createAnnouncement(c *gin.Context) {
	var in campus.AnnouncementInput
	if !bind(c, &in) {
		return
	}
	a, err := h.svc.Announcements.Create(c.Request.Context(), in, caller(c).DisplayName())
	ok(c, http.StatusCreated, a, err)
}

func (h *handler) listAnnouncements(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Announcements.List(c.Request.Context(), c.Query("category"), p)
	page(c, res, err)
}

func (h *handler) getAnnouncement(c *gin.Context) {
	a, err := h.svc.Announcements.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, a, err)
}

func (h *handler) updateAnnouncement(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	a, err := h.svc.Announcements.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, a, err)
}

func (h *handler) deleteAnnouncement(c *gin.Context) {
	deleted(c, h.svc.Announcements.Delete(c.Request.Context(), c.Param("id")))
}

// complaints

func (h *handler) createComplaint(c *gin.Context) {
	var in campus.ComplaintInput
	if !bind(c, &in) {
		return
	}
	cp, err := h.svc.Complaints.Create(c.Request.Context(), in, caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "complaint submitted", "complaint": cp})
}

func (h *handler) listComplaints(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Complaints.List(c.Request.Context(), campus.ComplaintFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Block:    c.Query("block"),
		Priority: c.Query("priority"),
	}, p)
	page(c, res, err)
}

func (h *handler) getComplaint(c *gin.Context) {
	cp, err := h.svc.Complaints.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, cp, err)
}

func (h *handler) updateComplaint(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	cp, err := h.svc.Complaints.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, cp, err)
}

func (h *handler) setComplaintStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if !bind(c, &body) {
		return
	}
	cp, err := h.svc.Complaints.SetStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated", "updated": cp})
}

func (h *handler) deleteComplaint(c *gin.Context) {
	deleted(c, h.svc.Complaints.Delete(c.Request.Context(), c.Param("id")))
}

// lost and found

func (h *handler) reportItem(c *gin.Context) {
	var in campus.LostFoundInput
	if !bind(c, &in) {
		return
	}
	item, err := h.svc.LostFound.Report(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": item.ID, "message": "item reported", "item": item})
}

func (h *handler) listItems(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.LostFound.List(c.Request.Context(), campus.LostFoundFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		FromDate: c.Query("fromDate"),
		ToDate:   c.Query("toDate"),
		Keyword:  c.Query("keyword"),
	}, p)
	page(c, res, err)
}

func (h *handler) getItem(c *gin.Context) {
	item, err := h.svc.LostFound.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, item, err)
}

func (h *handler) updateItem(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	item, err := h.svc.LostFound.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, item, err)
}

func (h *handler) resolveItem(c *gin.Context) {
	item, err := h.svc.LostFound.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item marked as resolved", "item": item})
}

// maxImageBytes caps the request body of an image upload.
const maxImageBytes = 10 << 20

func tooLarge(c *gin.Context, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds 10 MiB"})
	return true
}

// uploadItemImage accepts a multipart "file" or a JSON {"data": "<base64 data URL>"} body.
func (h *handler) uploadItemImage(c *gin.Context) {
	if h.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.svc.LostFound.Get(ctx, c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes)
	var result *cloudinary.UploadResult
	var err error
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, header, ferr := c.Request.FormFile("file")
		if tooLarge(c, ferr) {
			return
		}
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = h.images.UploadBytes(ctx, data, header.Filename)
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		berr := c.ShouldBindJSON(&body)
		if tooLarge(c, berr) {
			return
		}
		if berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		result, err = h.images.UploadBase64(ctx, body.Data)
	}
	if err != nil {
		log.Printf("item %s: image upload failed: %v", c.Param("id"), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}

	item, err := h.svc.LostFound.SetImage(ctx, c.Param("id"), result.SecureURL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "image uploaded", "item": item})
}

func (h *handler) deleteItem(c *gin.Context) {
	deleted(c, h.svc.LostFound.Delete(c.Request.Context(), c.Param("id")))
}

// timetable

func (h *handler) createTimetableEntry(c *gin.Context) {
	var in campus.TimetableInput
	if !bind(c, &in) {
		return
	}
	if in.UserID == "" {
		in.UserID = caller(c).UID
	}
	e, err := h.svc.Timetable.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "timetable entry added", "newEntry": e})
}

func (h *handler) listTimetable(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Timetable.ForUser(c.Request.Context(), c.Param("userId"), campus.TimetableFilter{
		Day:  c.Query("day"),
		Type: c.Query("type"),
	}, p)
	page(c, res, err)
}

func (h *handler) updateTimetableEntry(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	e, err := h.svc.Timetable.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, e, err)
}

func (h *handler) deleteTimetableEntry(c *gin.Context) {
	deleted(c, h.svc.Timetable.Delete(c.Request.Context(), c.Param("id")))
}

// bookings

func (h *handler) createBooking(c *gin.Context) {
	var in campus.BookingInput
	if !bind(c, &in) {
		return
	}
	b, err := h.svc.Bookings.Create(c.Request.Context(), in, caller(c).UID)
	ok(c, http.StatusCreated, b, err)
}

func (h *handler) listBookings(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Bookings.List(c.Request.Context(), campus.BookingFilter{
		MentorID: c.Query("mentorId"),
		UserID:   c.Query("userId"),
	}, p)
	page(c, res, err)
}

func (h *handler) getBooking(c *gin.Context) {
	b, err := h.svc.Bookings.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, b, err)
}

func (h *handler) updateBooking(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	b, err := h.svc.Bookings.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, b, err)
}

func (h *handler) deleteBooking(c *gin.Context) {
	deleted(c, h.svc.Bookings.Delete(c.Request.Context(), c.Param("id")))
}

// polls

func (h *handler) createPoll(c *gin.Context) {
	var in campus.PollInput
	if !bind(c, &in) {
		return
	}
	p, err := h.svc.Polls.Create(c.Request.Context(), in, caller(c).UID)
	ok(c, http.StatusCreated, p, err)
}

func (h *handler) listPolls(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Polls.List(c.Request.Context(), c.Query("status"), p)
	page(c, res, err)
}

func (h *handler) getPoll(c *gin.Context) {
	p, err := h.svc.Polls.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, p, err)
}

func (h *handler) vote(c *gin.Context) {
	var in campus.VoteInput
	if !bind(c, &in) {
		return
	}
	err := h.svc.Polls.Vote(c.Request.Context(), in, caller(c).UID)
	var verr *campus.ValidationError
	switch {
	case err == nil:
		h.metrics.Vote("ok")
	case errors.Is(err, campus.ErrAlreadyVoted):
		h.metrics.Vote("duplicate")
	case errors.As(err, &verr):
		h.metrics.Vote("rejected")
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vote recorded"})
}

func (h *handler) pollResults(c *gin.Context) {
	res, err := h.svc.Polls.Results(c.Request.Context(), c.Param("pollId"))
	ok(c, http.StatusOK, res, err)
}

func (h *handler) updatePoll(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	p, err := h.svc.Polls.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, p, err)
}

func (h *handler) deletePoll(c *gin.Context) {
	deleted(c, h.svc.Polls.Delete(c.Request.Context(), c.Param("id")))
}

// mentors

func (h *handler) createMentor(c *gin.Context) {
	var in campus.MentorInput
	if !bind(c, &in) {
		return
	}
	if in.UserID == "" {
		in.UserID = caller(c).UID
	}
	m, err := h.svc.Mentors.Create(c.Request.Context(), in)
	ok(c, http.StatusCreated, m, err)
}

func (h *handler) listMentors(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Mentors.List(c.Request.Context(), p)
	page(c, res, err)
}

func (h *handler) mentorsForUser(c *gin.Context) {
	ms, err := h.svc.Mentors.ForUser(c.Request.Context(), c.Param("userId"))
	ok(c, http.StatusOK, ms, err)
}

func (h *handler) getMentor(c *gin.Context) {
	m, err := h.svc.Mentors.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, m, err)
}

func (h *handler) updateMentor(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	m, err := h.svc.Mentors.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, m, err)
}

func (h *handler) deleteMentor(c *gin.Context) {
	deleted(c, h.svc.Mentors.Delete(c.Request.Context(), c.Param("id")))
}

// upskilling

func (h *handler) createSession(c *gin.Context) {
	var in campus.SessionInput
	if !bind(c, &in) {
		return
	}
	s, err := h.svc.Upskilling.Create(c.Request.Context(), in)
	ok(c, http.StatusCreated, s, err)
}

func (h *handler) openSessions(c *gin.Context) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Upskilling.Open(c.Request.Context(), p)
	page(c, res, err)
}

func (h *handler) bookSession(c *gin.Context) {
	var in campus.BookSessionInput
	if !bind(c, &in) {
		return
	}
	s, err := h.svc.Upskilling.Book(c.Request.Context(), in, caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session booked", "session": s})
}

func (h *handler) getSession(c *gin.Context) {
	s, err := h.svc.Upskilling.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, s, err)
}

func (h *handler) updateSession(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	s, err := h.svc.Upskilling.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, s, err)
}

func (h *handler) deleteSession(c *gin.Context) {
	deleted(c, h.svc.Upskilling.Delete(c.Request.Context(), c.Param("id")))
}

// resources

func (h *handler) addResource(c *gin.Context) {
	var in campus.ResourceInput
	if !bind(c, &in) {
		return
	}
	r, err := h.svc.Resources.Add(c.Request.Context(), in, caller(c).UID)
	ok(c, http.StatusCreated, r, err)
}

func (h *handler) listResources(c *gin.Context) {
	h.resources(c, c.Query("type"))
}

func (h *handler) resourcesByType(c *gin.Context) {
	h.resources(c, c.Param("type"))
}

func (h *handler) resources(c *gin.Context, typ string) {
	p, valid := listParams(c)
	if !valid {
		return
	}
	res, err := h.svc.Resources.List(c.Request.Context(), typ, p)
	page(c, res, err)
}

func (h *handler) getResource(c *gin.Context) {
	r, err := h.svc.Resources.Get(c.Request.Context(), c.Param("id"))
	ok(c, http.StatusOK, r, err)
}

func (h *handler) updateResource(c *gin.Context) {
	patch, valid := bindPatch(c)
	if !valid {
		return
	}
	r, err := h.svc.Resources.Update(c.Request.Context(), c.Param("id"), patch)
	ok(c, http.StatusOK, r, err)
}

func (h *handler) deleteResource(c *gin.Context) {
	deleted(c, h.svc.Resources.Delete(c.Request.Context(), c.Param("id")))
}

// feedback

func (h *handler) submitFeedback(c *gin.Context) {
	var in campus.FeedbackInput
	if !bind(c, &in) {
		return
	}
	f, err := h.svc.Feedback.Submit(c.Request.Context(), in, caller(c).UID)
	ok(c, http.StatusCreated, f, err)
}

func (h *handler) eventFeedback(c *gin.Context) {
	f, err := h.svc.Feedback.ForEvent(c.Request.Context(), c.Param("eventId"))
	ok(c, http.StatusOK, f, err)
}
