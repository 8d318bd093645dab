package campus

import (
	"context"
	"strings"

	"campus/internal/store"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
)

// Complaint is a maintenance or facility issue raised by a student.
type Complaint struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category"`
	RoomNumber  string `json:"roomNumber"`
	Block       string `json:"block"`
	Priority    string `json:"priority" validate:"oneof=low medium high"`
	Status      string `json:"status" validate:"oneof=pending in-progress resolved"`
	UserID      string `json:"userId"`
	SubmittedAt string `json:"submittedAt"`
}

type ComplaintInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	RoomNumber  string `json:"roomNumber"`
	Block       string `json:"block"`
	Priority    string `json:"priority"`
	UserID      string `json:"userId"`
}

// ComplaintFilter narrows a complaint listing; empty fields match everything.
type ComplaintFilter struct {
	Status   string
	Category string
	Block    string
	Priority string
}

type Complaints struct {
	docs collection[Complaint]
	now  func() string
}

var complaintPatch = []string{"title", "description", "category", "roomNumber", "block", "priority", "status"}

// Create files a pending complaint. userID is used when the payload names no user.
func (s *Complaints) Create(ctx context.Context, in ComplaintInput, userID string) (Complaint, error) {
	trim(&in.Title, &in.Description, &in.Category, &in.RoomNumber, &in.Block, &in.Priority, &in.UserID)
	c := Complaint{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		RoomNumber:  in.RoomNumber,
		Block:       in.Block,
		Priority:    strings.ToLower(firstNonEmpty(in.Priority, "medium")),
		Status:      StatusPending,
		UserID:      firstNonEmpty(in.UserID, userID),
		SubmittedAt: s.now(),
	}
	return s.docs.create(ctx, &c)
}

// List returns complaints newest first.
func (s *Complaints) List(ctx context.Context, f ComplaintFilter, p ListParams) (Page[Complaint], error) {
	q := store.Query{OrderBy: "submittedAt", Descending: true}.
		Where("status", f.Status).
		Where("category", f.Category).
		Where("block", f.Block).
		Where("priority", f.Priority)
	return s.docs.list(ctx, p.apply(q))
}

func (s *Complaints) Get(ctx context.Context, id string) (Complaint, error) {
	return s.docs.get(ctx, id)
}

func (s *Complaints) Update(ctx context.Context, id string, patch map[string]any) (Complaint, error) {
	return s.docs.update(ctx, id, patch, complaintPatch, func(c *Complaint) error {
		trim(&c.Title, &c.Description)
		return nil
	})
}

// SetStatus moves a complaint to status.
func (s *Complaints) SetStatus(ctx context.Context, id, status string) (Complaint, error) {
	status = strings.TrimSpace(status)
	switch status {
	case StatusPending, StatusInProgress, StatusResolved:
	case "":
		return Complaint{}, invalid("status", "status is required")
	default:
		return Complaint{}, invalid("status", "status must be one of: pending, in-progress, resolved")
	}
	return s.docs.mutate(ctx, id, func(*Complaint) (store.Fields, error) {
		return store.Fields{"status": status}, nil
	})
}

func (s *Complaints) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
