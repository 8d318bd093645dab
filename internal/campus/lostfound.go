package campus

import (
	"context"
	"log"
	"slices"
	"strings"
	"time"

	"campus/internal/queue"
	"campus/internal/store"
)

// ImageJobType is the queue message type of a pending lost-and-found photo upload.
const ImageJobType = "lostfound.image"

// ImageJob asks the worker to upload Image and attach its URL to the item.
type ImageJob struct {
	ItemID string `json:"itemId"`
	Image  string `json:"image"`
}

// LostFoundItem is a lost or found object report.
type LostFoundItem struct {
	ID           string   `json:"id"`
	ItemName     string   `json:"itemName" validate:"required"`
	Category     string   `json:"category"`
	Status       string   `json:"status" validate:"required,oneof=lost found resolved"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	Date         string   `json:"date"`
	ContactName  string   `json:"contactName"`
	ContactEmail string   `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string   `json:"contactPhone"`
	RoomNumber   string   `json:"roomNumber"`
	ImageURL     string   `json:"imageUrl"`
	Keywords     []string `json:"keywords"`
	CreatedAt    string   `json:"createdAt"`
}

// LostFoundInput is the report payload. Image is an optional base64 photo.
type LostFoundInput struct {
	ItemName     string `json:"itemName"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	Date         string `json:"date"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
	RoomNumber   string `json:"roomNumber"`
	ImageURL     string `json:"imageUrl"`
	Image        string `json:"image"`
}

// LostFoundFilter narrows a listing. FromDate and ToDate bound the item date inclusively;
// Keyword matches whole words of the name or description.
type LostFoundFilter struct {
	Category string
	Status   string
	FromDate string
	ToDate   string
	Keyword  string
}

type LostFound struct {
	docs  collection[LostFoundItem]
	queue queue.Queue
	now   func() string
}

var lostFoundPatch = []string{
	"itemName", "category", "status", "description", "location", "date",
	"contactName", "contactEmail", "contactPhone", "roomNumber", "imageUrl",
}

// Report stores an item and queues its photo for upload.
func (s *LostFound) Report(ctx context.Context, in LostFoundInput) (LostFoundItem, error) {
	trim(&in.ItemName, &in.Category, &in.Status, &in.Description, &in.Location,
		&in.ContactName, &in.ContactEmail, &in.ContactPhone, &in.RoomNumber, &in.ImageURL)
	in.Status = strings.ToLower(in.Status)
	if in.Status != "" && in.Status != "lost" && in.Status != "found" {
		return LostFoundItem{}, invalid("status", "status must be one of: lost, found")
	}
	now := s.now()
	date, err := normalizeDate("date", in.Date, now)
	if err != nil {
		return LostFoundItem{}, err
	}
	item := LostFoundItem{
		ItemName:     in.ItemName,
		Category:     in.Category,
		Status:       in.Status,
		Description:  in.Description,
		Location:     in.Location,
		Date:         date,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		RoomNumber:   in.RoomNumber,
		ImageURL:     in.ImageURL,
		Keywords:     keywords(in.ItemName, in.Description),
		CreatedAt:    now,
	}
	created, err := s.docs.create(ctx, &item)
	if err != nil {
		return LostFoundItem{}, err
	}
	if in.Image != "" {
		s.queueImage(ctx, created.ID, in.Image)
	}
	return created, nil
}

func (s *LostFound) queueImage(ctx context.Context, id, image string) {
	if s.queue == nil {
		log.Printf("lostfound %s: image dropped, no upload queue configured", id)
		return
	}
	msg, err := queue.NewMessage(ImageJobType, ImageJob{ItemID: id, Image: image})
	if err == nil {
		err = s.queue.Publish(ctx, msg)
	}
	if err != nil {
		log.Printf("lostfound %s: queue image upload failed: %v", id, err)
	}
}

// List returns items by date, newest first.
func (s *LostFound) List(ctx context.Context, f LostFoundFilter, p ListParams) (Page[LostFoundItem], error) {
	q := store.Query{OrderBy: "date", Descending: true}.
		Where("category", strings.TrimSpace(f.Category)).
		Where("status", strings.ToLower(strings.TrimSpace(f.Status)))
	if f.FromDate != "" {
		from, ok := parseDate(f.FromDate)
		if !ok {
			return Page[LostFoundItem]{}, invalid("fromDate", "fromDate must be a date (YYYY-MM-DD or RFC 3339)")
		}
		q.Filters = append(q.Filters, store.Filter{Field: "date", Op: store.OpGreaterEqual, Value: from.Format(TimeLayout)})
	}
	if f.ToDate != "" {
		to, ok := parseDate(f.ToDate)
		if !ok {
			return Page[LostFoundItem]{}, invalid("toDate", "toDate must be a date (YYYY-MM-DD or RFC 3339)")
		}
		if len(strings.TrimSpace(f.ToDate)) == len("2006-01-02") {
			to = to.Add(24*time.Hour - time.Millisecond)
		}
		q.Filters = append(q.Filters, store.Filter{Field: "date", Op: store.OpLessEqual, Value: to.Format(TimeLayout)})
	}
	words := keywords(f.Keyword)
	if len(words) == 0 {
		return s.docs.list(ctx, p.apply(q))
	}
	q.Filters = append(q.Filters, store.Filter{Field: "keywords", Op: store.OpArrayContains, Value: words[0]})
	if len(words) == 1 {
		return s.docs.list(ctx, p.apply(q))
	}
	return s.listAllWords(ctx, p.apply(q), words[1:])
}

// listAllWords pages through q keeping only items that carry every one of rest, until a full page
// is collected. The store can filter on a single array-contains term only.
func (s *LostFound) listAllWords(ctx context.Context, q store.Query, rest []string) (Page[LostFoundItem], error) {
	want := q.Limit
	switch {
	case want <= 0:
		want = store.DefaultLimit
	case want > store.MaxLimit:
		want = store.MaxLimit
	}
	out := Page[LostFoundItem]{Items: []LostFoundItem{}}
	for {
		page, err := s.docs.list(ctx, q)
		if err != nil {
			return Page[LostFoundItem]{}, err
		}
		for i, item := range page.Items {
			if !hasAll(item.Keywords, rest) {
				continue
			}
			out.Items = append(out.Items, item)
			if len(out.Items) == want {
				if i < len(page.Items)-1 || page.NextCursor != "" {
					out.NextCursor = item.ID
				}
				return out, nil
			}
		}
		if page.NextCursor == "" {
			return out, nil
		}
		q.Cursor = page.NextCursor
	}
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func (s *LostFound) Get(ctx context.Context, id string) (LostFoundItem, error) {
	return s.docs.get(ctx, id)
}

func (s *LostFound) Update(ctx context.Context, id string, patch map[string]any) (LostFoundItem, error) {
	return s.docs.update(ctx, id, patch, lostFoundPatch, func(item *LostFoundItem) error {
		trim(&item.ItemName, &item.Description, &item.ContactEmail)
		item.Status = strings.ToLower(strings.TrimSpace(item.Status))
		date, err := normalizeDate("date", item.Date, item.CreatedAt)
		if err != nil {
			return err
		}
		item.Date = date
		item.Keywords = keywords(item.ItemName, item.Description)
		return nil
	})
}

// Resolve marks an item as returned to its owner.
func (s *LostFound) Resolve(ctx context.Context, id string) (LostFoundItem, error) {
	return s.docs.mutate(ctx, id, func(*LostFoundItem) (store.Fields, error) {
		return store.Fields{"status": StatusResolved}, nil
	})
}

// SetImage records the uploaded photo URL of an item.
func (s *LostFound) SetImage(ctx context.Context, id, url string) (LostFoundItem, error) {
	return s.docs.mutate(ctx, id, func(*LostFoundItem) (store.Fields, error) {
		return store.Fields{"imageUrl": url}, nil
	})
}

func (s *LostFound) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
