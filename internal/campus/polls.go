package campus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"campus/internal/store"
)

const (
	PollActive = "active"
	PollClosed = "closed"
)

// pollDoc is the stored poll. Vote counts live in a map keyed by option index so a
// single field path can be incremented atomically.
type pollDoc struct {
	ID        string           `json:"id"`
	Question  string           `json:"question" validate:"required"`
	Options   []string         `json:"options" validate:"min=2,dive,required"`
	Votes     map[string]int64 `json:"votes"`
	Type      string           `json:"type"`
	Status    string           `json:"status" validate:"oneof=active closed"`
	CreatedBy string           `json:"createdBy,omitempty"`
	CreatedAt string           `json:"createdAt"`
}

// Poll is a question with its options and running vote counts.
type Poll struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	Type      string       `json:"type,omitempty"`
	Status    string       `json:"status"`
	CreatedBy string       `json:"createdBy,omitempty"`
	CreatedAt string       `json:"createdAt"`
}

type PollOption struct {
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

func (d pollDoc) poll() Poll {
	p := Poll{
		ID:        d.ID,
		Question:  d.Question,
		Options:   make([]PollOption, len(d.Options)),
		Type:      d.Type,
		Status:    d.Status,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
	}
	for i, text := range d.Options {
		p.Options[i] = PollOption{Text: text, Votes: d.Votes[strconv.Itoa(i)]}
	}
	return p
}

// OptionText accepts an option either as a plain string or as {"text": "..."}.
type OptionText string

func (o *OptionText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = OptionText(s)
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return errors.New("poll option must be a string or an object with text")
	}
	*o = OptionText(obj.Text)
	return nil
}

type PollInput struct {
	Question string       `json:"question"`
	Options  []OptionText `json:"options"`
	Type     string       `json:"type"`
}

type VoteInput struct {
	PollID      string `json:"pollId" validate:"required"`
	OptionIndex *int   `json:"optionIndex" validate:"required"`
}

// PollResults is the tally of one poll.
type PollResults struct {
	PollID     string         `json:"pollId"`
	Question   string         `json:"question"`
	TotalVotes int64          `json:"totalVotes"`
	Results    []OptionResult `json:"results"`
}

type OptionResult struct {
	Option     string `json:"option"`
	Votes      int64  `json:"votes"`
	Percentage string `json:"percentage"`
}

type Polls struct {
	docs  collection[pollDoc]
	store store.Store
	dedup bool
	now   func() string
}

var pollPatch = []string{"question", "type", "status"}

// Create opens a poll. Blank options are dropped; at least two must remain.
func (s *Polls) Create(ctx context.Context, in PollInput, createdBy string) (Poll, error) {
	d := pollDoc{
		Question:  strings.TrimSpace(in.Question),
		Options:   []string{},
		Votes:     map[string]int64{},
		Type:      strings.TrimSpace(in.Type),
		Status:    PollActive,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	for _, o := range in.Options {
		if text := strings.TrimSpace(string(o)); text != "" {
			d.Votes[strconv.Itoa(len(d.Options))] = 0
			d.Options = append(d.Options, text)
		}
	}
	created, err := s.docs.create(ctx, &d)
	if err != nil {
		return Poll{}, err
	}
	return created.poll(), nil
}

// List returns polls newest first, optionally only those with status.
func (s *Polls) List(ctx context.Context, status string, p ListParams) (Page[Poll], error) {
	q := store.Query{OrderBy: "createdAt", Descending: true}.Where("status", status)
	docs, err := s.docs.list(ctx, p.apply(q))
	if err != nil {
		return Page[Poll]{}, err
	}
	page := Page[Poll]{Items: make([]Poll, 0, len(docs.Items)), NextCursor: docs.NextCursor}
	for _, d := range docs.Items {
		page.Items = append(page.Items, d.poll())
	}
	return page, nil
}

func (s *Polls) Get(ctx context.Context, id string) (Poll, error) {
	d, err := s.docs.get(ctx, id)
	if err != nil {
		return Poll{}, err
	}
	return d.poll(), nil
}

// Vote adds one vote to an option. voterID is empty for anonymous callers, whose
// votes are never deduplicated.
func (s *Polls) Vote(ctx context.Context, in VoteInput, voterID string) error {
	in.PollID = strings.TrimSpace(in.PollID)
	if err := check(&in); err != nil {
		return err
	}
	d, err := s.docs.get(ctx, in.PollID)
	if err != nil {
		return err
	}
	if d.Status == PollClosed {
		return invalid("pollId", "poll is closed")
	}
	idx := *in.OptionIndex
	if idx < 0 || idx >= len(d.Options) {
		return invalid("optionIndex", fmt.Sprintf("optionIndex must be between 0 and %d", len(d.Options)-1))
	}

	var ballot string
	if s.dedup && voterID != "" {
		ballot = in.PollID + ":" + voterID
		_, err := s.store.CreateWithID(ctx, CollPollVotes, ballot, store.Fields{
			"pollId":      in.PollID,
			"userId":      voterID,
			"optionIndex": idx,
			"createdAt":   s.now(),
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrAlreadyVoted
		}
		if err != nil {
			return fmt.Errorf("record ballot: %w", err)
		}
	}

	_, err = s.store.Increment(ctx, CollPolls, in.PollID, []string{"votes", strconv.Itoa(idx)}, 1)
	if err != nil {
		if ballot != "" {
			if derr := s.store.Delete(ctx, CollPollVotes, ballot); derr != nil {
				log.Printf("poll %s: release ballot %s: %v", in.PollID, ballot, derr)
			}
		}
		return s.docs.notFound(err)
	}
	return nil
}

// Results tallies a poll. Percentages carry two decimals.
func (s *Polls) Results(ctx context.Context, id string) (PollResults, error) {
	d, err := s.docs.get(ctx, id)
	if err != nil {
		return PollResults{}, err
	}
	p := d.poll()
	res := PollResults{PollID: p.ID, Question: p.Question, Results: make([]OptionResult, 0, len(p.Options))}
	for _, o := range p.Options {
		res.TotalVotes += o.Votes
	}
	for _, o := range p.Options {
		pct := 0.0
		if res.TotalVotes > 0 {
			pct = float64(o.Votes) / float64(res.TotalVotes) * 100
		}
		res.Results = append(res.Results, OptionResult{Option: o.Text, Votes: o.Votes, Percentage: fmt.Sprintf("%.2f%%", pct)})
	}
	return res, nil
}

// Update edits the question, type or status. Options are fixed once votes exist.
func (s *Polls) Update(ctx context.Context, id string, patch map[string]any) (Poll, error) {
	d, err := s.docs.update(ctx, id, patch, pollPatch, func(d *pollDoc) error {
		d.Question = strings.TrimSpace(d.Question)
		return nil
	})
	if err != nil {
		return Poll{}, err
	}
	return d.poll(), nil
}

// Delete removes the poll. Recorded ballots are left in place.
func (s *Polls) Delete(ctx context.Context, id string) error {
	return s.docs.delete(ctx, id)
}
