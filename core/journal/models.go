// Package journal records every submission attempt along with its payload.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/observo/core"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var (
	ErrNotFound = errors.New("submission not found")

	// fields Query can order by
	OrderingFields = []string{"created_at", "kind", "status"}
)

type (
	Submission struct {
		ID         string          `json:"id"`
		FlowID     string          `json:"flow_id"`
		Kind       string          `json:"kind"`
		ActorID    string          `json:"actor_id"`
		ActorEmail null.String     `json:"actor_email"`
		Payload    json.RawMessage `json:"payload"`
		Status     string          `json:"status"`
		RemoteID   null.String     `json:"remote_id"`
		Error      null.String     `json:"error"`
		CreatedAt  time.Time       `json:"created_at"`
	}

	// Filter narrows Query results; zero fields match everything.
	Filter struct {
		Kind        string    `query:"kind"`
		Status      string    `query:"status"`
		ActorID     string    `query:"actor_id"`
		FlowID      string    `query:"flow_id"`
		CreatedFrom time.Time `query:"created_from"`
		CreatedTo   time.Time `query:"created_to"`
		Limit       int       `query:"limit"`
	}

	Repository interface {
		// Record stores `sub`, setting its ID and CreatedAt when they are empty.
		Record(ctx context.Context, sub Submission) (Submission, error)
		Get(ctx context.Context, id string) (Submission, error)
		// Query applies AND on the set Filter fields; results are ordered by `ordering` (newest first by default).
		Query(ctx context.Context, filter Filter, ordering []core.DBOrdering) ([]Submission, error)
	}
)

func (s Submission) Succeeded() bool { return s.Status == StatusSucceeded }

func (f *Filter) Clean() {
	f.Kind = core.CleanString(f.Kind, true /* lower */)
	f.Status = core.CleanString(f.Status, true /* lower */)
	f.ActorID = core.CleanString(f.ActorID)
	f.FlowID = core.CleanString(f.FlowID)
	if f.Limit < 0 {
		f.Limit = 0
	}
}

// Match reports whether `sub` satisfies the filter.
func (f Filter) Match(sub Submission) bool {
	switch {
	case f.Kind != "" && sub.Kind != f.Kind,
		f.Status != "" && sub.Status != f.Status,
		f.ActorID != "" && sub.ActorID != f.ActorID,
		f.FlowID != "" && sub.FlowID != f.FlowID,
		!f.CreatedFrom.IsZero() && sub.CreatedAt.Before(f.CreatedFrom),
		!f.CreatedTo.IsZero() && sub.CreatedAt.After(f.CreatedTo):
		return false
	}
	return true
}

// Orderings returns the allowed `ordering`, or newest first when none is.
func Orderings(ordering []core.DBOrdering) []core.DBOrdering {
	ordering = core.AllowedOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return ordering
}
