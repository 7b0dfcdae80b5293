package inmemdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
)

type submissionRepository struct {
	mu    sync.RWMutex
	table map[string]journal.Submission
	now   func() time.Time
}

var _ journal.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository() *submissionRepository {
	return &submissionRepository{table: make(map[string]journal.Submission), now: time.Now}
}

func (repo *submissionRepository) Record(_ context.Context, sub journal.Submission) (journal.Submission, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = repo.now()
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.Payload = append([]byte(nil), sub.Payload...)
	repo.table[sub.ID] = sub
	return sub, nil
}

func (repo *submissionRepository) Get(_ context.Context, id string) (journal.Submission, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if sub, ok := repo.table[id]; ok {
		return sub, nil
	}
	return journal.Submission{}, journal.ErrNotFound
}

func (repo *submissionRepository) Query(_ context.Context, filter journal.Filter, ordering []core.DBOrdering) ([]journal.Submission, error) {
	repo.mu.RLock()
	subs := make([]journal.Submission, 0, len(repo.table))
	for _, sub := range repo.table {
		if filter.Match(sub) {
			subs = append(subs, sub)
		}
	}
	repo.mu.RUnlock()

	ords := journal.Orderings(ordering)
	sort.SliceStable(subs, func(i, j int) bool {
		for _, ord := range ords {
			c := compare(subs[i], subs[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return subs[i].ID < subs[j].ID
	})

	if filter.Limit > 0 && len(subs) > filter.Limit {
		subs = subs[:filter.Limit]
	}
	return subs, nil
}

func compare(a, b journal.Submission, field string) int {
	switch field {
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	case "kind":
		return compareStrings(a.Kind, b.Kind)
	case "status":
		return compareStrings(a.Status, b.Status)
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
