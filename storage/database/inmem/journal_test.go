package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/tests"
)

func TestSubmissionRepository(t *testing.T) {
	repo := NewSubmissionRepository()
	ctx := context.Background()
	day := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	first := testutil.RecordSubmission(t, repo, "session", "a1", journal.StatusFailed, map[string]string{"school": "s1"}, day)
	second := testutil.RecordSubmission(t, repo, "user", "a1", journal.StatusSucceeded, map[string]string{"role": "observer:"}, day.Add(time.Hour))
	third := testutil.RecordSubmission(t, repo, "session", "a2", journal.StatusSucceeded, map[string]string{"school": "s2"}, day.Add(2*time.Hour))

	got, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = repo.Get(ctx, "missing")
	assert.Equal(t, journal.ErrNotFound, err)

	tests := []struct {
		name     string
		filter   journal.Filter
		ordering []core.DBOrdering
		wantIDs  []string
	}{
		{name: "newest first", wantIDs: []string{third.ID, second.ID, first.ID}},
		{
			name:     "by kind then oldest",
			ordering: []core.DBOrdering{{Field: "kind", Ascending: true}, {Field: "created_at", Ascending: true}},
			wantIDs:  []string{first.ID, third.ID, second.ID},
		},
		{name: "status", filter: journal.Filter{Status: journal.StatusFailed}, wantIDs: []string{first.ID}},
		{name: "from", filter: journal.Filter{CreatedFrom: day.Add(time.Hour)}, wantIDs: []string{third.ID, second.ID}},
		{name: "limit", filter: journal.Filter{Kind: "session", Limit: 1}, wantIDs: []string{third.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := repo.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			ids := make([]string, 0, len(subs))
			for _, s := range subs {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
