package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/tests"
)

func newMockRepo(t *testing.T) (*submissionRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return NewSubmissionRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestSubmissionRepository_Record_postgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions (" + submissionColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)")).
		WithArgs(sqlmock.AnyArg(), "f1", "session", "a1", "ada@test.test", `{"school":"s1"}`, journal.StatusSucceeded, "sess-1", nil, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub, err := repo.Record(context.Background(), journal.Submission{
		FlowID:     "f1",
		Kind:       "session",
		ActorID:    "a1",
		ActorEmail: null.StringFrom("ada@test.test"),
		Payload:    []byte(`{"school":"s1"}`),
		Status:     journal.StatusSucceeded,
		RemoteID:   null.StringFrom("sess-1"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, now, sub.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_Get_postgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := "6f1b3a52-0d5e-4a8c-9a8e-2f4b7c0e1d23"
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	q := regexp.QuoteMeta("SELECT " + submissionColumns + " FROM submissions WHERE id = $1")

	mock.ExpectQuery(q).WithArgs(id).WillReturnRows(
		sqlmock.NewRows([]string{"id", "flow_id", "kind", "actor_id", "actor_email", "payload", "status", "remote_id", "error", "created_at"}).
			AddRow(id, "f1", "user", "a1", nil, []byte(`{"role":"teacher:"}`), journal.StatusFailed, nil, "backend responded 500", created))

	sub, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, journal.Submission{
		ID:        id,
		FlowID:    "f1",
		Kind:      "user",
		ActorID:   "a1",
		Payload:   []byte(`{"role":"teacher:"}`),
		Status:    journal.StatusFailed,
		Error:     null.StringFrom("backend responded 500"),
		CreatedAt: created,
	}, sub)

	mock.ExpectQuery(q).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.Get(context.Background(), id)
	assert.Equal(t, journal.ErrNotFound, err)

	// malformed ids never reach the database
	_, err = repo.Get(context.Background(), "lol")
	assert.Equal(t, journal.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_Query_postgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT " + submissionColumns + " FROM submissions WHERE kind = $1 AND status = $2 AND created_at >= $3 ORDER BY kind ASC, created_at DESC LIMIT $4")).
		WithArgs("session", journal.StatusFailed, from, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	subs, err := repo.Query(
		context.Background(),
		journal.Filter{Kind: "session", Status: journal.StatusFailed, CreatedFrom: from, Limit: 10},
		[]core.DBOrdering{{Field: "kind", Ascending: true}, {Field: "payload"}, {Field: "created_at"}},
	)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_sqlite(t *testing.T) {
	repo := NewSubmissionRepository(testutil.PrepareDB(t))
	ctx := context.Background()
	day := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	first := testutil.RecordSubmission(t, repo, "session", "a1", journal.StatusFailed, map[string]string{"school": "s1"}, day)
	second := testutil.RecordSubmission(t, repo, "session", "a1", journal.StatusSucceeded, map[string]string{"school": "s2"}, day.Add(time.Hour))
	third := testutil.RecordSubmission(t, repo, "user", "a2", journal.StatusSucceeded, map[string]string{"role": "teacher:"}, day.Add(2*time.Hour))

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.JSONEq(t, `{"school": "s1"}`, string(got.Payload))
	assert.Equal(t, null.StringFrom("backend responded 500"), got.Error)
	assert.True(t, day.Equal(got.CreatedAt))

	tests := []struct {
		name     string
		filter   journal.Filter
		ordering []core.DBOrdering
		wantIDs  []string
	}{
		{name: "all, newest first", wantIDs: []string{third.ID, second.ID, first.ID}},
		{name: "oldest first", ordering: []core.DBOrdering{{Field: "created_at", Ascending: true}}, wantIDs: []string{first.ID, second.ID, third.ID}},
		{name: "kind", filter: journal.Filter{Kind: "session"}, wantIDs: []string{second.ID, first.ID}},
		{name: "status", filter: journal.Filter{Status: journal.StatusSucceeded}, wantIDs: []string{third.ID, second.ID}},
		{name: "actor", filter: journal.Filter{ActorID: "a2"}, wantIDs: []string{third.ID}},
		{name: "created to", filter: journal.Filter{CreatedTo: day.Add(30 * time.Minute)}, wantIDs: []string{first.ID}},
		{name: "limit", filter: journal.Filter{Limit: 1}, wantIDs: []string{third.ID}},
		{name: "no match", filter: journal.Filter{Kind: "report"}, wantIDs: []string{}},
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
