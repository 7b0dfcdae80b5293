package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/storage/database"
)

// PrepareDB opens a migrated in-memory SQLite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := &core.Config{Database: core.DatabaseConfig{Engine: database.EngineSQLite, DSN: ":memory:"}}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func RecordSubmission(
	t *testing.T,
	repo journal.Repository,
	kind, actorID, status string,
	payload interface{},
	createdAt ...time.Time,
) journal.Submission {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Second)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("RecordSubmission() failed: %v", err)
	}
	sub := journal.Submission{
		FlowID:    "8d3c0a4e-3a57-4c4e-a0e5-6d2f1f6b9c11",
		Kind:      kind,
		ActorID:   actorID,
		Payload:   raw,
		Status:    status,
		CreatedAt: tstamp,
	}
	if status == journal.StatusFailed {
		sub.Error = null.StringFrom("backend responded 500")
	}
	sub, err = repo.Record(context.Background(), sub)
	if err != nil {
		t.Fatalf("RecordSubmission() failed: %v", err)
	}
	return sub
}
