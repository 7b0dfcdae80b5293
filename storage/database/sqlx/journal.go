package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
)

const submissionColumns = "id, flow_id, kind, actor_id, actor_email, payload, status, remote_id, error, created_at"

type submissionRow struct {
	ID         string      `db:"id"`
	FlowID     string      `db:"flow_id"`
	Kind       string      `db:"kind"`
	ActorID    string      `db:"actor_id"`
	ActorEmail null.String `db:"actor_email"`
	Payload    string      `db:"payload"`
	Status     string      `db:"status"`
	RemoteID   null.String `db:"remote_id"`
	Error      null.String `db:"error"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (r submissionRow) unrow() journal.Submission {
	return journal.Submission{
		ID:         r.ID,
		FlowID:     r.FlowID,
		Kind:       r.Kind,
		ActorID:    r.ActorID,
		ActorEmail: r.ActorEmail,
		Payload:    []byte(r.Payload),
		Status:     r.Status,
		RemoteID:   r.RemoteID,
		Error:      r.Error,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type submissionRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ journal.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db, now: time.Now}
}

// trapNoRowsErr maps "no rows" err to journal.ErrNotFound
func (repo submissionRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return journal.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo submissionRepository) Record(ctx context.Context, sub journal.Submission) (journal.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = repo.now()
	}
	sub.CreatedAt = sub.CreatedAt.UTC()

	q := repo.db.Rebind("INSERT INTO submissions (" + submissionColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := repo.db.ExecContext(ctx, q,
		sub.ID, sub.FlowID, sub.Kind, sub.ActorID, sub.ActorEmail, string(sub.Payload),
		sub.Status, sub.RemoteID, sub.Error, sub.CreatedAt)
	if err != nil {
		return journal.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo submissionRepository) Get(ctx context.Context, id string) (journal.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.Submission{}, journal.ErrNotFound
	}

	var row submissionRow
	q := repo.db.Rebind("SELECT " + submissionColumns + " FROM submissions WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return journal.Submission{}, repo.trapNoRowsErr(err, "finding submission by ID")
	}
	return row.unrow(), nil
}

func (repo submissionRepository) Query(ctx context.Context, filter journal.Filter, ordering []core.DBOrdering) ([]journal.Submission, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.FlowID != "" {
		where = append(where, "flow_id = ?")
		args = append(args, filter.FlowID)
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	q := new(strings.Builder)
	q.WriteString("SELECT " + submissionColumns + " FROM submissions")
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	ords := journal.Orderings(ordering)
	orderList := make([]string, 0, len(ords))
	for _, ord := range ords {
		orderList = append(orderList, ord.String())
	}
	q.WriteString(" ORDER BY " + strings.Join(orderList, ", "))

	if filter.Limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q.String()), args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]journal.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.unrow())
	}
	return subs, nil
}
