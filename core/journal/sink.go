package journal

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
)

// RecordingSink journals every submission sent through the wrapped sink.
// Journal failures are logged; they never fail the submission.
type RecordingSink struct {
	sink   flow.Sink
	repo   Repository
	logger core.Logger
}

var _ flow.Sink = (*RecordingSink)(nil)

func NewRecordingSink(sink flow.Sink, repo Repository, logger core.Logger) *RecordingSink {
	return &RecordingSink{sink: sink, repo: repo, logger: logger}
}

func (s *RecordingSink) Send(ctx context.Context, sub flow.Submission) (flow.Receipt, error) {
	receipt, sendErr := s.sink.Send(ctx, sub)

	rec := Submission{
		FlowID:     sub.FlowID,
		Kind:       sub.Kind,
		ActorID:    sub.Actor.ID,
		ActorEmail: null.NewString(sub.Actor.Email, sub.Actor.Email != ""),
		Status:     StatusSucceeded,
		RemoteID:   null.NewString(receipt.ID, receipt.ID != ""),
	}
	if sendErr != nil {
		rec.Status = StatusFailed
		rec.Error = null.StringFrom(sendErr.Error())
	}

	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		s.logger.Error("recording submission", errors.Wrap(err, "encoding payload"), map[string]interface{}{"flow": sub.FlowID, "kind": sub.Kind})
		return receipt, sendErr
	}
	rec.Payload = payload

	// record even when the request was cancelled mid-way
	if _, err = s.repo.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error("recording submission", err, map[string]interface{}{"flow": sub.FlowID, "kind": sub.Kind}, sub.Actor)
	}
	return receipt, sendErr
}
