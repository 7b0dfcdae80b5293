package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
)

func (cli *commandLine) listSubmissions(args []string) error {
	cmd := newFlagSet("submissions", cli.out)
	kind := cmd.String("kind", "", "Only submissions of this kind of flow (session, user).")
	status := cmd.String("status", "", "Only succeeded or failed submissions.")
	actor := cmd.String("actor", "", "Only submissions by this actor id.")
	flowID := cmd.String("flow", "", "Only submissions of this flow id.")
	since := cmd.String("since", "", "Only submissions made on or after this date (YYYY-MM-DD).")
	limit := cmd.Int("limit", 50, "Maximum number of submissions listed; 0 lists them all.")
	ordering := cmd.String("ordering", "-created_at", "Comma separated fields to order by; a leading - orders descending.")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}

	filter := journal.Filter{Kind: *kind, Status: *status, ActorID: *actor, FlowID: *flowID, Limit: *limit}
	if *since != "" {
		from, err := time.Parse("2006-01-02", *since)
		if err != nil {
			return errors.Wrap(err, "parsing -since")
		}
		filter.CreatedFrom = from
	}
	filter.Clean()

	subs, err := cli.repo.Query(context.Background(), filter, parseOrdering(*ordering))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tKIND\tACTOR\tSTATUS\tREMOTE ID\tERROR")
	for _, sub := range subs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			sub.ID,
			sub.CreatedAt.Format("2006-01-02 15:04:05"),
			sub.Kind,
			sub.ActorID,
			sub.Status,
			sub.RemoteID.String,
			sub.Error.String,
		)
	}
	return w.Flush()
}

func parseOrdering(val string) []core.DBOrdering {
	var ords []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field != "" {
			ords = append(ords, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
	return ords
}

func (cli *commandLine) diff(id1, id2 string) error {
	ctx := context.Background()
	a, err := cli.repo.Get(ctx, id1)
	if err != nil {
		return errors.Wrapf(err, "getting submission %s", id1)
	}
	b, err := cli.repo.Get(ctx, id2)
	if err != nil {
		return errors.Wrapf(err, "getting submission %s", id2)
	}

	diff, err := journal.Diff(a, b)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(cli.out, "payloads are identical")
		return nil
	}
	fmt.Fprint(cli.out, diff)
	return nil
}
