package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/observo/apps/api/echo"
	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/lookup"
)

// token issues an API token for an actor, signed with the prompted secret key (the configured one when empty).
func (cli *commandLine) token(args []string) error {
	cmd := newFlagSet("token", cli.out)
	id := cmd.String("id", "", "The actor id.")
	name := cmd.String("name", "", "The actor display name.")
	email := cmd.String("email", "", "The actor e-mail.")
	district := cmd.String("district", "", "The district the actor belongs to.")
	roles := cmd.String("roles", "", "Comma separated roles, eg. admin:district.")
	ttl := cmd.Duration("ttl", 24*time.Hour, "How long the token is valid.")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}
	if core.CleanString(*id) == "" {
		cmd.Usage()
		return errHelp
	}

	secret, err := cli.prompt("Enter secret key (empty for the configured one):")
	if err != nil {
		return err
	}
	if secret == "" {
		secret = cli.conf.SecretKey
	}

	actor := core.Actor{
		ID:       core.CleanString(*id),
		Name:     core.CleanString(*name),
		Email:    core.CleanString(*email, true /* lower */),
		District: core.CleanString(*district),
	}
	for _, role := range strings.Split(*roles, ",") {
		if role = core.CleanString(role, true /* lower */); role != "" {
			actor.Roles = append(actor.Roles, role)
		}
	}

	token, err := echoapi.GenerateToken(echoapi.NewClaims(actor, cli.conf.AppName, *ttl), secret)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

// options lists the lookup options of a kind, the way flows are served them.
func (cli *commandLine) options(args []string) error {
	cmd := newFlagSet("options", cli.out)
	kindName := cmd.String("kind", "", "schools | classrooms | users | networks | districts")
	parent := cmd.String("parent", "", "Id of the parent record, eg. the school of classrooms.")
	search := cmd.String("search", "", "Search term.")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}
	kind, err := lookup.ParseKind(*kindName)
	if err != nil {
		cmd.Usage()
		return errHelp
	}

	token, err := cli.prompt("Enter backend token:")
	if err != nil {
		return err
	}
	ctx := core.WithToken(context.Background(), token)

	provider := lookup.NewProvider(cli.source, cli.logger, cli.conf.Backend.PerPage)
	for _, opt := range provider.Options(ctx, kind, lookup.Query{Parent: *parent, Search: *search}) {
		fmt.Fprintf(cli.out, "%s\t%s\n", opt.Value, opt.Label)
	}
	return nil
}
