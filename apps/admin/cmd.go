package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/core/lookup"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	repo   journal.Repository
	source lookup.Source
	conf   *core.Config
	logger core.Logger
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  submissions [-kind KIND] [-status STATUS] [-actor ID] [-flow ID] [-since DATE] [-limit N] [-ordering FIELDS] - list journaled submissions")
	fmt.Fprintln(cli.out, "  diff ID ID - compare the payloads of two submissions")
	fmt.Fprintln(cli.out, "  token -id ID [-name NAME] [-email EMAIL] [-district ID] [-roles ROLES] [-ttl DURATION] - issue an API token; the secret key is prompted next")
	fmt.Fprintln(cli.out, "  options -kind KIND [-parent ID] [-search TERM] - list lookup options; the backend token is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "submissions":
		return cli.listSubmissions(args[2:])
	case "diff":
		if len(args) != 4 {
			cli.printUsage()
			return errHelp
		}
		return cli.diff(args[2], args[3])
	case "token":
		return cli.token(args[2:])
	case "options":
		return cli.options(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

// prompt reads a secret from the terminal, without echoing it.
func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	secret, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return core.CleanString(string(secret)), nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}
