package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/observo/apps/api/echo"
	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/core/lookup"
	"github.com/trezcool/observo/core/user"
	sqlxrepos "github.com/trezcool/observo/storage/database/sqlx"
	"github.com/trezcool/observo/tests"
)

type stubSource struct {
	gotCtx  context.Context
	gotKind lookup.Kind
	gotQ    lookup.Query
}

func (s *stubSource) Fetch(ctx context.Context, kind lookup.Kind, q lookup.Query) (lookup.Page, error) {
	s.gotCtx, s.gotKind, s.gotQ = ctx, kind, q
	return lookup.Page{Records: []lookup.Record{
		{"_id": "s2", "name": "Roosevelt"},
		{"_id": "s1", "name": "Lincoln High"},
	}}, nil
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)

	out := &bytes.Buffer{}
	conf := &core.Config{AppName: "Observo", SecretKey: "conf-secret", Backend: core.BackendConfig{PerPage: 20}}

	// start CLI
	return &commandLine{
		db:     db,
		repo:   sqlxrepos.NewSubmissionRepository(db),
		source: &stubSource{},
		conf:   conf,
		logger: core.NopLogger{},
		out:    out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkRunErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if !strings.Contains(err.Error(), tt.wantErrStr) {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, out := setup(t)
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "diff: one id", args: []string{"diff", "a"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkRunErr(t, tt, cli.run(args))
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	origMigrate := migrateFunc
	t.Cleanup(func() { migrateFunc = origMigrate })
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "submission_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_submissions(t *testing.T) {
	cli, out := setup(t)

	day := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	s1 := testutil.RecordSubmission(t, cli.repo, "session", "a1", journal.StatusFailed, map[string]string{"school": "s1"}, day)
	s2 := testutil.RecordSubmission(t, cli.repo, "session", "a1", journal.StatusSucceeded, map[string]string{"school": "s2"}, day.Add(time.Hour))
	s3 := testutil.RecordSubmission(t, cli.repo, "user", "a2", journal.StatusSucceeded, map[string]string{"email": "g@test.test"}, day.AddDate(0, 0, 2))

	tests := []struct {
		cliTest
		wantIDs   []string
		unwantIDs []string
	}{
		{cliTest: cliTest{name: "all"}, wantIDs: []string{s3.ID, s2.ID, s1.ID}},
		{cliTest: cliTest{name: "by kind", args: []string{"-kind", "Session"}}, wantIDs: []string{s2.ID, s1.ID}, unwantIDs: []string{s3.ID}},
		{cliTest: cliTest{name: "failed", args: []string{"-status", "failed"}}, wantIDs: []string{s1.ID}, unwantIDs: []string{s2.ID, s3.ID}},
		{cliTest: cliTest{name: "since", args: []string{"-since", "2025-06-11"}}, wantIDs: []string{s3.ID}, unwantIDs: []string{s1.ID, s2.ID}},
		{cliTest: cliTest{name: "oldest first", args: []string{"-ordering", "created_at", "-limit", "2"}}, wantIDs: []string{s1.ID, s2.ID}, unwantIDs: []string{s3.ID}},
		{cliTest: cliTest{name: "bad date", args: []string{"-since", "June"}, wantErrStr: "parsing -since"}},
		{cliTest: cliTest{name: "unknown flag", args: []string{"-lol"}, wantErr: errHelp}},
	}
	for _, tt := range tests {
		args := append([]string{"admin", "submissions"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkRunErr(t, tt.cliTest, cli.run(args))
			if len(tt.wantIDs) == 0 {
				return
			}

			listed := out.String()
			assert.True(t, strings.HasPrefix(listed, "ID"))
			last := -1
			for _, id := range tt.wantIDs {
				idx := strings.Index(listed, id)
				require.True(t, idx > last, "%s not listed in order:\n%s", id, listed)
				last = idx
			}
			for _, id := range tt.unwantIDs {
				assert.NotContains(t, listed, id)
			}
		})
	}
}

func Test_commandLine_diff(t *testing.T) {
	cli, out := setup(t)

	s1 := testutil.RecordSubmission(t, cli.repo, "session", "a1", journal.StatusFailed, map[string]string{"school": "s1", "date": "2025-06-10"})
	s2 := testutil.RecordSubmission(t, cli.repo, "session", "a1", journal.StatusSucceeded, map[string]string{"school": "s2", "date": "2025-06-10"})

	require.NoError(t, cli.run([]string{"admin", "diff", s1.ID, s2.ID}))
	assert.Contains(t, out.String(), `-  "school": "s1"`)
	assert.Contains(t, out.String(), `+  "school": "s2"`)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "diff", s1.ID, s1.ID}))
	assert.Equal(t, "payloads are identical\n", out.String())

	err := cli.run([]string{"admin", "diff", s1.ID, "8d3c0a4e-3a57-4c4e-a0e5-6d2f1f6b9c99"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), journal.ErrNotFound.Error())
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	type extra struct {
		secret string
	}
	tests := []struct {
		cliTest
		wantSecret string
	}{
		{cliTest: cliTest{name: "no id", args: []string{"-name", "Ada"}, wantErr: errHelp}},
		{
			cliTest:    cliTest{name: "configured secret", args: []string{"-id", "a1", "-name", "Ada", "-district", "d1", "-roles", "admin:district, teacher:"}},
			wantSecret: "conf-secret",
		},
		{
			cliTest:    cliTest{name: "prompted secret", args: []string{"-id", "a1", "-email", "Ada@Test.test"}, extra: extra{secret: "other-secret"}},
			wantSecret: "other-secret",
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin", "token"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.secret), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			checkRunErr(t, tt.cliTest, err)
			if err != nil {
				return
			}

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			tokenStr := lines[len(lines)-1]
			claims := &echoapi.Claims{}
			_, err = jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(tt.wantSecret), nil
			})
			require.NoError(t, err)
			assert.Equal(t, "a1", claims.Subject)
			assert.Equal(t, "Observo", claims.Issuer)
		})
	}

	// roles and district make it into the claims
	readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }
	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "-id", "a1", "-district", "d1", "-roles", "admin:district"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	claims := &echoapi.Claims{}
	_, err := jwt.ParseWithClaims(lines[len(lines)-1], claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("conf-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "d1", claims.District)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, []string{user.RoleDistrictAdmin}, claims.Roles)
}

func Test_commandLine_options(t *testing.T) {
	cli, out := setup(t)
	src := cli.source.(*stubSource)
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("backend-token\n"), nil }

	checkRunErr(t, cliTest{wantErr: errHelp}, cli.run([]string{"admin", "options", "-kind", "planets"}))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "options", "-kind", "Schools", "-parent", "n1", "-search", "lin"}))
	assert.Equal(t, lookup.KindSchools, src.gotKind)
	assert.Equal(t, "n1", src.gotQ.Parent)
	assert.Equal(t, "lin", src.gotQ.Search)
	assert.Equal(t, 20, src.gotQ.PerPage)
	assert.Equal(t, "backend-token", core.TokenFrom(src.gotCtx))
	assert.True(t, strings.HasSuffix(out.String(), "s1\tLincoln High\ns2\tRoosevelt\n"), out.String())
}
