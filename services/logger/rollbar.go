package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/observo/core"
)

// RollbarLogger reports entries to Rollbar and echoes them on a standard logger, one line per entry.
//
// Entry arguments may be: an error, map[string]interface{} context (eg. the flow id and kind)
// and the acting core.Actor. Context maps are merged, later keys win.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

type entry struct {
	level   string
	msg     string
	err     error
	context map[string]interface{}
	actor   *core.Actor // first one given
	extra   []interface{}
}

func newEntry(level, msg string, args []interface{}) entry {
	e := entry{level: level, msg: msg}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case core.Actor:
			if e.actor == nil {
				actor := v
				e.actor = &actor
			}
		case error:
			if e.err == nil {
				e.err = v
			} else {
				e.extra = append(e.extra, v)
			}
		case map[string]interface{}:
			if e.context == nil {
				e.context = make(map[string]interface{}, len(v))
			}
			for k, val := range v {
				e.context[k] = val
			}
		default:
			e.extra = append(e.extra, v)
		}
	}
	return e
}

// rollbarArgs returns the arguments of rollbar.Log. An error item drops the message: it goes to the custom data.
func (e entry) rollbarArgs() []interface{} {
	custom := make(map[string]interface{}, len(e.context)+2)
	for k, v := range e.context {
		custom[k] = v
	}
	if len(e.extra) > 0 {
		custom["extra"] = e.extra
	}

	args := make([]interface{}, 0, 2)
	if e.err != nil {
		custom["message"] = e.msg
		args = append(args, e.err)
	} else {
		args = append(args, e.msg)
	}
	if len(custom) > 0 {
		args = append(args, custom)
	}
	return args
}

// String formats the entry as: LEVEL msg: err key=value... actor=id <email>
func (e entry) String() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(e.level))
	b.WriteByte(' ')
	b.WriteString(e.msg)
	if e.err != nil {
		fmt.Fprintf(&b, ": %v", e.err)
	}

	keys := make([]string, 0, len(e.context))
	for k := range e.context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%+v", k, e.context[k])
	}
	for _, v := range e.extra {
		fmt.Fprintf(&b, " %+v", v)
	}
	if e.actor != nil {
		fmt.Fprintf(&b, " actor=%s <%s>", e.actor.ID, e.actor.Email)
	}
	return b.String()
}

func report(e entry) {
	if e.actor != nil {
		rollbar.SetPerson(e.actor.ID, e.actor.Name, e.actor.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(e.level, e.rollbarArgs()...)
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	e := newEntry(level, msg, args)
	report(e)
	l.std.Println(e.String())
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(rollbar.DEBUG, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.INFO, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.WARN, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.ERR, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := newEntry(rollbar.CRIT, msg, args)
	report(e)
	rollbar.Wait()
	l.std.Fatal(e.String())
}
