package logsvc

import (
	"io"
	"time"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/user"
)

// Logger writes structured logs with zerolog and reports warnings and errors to Rollbar.
type Logger struct {
	zl      zerolog.Logger
	rollbar bool
}

var _ core.Logger = (*Logger)(nil)

// New returns a Logger writing to w, tagged with component (eg. "API", "CLI", "DB").
// Rollbar reporting is enabled when a token is configured and the app is not in debug mode.
func New(w io.Writer, component string, conf *core.Config) *Logger {
	out := w
	level := zerolog.InfoLevel
	if conf.Debug {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	l := &Logger{
		zl: zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger(),
	}

	if conf.RollbarToken != "" {
		rollbar.SetToken(conf.RollbarToken)
		rollbar.SetEnvironment(conf.Env)
		rollbar.SetServerHost(conf.Server.Address)
		rollbar.SetCodeVersion(conf.Build)
		rollbar.SetStackTracer(errors.StackTracer)
		l.Enable(!conf.Debug)
	}
	return l
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Zerolog exposes the underlying logger, for middlewares.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Enable(enabled bool) {
	l.rollbar = enabled
	rollbar.SetEnabled(enabled)
}

// expected args: error, map[string]interface{}, user.User
func (l *Logger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID.String(), usr.Name, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l *Logger) write(evt *zerolog.Event, msg string, args []interface{}) {
	var errSet bool
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			if !errSet {
				evt = evt.Err(a)
				errSet = true
			} else {
				evt = evt.AnErr("cause", a)
			}
		case map[string]interface{}:
			evt = evt.Fields(a)
		case user.User:
			evt = evt.Str("user_id", a.ID.String()).Str("user_email", a.Email)
		case string:
			evt = evt.Str("detail", a)
		default:
			evt = evt.Interface("arg", a)
		}
	}
	evt.Msg(msg)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.write(l.zl.Debug(), msg, args)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.write(l.zl.Info(), msg, args)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Warning(l.prepare(msg, args)...)
	}
	l.write(l.zl.Warn(), msg, args)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Error(l.prepare(msg, args)...)
	}
	l.write(l.zl.Error(), msg, args)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Critical(l.prepare(msg, args)...)
		rollbar.Wait()
	}
	l.write(l.zl.Fatal(), msg, args)
}
