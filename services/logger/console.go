package logsvc

import (
	"log"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/session"
)

// ConsoleLogger writes to a std logger. Debug lines are dropped unless debug is on.
type ConsoleLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger, debug bool) *ConsoleLogger {
	return &ConsoleLogger{std: std, debug: debug}
}

func (l *ConsoleLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + " " + msg)
	for _, arg := range args {
		// never print tokens
		if sess, ok := arg.(session.Session); ok {
			l.std.Printf("session: user=%s school=%s\n", sess.UserID, sess.SchoolID)
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("DEBUG", msg, args)
	}
}

func (l *ConsoleLogger) Info(msg string, args ...interface{}) { l.print("INFO", msg, args) }

func (l *ConsoleLogger) Warn(msg string, args ...interface{}) { l.print("WARN", msg, args) }

func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}

// New picks Rollbar when a token is configured, the console otherwise.
func New(std *log.Logger, conf *core.Config) core.Logger {
	if conf.RollbarToken != "" && !conf.TestMode {
		return NewRollbarLogger(std, conf)
	}
	return NewConsoleLogger(std, conf.Debug)
}
