package logger_test

import (
	"github.com/blindftp/blindftp/logger"
)

// Each context is specified a session.
type staticContext int

func (v staticContext) Cid() int {
	return int(v)
}

func ExampleLogger() {
	logger.Info.Println(nil, "The log text.")
	logger.Trace.Println(nil, "The log text.")
	logger.Warn.Println(nil, "The log text.")
	logger.Error.Println(nil, "The log text.")
}

func ExampleLogger_sessionBased() {
	ctx := staticContext(100)
	logger.Info.Println(ctx, "The log text")
	logger.Trace.Println(ctx, "The log text.")
	logger.Warn.Println(ctx, "The log text.")
	logger.Error.Println(ctx, "The log text.")
}

func ExampleLogger_xidSession() {
	ctx := logger.NewSessionContext()
	logger.Trace.Println(ctx, "session", ctx.String(), "started")
}
