package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// levelFilter drops events below min.
type levelFilter struct {
	out io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.out.Write(p)
}

func (f levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.out.Write(p)
}

// newLogger logs to console and, when errLog is set, copies warnings and
// errors to the batch error log.
func newLogger(console, errLog io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: console, NoColor: true, TimeFormat: time.TimeOnly}
	if errLog != nil {
		out = zerolog.MultiLevelWriter(out, levelFilter{
			out: zerolog.ConsoleWriter{Out: errLog, NoColor: true, TimeFormat: time.DateTime},
			min: zerolog.WarnLevel,
		})
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
