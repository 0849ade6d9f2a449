// Package zerolog adapts rs/zerolog to the core.Logger facade.
package zerolog

import (
	"os"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
)

// Logger wraps a configured zerolog.Logger.
type Logger struct {
	*zerolog.Logger
}

// New builds a logger writing to stdout. level is a zerolog level name
// ("debug", "info", ...); with jsonFormat the raw JSON stream is emitted,
// otherwise a console writer with the given time layout is used.
func New(level, timeLayout string, colored, jsonFormat bool) (*Logger, error) {
	mode, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(mode)

	if jsonFormat {
		logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		return &Logger{&logger}, nil
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    !colored,
		TimeFormat: timeLayout,
	}
	if colored {
		output.FormatLevel = formatLevel
		output.FormatTimestamp = func(i interface{}) string {
			return formatTimestamp(i, timeLayout)
		}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	return &Logger{&logger}, nil
}

func formatLevel(i interface{}) string {
	level, ok := i.(string)
	if !ok {
		return term.Whitef("[UNK]")
	}
	switch level {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	default:
		return term.Whitef("[UNK]")
	}
}

func formatTimestamp(i interface{}, timeLayout string) string {
	strTime, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}
	ts, err := time.ParseInLocation(time.RFC3339, strTime, time.Local)
	if err == nil {
		strTime = ts.In(time.Local).Format(timeLayout)
	}
	return term.Cyanf("[%s]", strTime)
}
