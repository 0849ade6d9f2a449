package zerolog

import (
	"fmt"

	"coinwatch/core"

	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog logger through the core.Logger facade.
type Adapter struct {
	*zerolog.Logger
}

// NewAdapter wraps the given zerolog logger.
func NewAdapter(logger *zerolog.Logger) *Adapter {
	return &Adapter{logger}
}

// GetLevel implements core.Logger.
func (a *Adapter) GetLevel() core.Level {
	return toLevel(a.Logger.GetLevel())
}

// SetLevel implements core.Logger.
func (a *Adapter) SetLevel(level core.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

// Trace implements core.Logger.
func (a *Adapter) Trace(args ...any) {
	a.Logger.Trace().Msg(fmt.Sprint(args...))
}

// Debug implements core.Logger.
func (a *Adapter) Debug(args ...any) {
	a.Logger.Debug().Msg(fmt.Sprint(args...))
}

// Info implements core.Logger.
func (a *Adapter) Info(args ...any) {
	a.Logger.Info().Msg(fmt.Sprint(args...))
}

// Warn implements core.Logger.
func (a *Adapter) Warn(args ...any) {
	a.Logger.Warn().Msg(fmt.Sprint(args...))
}

// Error implements core.Logger.
func (a *Adapter) Error(args ...any) {
	a.Logger.Error().Msg(fmt.Sprint(args...))
}

// Fatal implements core.Logger.
func (a *Adapter) Fatal(args ...any) {
	a.Logger.Fatal().Msg(fmt.Sprint(args...))
}

// Tracef implements core.Logger.
func (a *Adapter) Tracef(format string, args ...any) {
	a.Logger.Trace().Msgf(format, args...)
}

// Debugf implements core.Logger.
func (a *Adapter) Debugf(format string, args ...any) {
	a.Logger.Debug().Msgf(format, args...)
}

// Infof implements core.Logger.
func (a *Adapter) Infof(format string, args ...any) {
	a.Logger.Info().Msgf(format, args...)
}

// Warnf implements core.Logger.
func (a *Adapter) Warnf(format string, args ...any) {
	a.Logger.Warn().Msgf(format, args...)
}

// Errorf implements core.Logger.
func (a *Adapter) Errorf(format string, args ...any) {
	a.Logger.Error().Msgf(format, args...)
}

// Fatalf implements core.Logger.
func (a *Adapter) Fatalf(format string, args ...any) {
	a.Logger.Fatal().Msgf(format, args...)
}

// WithError implements core.Logger.
func (a *Adapter) WithError(err error) core.Logger {
	logger := a.With().Err(err).Logger()
	return &Adapter{&logger}
}

// WithField implements core.Logger.
func (a *Adapter) WithField(key string, value any) core.Logger {
	logger := a.With().Interface(key, value).Logger()
	return &Adapter{&logger}
}

// WithFields implements core.Logger.
func (a *Adapter) WithFields(fields map[string]any) core.Logger {
	logger := a.With().Fields(fields).Logger()
	return &Adapter{&logger}
}

func toLevel(level zerolog.Level) core.Level {
	levelMap := map[zerolog.Level]core.Level{
		zerolog.Disabled:   core.Disabled,
		zerolog.NoLevel:    core.NoLevel,
		zerolog.TraceLevel: core.TraceLevel,
		zerolog.DebugLevel: core.DebugLevel,
		zerolog.InfoLevel:  core.InfoLevel,
		zerolog.WarnLevel:  core.WarnLevel,
		zerolog.ErrorLevel: core.ErrorLevel,
		zerolog.FatalLevel: core.FatalLevel,
	}
	if l, ok := levelMap[level]; ok {
		return l
	}
	return core.NoLevel
}

func toZerologLevel(level core.Level) zerolog.Level {
	levelMap := map[core.Level]zerolog.Level{
		core.Disabled:   zerolog.Disabled,
		core.NoLevel:    zerolog.NoLevel,
		core.TraceLevel: zerolog.TraceLevel,
		core.DebugLevel: zerolog.DebugLevel,
		core.InfoLevel:  zerolog.InfoLevel,
		core.WarnLevel:  zerolog.WarnLevel,
		core.ErrorLevel: zerolog.ErrorLevel,
		core.FatalLevel: zerolog.FatalLevel,
	}
	if l, ok := levelMap[level]; ok {
		return l
	}
	return zerolog.NoLevel
}
