package zaplog

import (
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

// Core is a zapcore.Core that records every enabled entry into a hub.
// Entries are rendered once, as "message<TAB>{fields}", and that single
// rendering is what the hub stores and broadcasts.
type Core struct {
	zapcore.LevelEnabler
	recorder loghub.Recorder
	enc      zapcore.Encoder
}

// NewCore creates a core feeding recorder with entries enabled by enabler.
// A nil enabler forwards every level.
func NewCore(recorder loghub.Recorder, enabler zapcore.LevelEnabler) *Core {
	if enabler == nil {
		enabler = zapcore.DebugLevel - 1
	}
	return &Core{
		LevelEnabler: enabler,
		recorder:     recorder,
		enc:          zapcore.NewConsoleEncoder(lineEncoderConfig()),
	}
}

// lineEncoderConfig keeps only the logger name, the message and the fields.
// Time and level are dropped: the level travels with the event and the
// history keeps insertion order.
func lineEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
}

// With returns a core with fields added to every entry it records.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := &Core{
		LevelEnabler: c.LevelEnabler,
		recorder:     c.recorder,
		enc:          c.enc.Clone(),
	}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

// Check adds this core to the checked entry when the level is enabled.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write renders the entry and records it. It always returns nil: an entry that
// cannot be encoded is dropped rather than failing the log call.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return nil
	}
	message := strings.TrimSuffix(buf.String(), zapcore.DefaultLineEnding)
	buf.Free()

	c.recorder.Record(LevelOf(ent.Level), message)
	return nil
}

// Sync is a no-op; the hub is in memory.
func (c *Core) Sync() error {
	return nil
}

// LevelOf maps a zap level to a history level.
// DPanic, Panic and Fatal collapse into Error; anything below Debug is Trace.
func LevelOf(level zapcore.Level) history.Level {
	switch {
	case level >= zapcore.ErrorLevel:
		return history.Error
	case level == zapcore.WarnLevel:
		return history.Warn
	case level == zapcore.InfoLevel:
		return history.Info
	case level == zapcore.DebugLevel:
		return history.Debug
	default:
		return history.Trace
	}
}

// ZapLevel maps a history level to the zap level it is logged at.
func ZapLevel(level history.Level) zapcore.Level {
	switch level {
	case history.Error:
		return zapcore.ErrorLevel
	case history.Warn:
		return zapcore.WarnLevel
	case history.Info:
		return zapcore.InfoLevel
	case history.Debug:
		return zapcore.DebugLevel
	default:
		return zapcore.DebugLevel - 1
	}
}

var _ zapcore.Core = (*Core)(nil)
