package logsink

import "strings"

// Level orders records by verbosity. A record passes a threshold when its
// level is at most the threshold; LevelOff passes nothing.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = [...]string{"OFF", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l Level) String() string {
	if l < LevelOff || l > LevelTrace {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Letter returns the single letter used in compact level columns.
func (l Level) Letter() string {
	if l == LevelOff {
		return "-"
	}
	return l.String()[:1]
}

// Allows reports whether a record at level r passes threshold l.
func (l Level) Allows(r Level) bool {
	return r != LevelOff && r <= l
}

// Up returns the next more verbose level, stopping at LevelTrace.
func (l Level) Up() Level {
	if l >= LevelTrace {
		return LevelTrace
	}
	return l + 1
}

// Down returns the next less verbose level, stopping at LevelOff.
func (l Level) Down() Level {
	if l <= LevelOff {
		return LevelOff
	}
	return l - 1
}

// ParseLevel maps a level name, including the short pslog spellings, to a Level.
func ParseLevel(value string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "off", "none", "disabled":
		return LevelOff, true
	case "error", "err", "fatal", "ftl", "panic", "pnc":
		return LevelError, true
	case "warn", "warning", "wrn":
		return LevelWarn, true
	case "info", "inf":
		return LevelInfo, true
	case "debug", "dbg":
		return LevelDebug, true
	case "trace", "trc":
		return LevelTrace, true
	}
	return LevelInfo, false
}
