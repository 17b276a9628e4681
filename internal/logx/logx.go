package logx

import (
	"context"

	"github.com/wascc/wcc/schema"
	"pkt.systems/pslog"
)

// Log targets. The console routes records by target: OutputTarget lines feed the
// Output panel of the owning session, everything else feeds the log selector.
const (
	LogTarget     = "WASH_LOG"
	CommandTarget = "WASH_CMD"
	OutputTarget  = "WASH_OUT"

	// TargetKey is the record field that carries the target.
	TargetKey = "target"
	// SessionKey is the record field that carries the console session id.
	SessionKey = "session"
)

type contextKey int

const sessionKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// Target annotates the logger with a log target.
func Target(log pslog.Logger, target string) pslog.Logger {
	if target == "" {
		return log
	}
	return log.With(TargetKey, target)
}

// WithSession annotates the context logger with the session id carried by ctx.
func WithSession(ctx context.Context) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id, ok := ctx.Value(sessionKey).(schema.SessionID); ok && id != "" {
		log = log.With(SessionKey, string(id))
	}
	return log
}

// ContextWithSession stores the console session id on the context.
func ContextWithSession(ctx context.Context, id schema.SessionID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, id)
}

// SessionFrom returns the session id stored on ctx, if any.
func SessionFrom(ctx context.Context) schema.SessionID {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionKey).(schema.SessionID)
	return id
}

// Output returns the logger whose records become Output panel lines of the session in ctx.
func Output(ctx context.Context) pslog.Logger {
	return Target(WithSession(ctx), OutputTarget)
}

// Command returns the logger for command dispatch records of the session in ctx.
func Command(ctx context.Context) pslog.Logger {
	return Target(WithSession(ctx), CommandTarget)
}
