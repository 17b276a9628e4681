package logsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/schema"
)

// Field is one extra key/value of a record.
type Field struct {
	Key   string
	Value string
}

// Record is one captured log entry.
type Record struct {
	Seq     uint64
	Time    time.Time
	Level   Level
	Target  string
	Session schema.SessionID
	Message string
	Fields  []Field
}

// Text renders the message followed by its fields as key=value pairs.
func (r Record) Text() string {
	if len(r.Fields) == 0 {
		return r.Message
	}
	var b strings.Builder
	b.WriteString(r.Message)
	for _, f := range r.Fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

// DefaultTarget is the target of records that do not carry one.
const DefaultTarget = "wash"

var (
	levelKeys   = []string{"level", "lvl"}
	messageKeys = []string{"message", "msg"}
	timeKeys    = []string{"time", "ts"}
)

// parseLine turns one structured log line into a Record. Lines that are not
// JSON objects become info records carrying the raw text.
func parseLine(line []byte) Record {
	line = bytes.TrimSpace(line)
	entry := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if len(line) == 0 || line[0] != '{' || dec.Decode(&entry) != nil {
		return Record{Level: LevelInfo, Target: DefaultTarget, Message: string(line)}
	}
	rec := Record{Level: LevelInfo, Target: DefaultTarget}
	if raw, ok := take(entry, levelKeys); ok {
		if lvl, ok := ParseLevel(fmt.Sprint(raw)); ok {
			rec.Level = lvl
		}
	}
	if raw, ok := take(entry, messageKeys); ok {
		rec.Message = fmt.Sprint(raw)
	}
	if raw, ok := take(entry, timeKeys); ok {
		if s, ok := raw.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				rec.Time = ts
			}
		}
	}
	if raw, ok := take(entry, []string{logx.TargetKey}); ok {
		rec.Target = fmt.Sprint(raw)
	}
	if raw, ok := take(entry, []string{logx.SessionKey}); ok {
		rec.Session = schema.SessionID(fmt.Sprint(raw))
	}
	if len(entry) > 0 {
		keys := make([]string, 0, len(entry))
		for key := range entry {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		rec.Fields = make([]Field, 0, len(keys))
		for _, key := range keys {
			rec.Fields = append(rec.Fields, Field{Key: key, Value: fieldValue(entry[key])})
		}
	}
	return rec
}

func take(entry map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		if value, ok := entry[key]; ok {
			delete(entry, key)
			return value, true
		}
	}
	return nil, false
}

func fieldValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
