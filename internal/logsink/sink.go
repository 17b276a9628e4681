package logsink

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wascc/wcc/internal/logx"
	"pkt.systems/pslog"
)

// DefaultMaxRecords bounds the ring when Options.MaxRecords is unset.
const DefaultMaxRecords = 5000

// Options configures a Sink.
type Options struct {
	// MaxRecords bounds the number of retained records.
	MaxRecords int
	// Level is the capture level for targets without their own level.
	// Unset captures everything; use SetLevel("", LevelOff) to capture nothing.
	Level Level
	// Tee receives every raw line written to the sink, e.g. a rotating log file.
	Tee io.Writer
}

// Sink is an append-only broadcast feed of log records. It is safe for
// concurrent use; observers read it independently by sequence number.
type Sink struct {
	mu       sync.Mutex
	records  []Record
	next     uint64
	max      int
	level    Level
	levels   map[string]Level
	targets  map[string]struct{}
	pending  []byte
	tee      io.Writer
	teeFails int
}

// New constructs a Sink.
func New(opts Options) *Sink {
	max := opts.MaxRecords
	if max <= 0 {
		max = DefaultMaxRecords
	}
	level := opts.Level
	if level == LevelOff {
		level = LevelTrace
	}
	return &Sink{
		max:     max,
		level:   level,
		levels:  make(map[string]Level),
		targets: make(map[string]struct{}),
		tee:     opts.Tee,
	}
}

// Write accepts newline separated structured log lines, as produced by
// pslog in structured mode. Partial lines are held until completed.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, p...)
	for {
		idx := bytes.IndexByte(s.pending, '\n')
		if idx < 0 {
			break
		}
		line := s.pending[:idx+1]
		s.writeTee(line)
		if len(bytes.TrimSpace(line)) > 0 {
			s.appendLocked(parseLine(line))
		}
		s.pending = s.pending[idx+1:]
	}
	if len(s.pending) == 0 {
		s.pending = nil
	}
	return len(p), nil
}

// Append adds a record directly.
func (s *Sink) Append(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(rec)
}

func (s *Sink) appendLocked(rec Record) {
	if rec.Target == "" {
		rec.Target = DefaultTarget
	}
	s.targets[rec.Target] = struct{}{}
	// Output panel lines are results, not diagnostics; capture levels never drop them.
	if rec.Target != logx.OutputTarget && !s.levelLocked(rec.Target).Allows(rec.Level) {
		return
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	rec.Seq = s.next
	s.next++
	s.records = append(s.records, rec)
	if over := len(s.records) - s.max; over > 0 {
		copy(s.records, s.records[over:])
		s.records = s.records[:s.max]
	}
}

// write errors of the tee must not stop capture
func (s *Sink) writeTee(line []byte) {
	if s.tee == nil {
		return
	}
	if _, err := s.tee.Write(line); err != nil {
		s.teeFails++
	}
}

// Since returns the retained records with Seq >= seq and the sequence
// number to pass on the next call.
func (s *Sink) Since(seq uint64) ([]Record, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 || seq >= s.next {
		return nil, s.next
	}
	first := s.records[0].Seq
	start := 0
	if seq > first {
		start = int(seq - first)
	}
	out := make([]Record, len(s.records)-start)
	copy(out, s.records[start:])
	return out, s.next
}

// Records returns a snapshot of all retained records.
func (s *Sink) Records() []Record {
	recs, _ := s.Since(0)
	return recs
}

// Targets returns every target seen so far, sorted.
func (s *Sink) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.targets))
	for target := range s.targets {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// SetLevel sets the capture level of one target. An empty target sets the default.
func (s *Sink) SetLevel(target string, level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target == "" {
		s.level = level
		return
	}
	s.targets[target] = struct{}{}
	s.levels[target] = level
}

// Level returns the capture level of target.
func (s *Sink) Level(target string) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levelLocked(target)
}

func (s *Sink) levelLocked(target string) Level {
	if level, ok := s.levels[target]; ok {
		return level
	}
	return s.level
}

// DetachTee stops copying lines to the tee and returns it, or nil.
func (s *Sink) DetachTee() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	tee := s.tee
	s.tee = nil
	return tee
}

// TeeFailures returns how many raw lines could not be written to the tee.
func (s *Sink) TeeFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teeFails
}

// TargetWriter returns a writer that turns each plain text line into a record
// with the given target and level. It suits log.Logger and grpclog output.
func (s *Sink) TargetWriter(target string, level Level) io.Writer {
	return &targetWriter{sink: s, target: target, level: level}
}

type targetWriter struct {
	sink   *Sink
	target string
	level  Level
}

func (w *targetWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		w.sink.Append(Record{Level: w.level, Target: w.target, Message: line})
	}
	return len(p), nil
}

// Logger returns a structured logger writing into the sink. Capture levels
// are applied by the sink, so the logger itself passes every level.
func (s *Sink) Logger() pslog.Logger {
	return pslog.NewWithOptions(s, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.TraceLevel,
		VerboseFields: true,
	})
}
