package sched

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
)

// EventSink receives scheduler events synchronously on the host loop.
// Implementations must not call back into the scheduler.
type EventSink interface {
	Record(ev Event)
}

type nopSink struct{}

func (nopSink) Record(Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Record(ev Event) {
	for _, s := range m {
		s.Record(ev)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	events []Event
}

func (r *Recorder) Record(ev Event) {
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds for one task, in order.
func (r *Recorder) Kinds(id TaskID) []EventKind {
	var kinds []EventKind
	for _, ev := range r.events {
		if ev.TaskID == id {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.events = r.events[:0]
}

// LogSink writes each event as a debug record.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Record(ev Event) {
	if !s.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if ev.TaskID == 0 {
		s.Logger.Debug(ev.Kind.String(), "at", ev.At)
		return
	}
	s.Logger.Debug(ev.Kind.String(), "at", ev.At, "task", ev.TaskID, "priority", ev.Priority)
}

// CSVSink writes events as CSV rows.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	err    error
}

// OpenCSVSink creates (truncating) the file at path for CSV logging.
func OpenCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := NewCSVSink(f)
	s.closer = f
	return s, nil
}

// NewCSVSink writes CSV rows to w. The header is written immediately.
func NewCSVSink(w io.Writer) *CSVSink {
	cw := csv.NewWriter(w)
	s := &CSVSink{w: cw}
	s.write([]string{"at_us", "event", "task_id", "priority"})
	return s
}

func (s *CSVSink) Record(ev Event) {
	rec := []string{
		strconv.FormatInt(ev.At.Microseconds(), 10),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.TaskID), 10),
		"",
	}
	if ev.TaskID != 0 {
		rec[3] = ev.Priority.String()
	}
	s.write(rec)
}

func (s *CSVSink) write(rec []string) {
	if s.err != nil {
		return
	}
	if err := s.w.Write(rec); err != nil {
		s.err = err
	}
}

// Flush writes buffered rows and returns the first write error seen.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	if s.err != nil {
		return s.err
	}
	return s.w.Error()
}

// Close flushes and closes the underlying file if the sink opened it.
func (s *CSVSink) Close() error {
	err := s.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
