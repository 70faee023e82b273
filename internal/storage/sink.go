package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/merrlog/merrlog/internal/model"
)

// ErrSinkClosed is returned by Append after the sink has been closed.
var ErrSinkClosed = errors.New("sink already closed")

// sinkBuffer is how many records may queue between producers and the
// writer goroutine before Append blocks.
const sinkBuffer = 64

// Sink is a destination for captured records. Append may be called from
// many workers at once; Close flushes and releases the destination.
type Sink interface {
	Append(rec *model.ListingRecord) error
	Close() error
}

// CSVSink appends records to a CSV file.
//
// Design decision: Producers hand records to a single writer goroutine
// over a channel instead of locking the file because:
// 1. One writer means rows can never interleave mid-record
// 2. Workers hand off and move on instead of blocking on disk I/O
// 3. Rows hit the file incrementally, so a killed run keeps its rows
type CSVSink struct {
	// path is the output file location.
	path string

	// file is the open output file, owned by the writer goroutine
	// after construction.
	file *os.File

	// w is the CSV encoder over file.
	w *csv.Writer

	// records carries appended records to the writer goroutine.
	records chan *model.ListingRecord

	// done closes when the writer goroutine has drained and flushed.
	done chan struct{}

	// mu serializes the closed check with the channel hand-off, so a
	// send can never race the close of records.
	mu sync.Mutex

	// closed is set once Close has been called.
	closed bool

	// errMu guards writeErr. It is separate from mu: the writer
	// goroutine takes it while a blocked Append may be holding mu, and
	// sharing one lock there would deadlock a full queue.
	errMu sync.Mutex

	// writeErr is the first write failure, surfaced by later Appends.
	writeErr error
}

// NewCSVSink creates the output file, writes the header row, and starts
// the writer goroutine. An existing file at path is truncated: each run
// produces one self-contained output.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	s := &CSVSink{
		path:    path,
		file:    file,
		w:       csv.NewWriter(file),
		records: make(chan *model.ListingRecord, sinkBuffer),
		done:    make(chan struct{}),
	}

	if err := s.w.Write(model.Header()); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	go s.consume()

	return s, nil
}

// Path returns the output file location.
func (s *CSVSink) Path() string {
	return s.path
}

// Append queues one record for writing. It returns ErrSinkClosed after
// Close, and the underlying write error once the file has failed, so
// callers stop producing into a dead sink.
func (s *CSVSink) Append(rec *model.ListingRecord) error {
	if err := s.err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.records <- rec
	return nil
}

// Close drains queued records, flushes, and closes the file.
// Safe to call more than once.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.records)
	<-s.done

	cerr := s.file.Close()

	if err := s.err(); err != nil {
		return err
	}
	return cerr
}

// consume is the writer goroutine: it owns the CSV encoder and writes
// every queued record as one complete row.
func (s *CSVSink) consume() {
	defer close(s.done)

	for rec := range s.records {
		if err := s.w.Write(rec.Row()); err != nil {
			s.setWriteErr(err)
			continue
		}
		// Flush per row so the file stays current while the run is live.
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			s.setWriteErr(err)
		}
	}
}

// setWriteErr records the first write failure.
func (s *CSVSink) setWriteErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.writeErr == nil {
		s.writeErr = fmt.Errorf("write record: %w", err)
	}
}

// err returns the sticky write failure, if any.
func (s *CSVSink) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.writeErr
}

// MultiSink fans every record out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink over the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append writes the record to every sink and returns the first error.
func (m *MultiSink) Append(rec *model.ListingRecord) error {
	for _, s := range m.sinks {
		if err := s.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
