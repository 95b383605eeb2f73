package monitor

import (
	"encoding/csv"
	"os"

	"github.com/pkg/errors"
)

const DefaultLogPath = "network_log.csv"

// SinkError wraps any failure to open or write the log file.
type SinkError struct {
	Op   string
	Path string
	Err  error
}

func (e *SinkError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *SinkError) Unwrap() error { return e.Err }

// LogSink appends records to a CSV file. Every Append is flushed and synced
// before it returns.
type LogSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// OpenLogSink opens path for append, creating it if needed, and writes a
// header row. Reopening an existing file adds another header row.
func OpenLogSink(path string) (*LogSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &SinkError{Op: "open", Path: path, Err: err}
	}

	sink := &LogSink{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
	}

	if err := sink.write(Header); err != nil {
		file.Close()
		return nil, err
	}

	return sink, nil
}

func (s *LogSink) Path() string {
	return s.path
}

func (s *LogSink) Append(record *LogRecord) error {
	return s.write(record.Row())
}

func (s *LogSink) write(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return &SinkError{Op: "write", Path: s.path, Err: err}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &SinkError{Op: "write", Path: s.path, Err: err}
	}
	if err := s.file.Sync(); err != nil {
		return &SinkError{Op: "sync", Path: s.path, Err: err}
	}
	return nil
}

func (s *LogSink) Close() error {
	if err := s.file.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", s.path)
	}
	return nil
}
