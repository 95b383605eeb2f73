package monitor

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	assert.NilError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	assert.NilError(t, err)
	return rows
}

func TestLogSink_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultLogPath)
	record := &LogRecord{
		Timestamp:     time.Date(2024, 3, 9, 7, 5, 3, 0, time.Local),
		BytesSent:     18446744073709551615,
		BytesReceived: 42,
		DownloadMbps:  93.456,
		UploadMbps:    7.1,
	}

	sink, err := OpenLogSink(path)
	assert.NilError(t, err)
	assert.NilError(t, sink.Append(record))
	assert.NilError(t, sink.Close())

	rows := readRows(t, path)
	assert.Equal(t, len(rows), 2)
	assert.DeepEqual(t, rows[0], Header)
	assert.DeepEqual(t, rows[1], []string{"2024-03-09 07:05:03", "18446744073709551615", "42", "93.46", "7.10"})

	parsed, err := ParseRow(rows[1], time.Local)
	assert.NilError(t, err)
	assert.Assert(t, parsed.Timestamp.Equal(record.Timestamp))
	assert.Equal(t, parsed.BytesSent, record.BytesSent)
	assert.Equal(t, parsed.BytesReceived, record.BytesReceived)
	assert.Equal(t, parsed.DownloadMbps, 93.46)
	assert.Equal(t, parsed.UploadMbps, 7.1)
	assert.DeepEqual(t, parsed.Row(), rows[1])
}

func TestLogSink_DataVisibleBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	sink, err := OpenLogSink(path)
	assert.NilError(t, err)
	defer sink.Close()

	assert.NilError(t, sink.Append(&LogRecord{Timestamp: time.Now()}))

	assert.Equal(t, len(readRows(t, path)), 2)
}

func TestLogSink_HeaderRepeatedOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	for run := 0; run < 2; run += 1 {
		sink, err := OpenLogSink(path)
		assert.NilError(t, err)
		assert.NilError(t, sink.Append(&LogRecord{Timestamp: time.Now(), BytesSent: uint64(run)}))
		assert.NilError(t, sink.Close())
	}

	rows := readRows(t, path)
	assert.Equal(t, len(rows), 4)
	assert.DeepEqual(t, rows[0], Header)
	assert.Equal(t, rows[1][1], "0")
	assert.DeepEqual(t, rows[2], Header)
	assert.Equal(t, rows[3][1], "1")
}

func TestOpenLogSink_Error(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "log.csv")

	_, err := OpenLogSink(path)

	var sinkErr *SinkError
	assert.Assert(t, errors.As(err, &sinkErr))
	assert.ErrorContains(t, err, "open "+path)
}

func TestLogSink_AppendAfterCloseFails(t *testing.T) {
	sink, err := OpenLogSink(filepath.Join(t.TempDir(), "log.csv"))
	assert.NilError(t, err)
	assert.NilError(t, sink.Close())

	err = sink.Append(&LogRecord{Timestamp: time.Now()})

	var sinkErr *SinkError
	assert.Assert(t, errors.As(err, &sinkErr))
}

func TestParseRow_Invalid(t *testing.T) {
	_, err := ParseRow([]string{"a", "b"}, time.UTC)
	assert.ErrorContains(t, err, "expected 5 fields, got 2")

	_, err = ParseRow([]string{"2024-03-09 07:05:03", "x", "1", "1.00", "1.00"}, time.UTC)
	assert.ErrorContains(t, err, "bytes sent")
}
