package monitor

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const TimestampLayout = "2006-01-02 15:04:05"

var Header = []string{"Timestamp", "Bytes Sent", "Bytes Received", "Download Speed (Mbps)", "Upload Speed (Mbps)"}

// LogRecord is one completed sampling cycle.
type LogRecord struct {
	Timestamp     time.Time
	BytesSent     uint64
	BytesReceived uint64
	DownloadMbps  float64
	UploadMbps    float64
}

func (r *LogRecord) Row() []string {
	return []string{
		r.Timestamp.Format(TimestampLayout),
		strconv.FormatUint(r.BytesSent, 10),
		strconv.FormatUint(r.BytesReceived, 10),
		strconv.FormatFloat(r.DownloadMbps, 'f', 2, 64),
		strconv.FormatFloat(r.UploadMbps, 'f', 2, 64),
	}
}

// ParseRow is the inverse of Row. Timestamps are read in loc.
func ParseRow(row []string, loc *time.Location) (*LogRecord, error) {
	if len(row) != len(Header) {
		return nil, errors.Errorf("expected %d fields, got %d", len(Header), len(row))
	}

	var err error
	record := &LogRecord{}

	if record.Timestamp, err = time.ParseInLocation(TimestampLayout, row[0], loc); err != nil {
		return nil, errors.Wrap(err, "timestamp")
	}
	if record.BytesSent, err = strconv.ParseUint(row[1], 10, 64); err != nil {
		return nil, errors.Wrap(err, "bytes sent")
	}
	if record.BytesReceived, err = strconv.ParseUint(row[2], 10, 64); err != nil {
		return nil, errors.Wrap(err, "bytes received")
	}
	if record.DownloadMbps, err = strconv.ParseFloat(row[3], 64); err != nil {
		return nil, errors.Wrap(err, "download speed")
	}
	if record.UploadMbps, err = strconv.ParseFloat(row[4], 64); err != nil {
		return nil, errors.Wrap(err, "upload speed")
	}

	return record, nil
}
