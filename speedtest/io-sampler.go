package speedtest

import (
	"io"
	"time"
)

type IOEvent struct {
	Timestamp time.Time
	Mode      IOMode
	Size      int
}

type IOSampler struct {
	Mode        IOMode
	SizeRead    int64
	SizeWritten int64
	Events      []*IOEvent
}

// SamplingReader records every Read on the wrapped reader. Downlink wraps the
// response body, uplink wraps the request body so that reads issued by the
// HTTP client mark upload progress.
type SamplingReader struct {
	IOSampler
	src      io.Reader
	quota    int64
	goodThru time.Time
	now      func() time.Time
}

func (r *SamplingReader) Read(p []byte) (int, error) {
	if r.SizeRead >= r.quota {
		return 0, io.EOF
	}
	if !r.goodThru.IsZero() && r.now().After(r.goodThru) {
		return 0, io.EOF
	}

	if remaining := r.quota - r.SizeRead; int64(len(p)) > remaining {
		p = p[:remaining]
	}

	size, err := r.src.Read(p)

	r.Events = append(r.Events, &IOEvent{
		Timestamp: r.now(),
		Mode:      r.Mode,
		Size:      size,
	})
	r.SizeRead += int64(size)
	if r.Mode == IOModeWrite {
		r.SizeWritten += int64(size)
	}

	return size, err
}

func newSamplingReader(src io.Reader, mode IOMode, quota int64, goodThru time.Time, now func() time.Time) *SamplingReader {
	s := &SamplingReader{
		src:      src,
		quota:    quota,
		goodThru: goodThru,
		now:      now,
	}

	s.Mode = mode
	s.Events = []*IOEvent{}

	return s
}

// zeroReader yields an endless stream of zero bytes for upload payloads.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
